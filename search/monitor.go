package search

// Monitor provides hooks to observe the search process.
// Implement this interface to trace intermediate stages of a query.
type Monitor interface {
	Start(query string)
	AfterQueryEmbedding(semantic bool)
	AfterCandidateLoad(documents, concepts int)
	Scored(result *Result)
	Finish(results []*Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)              {}
func (n *noopMonitor) AfterQueryEmbedding(_ bool)  {}
func (n *noopMonitor) AfterCandidateLoad(_, _ int) {}
func (n *noopMonitor) Scored(_ *Result)            {}
func (n *noopMonitor) Finish(_ []*Result)          {}
