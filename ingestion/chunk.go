package ingestion

// Chunk is a window of document text handed to the extractor.
// Start is the rune offset of the window in the full document.
type Chunk struct {
	Start int
	Text  string
}

const (
	defaultChunkSize    = 1500
	defaultChunkOverlap = 200
	sentenceLookback    = 100
)

// ChunkText splits text into overlapping windows of at most size runes.
// When a window would cut mid-sentence, the boundary backs up to the last
// ". " within the final sentenceLookback runes. Offsets are rune offsets.
func ChunkText(text string, size, overlap int) []Chunk {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = defaultChunkOverlap
		if overlap >= size {
			overlap = size / 4
		}
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []Chunk{{Start: 0, Text: text}}
	}

	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, Chunk{Start: start, Text: string(runes[start:])})
			break
		}

		// Prefer a sentence boundary near the end of the window.
		cut := end
		lookFrom := end - sentenceLookback
		if lookFrom < start {
			lookFrom = start
		}
		for i := end - 2; i >= lookFrom; i-- {
			if runes[i] == '.' && runes[i+1] == ' ' {
				cut = i + 2
				break
			}
		}

		chunks = append(chunks, Chunk{Start: start, Text: string(runes[start:cut])})

		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}
