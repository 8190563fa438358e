// Package jobs coordinates asynchronous extraction work. Jobs move through
// queued, processing and a terminal completed or failed state; the
// Coordinator owns every transition and serializes extraction per document.
package jobs
