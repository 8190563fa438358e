// Package ingestion turns raw document text into stored ontology versions.
//
// The pipeline chunks the document, runs the extractor over each chunk with
// bounded retries, translates chunk-relative span offsets to document
// offsets, merges duplicate concepts across chunks, and writes the whole
// version in one transaction. A chunk that keeps failing is skipped rather
// than failing the document; individual malformed candidates are dropped
// and counted.
package ingestion
