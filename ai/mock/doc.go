// Package mock provides test doubles for the ai interfaces.
//
// The embedder produces deterministic unit vectors derived from text
// hashes, so similarity behavior is stable across runs. The extractor
// derives a plausible ontology fragment from capitalized word runs.
// Both support behavior injection via function fields.
package mock
