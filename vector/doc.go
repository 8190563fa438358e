// Package vector handles embedding persistence and similarity math.
//
// Embeddings are stored zlib-compressed as little-endian float32 payloads,
// each accompanied by a fingerprint recording the model, dimension, and a
// short hash of the text it was computed from. Fingerprints make staleness
// detection cheap: if the model changes or the text changes, the stored
// vector is regenerated.
package vector
