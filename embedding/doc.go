// Package embedding maintains document and concept vectors.
//
// Vectors are normalized, compressed, and stored next to a fingerprint
// recording the model, dimension, and source-text hash. Regeneration walks
// every document and every latest-version concept, re-embedding only the
// entries whose fingerprint is stale, so repeated runs converge to zero
// work. A failed entry keeps its previous vector.
package embedding
