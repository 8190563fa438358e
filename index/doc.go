// Package index provides the in-memory similarity index used by hybrid
// search. Scores are exact cosine over every candidate, which is adequate
// at micro-ontology scale and keeps the process free of external services.
package index
