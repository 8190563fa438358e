// Package storage defines the persistence interfaces for documents and
// ontology versions, along with the MUS binary encoding of every record
// type. Backend implementations live in subpackages; see storage/badger.
package storage
