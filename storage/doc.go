// Package storage persists synthesized documents.
//
// Documents are stored through a KVBackend, one key per synthesis run. The
// key layout is
//
//	documents/<stack>/<id>
//
// where id is a KSUID, so the documents of a stack sort by the time they were
// stored.
package storage
