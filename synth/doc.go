// Package synth turns a dependency graph and a configuration snapshot into an
// ordered output document.
//
// Resources appear in the document in creation-safe order. Each resource
// lists the nodes it depends on, split by edge qualifier, so the document can
// be audited or re-ordered without the graph. Synthesis either returns a full
// document or an error; a partial document is never returned.
package synth
