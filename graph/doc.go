// Package graph maintains resource nodes, the ordering constraints between
// them and their readiness gates.
//
// An edge from A to B means that A must come before B. The qualifier on the
// edge decides how strong the constraint is:
//
//	ExistsBefore  A must be created before B is created.
//	ReadyBefore   A must be created and its gate satisfied before B starts.
//
// The graph is a DAG at all times: an edge that would close a cycle is
// rejected and the graph is left unchanged.
//
// A node may carry a single readiness gate. A gate holds a description of the
// predicate (for example "health command returns success") and a status. A
// node without a gate is ready as soon as it is created. Gates are evaluated
// outside of this package; the graph only records the requirement and the
// last known status.
package graph
