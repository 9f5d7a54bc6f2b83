package graph

import "container/heap"

// TopologicalOrder returns all nodes in an order consistent with every edge:
// for an edge from a to b, a is returned before b.
//
// When more than one order is valid, nodes that were added first are returned
// first, so the result is the same for graphs built the same way.
func (g *Graph) TopologicalOrder() []*Node {
	indegree := make([]int, len(g.nodes))
	for _, n := range g.nodes {
		indegree[n.id] = g.dg.To(n.id).Len()
	}

	ready := &nodeHeap{}
	for _, n := range g.nodes {
		if indegree[n.id] == 0 {
			heap.Push(ready, n)
		}
	}

	out := make([]*Node, 0, len(g.nodes))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(*Node)
		out = append(out, n)
		it := g.dg.From(n.id)
		for it.Next() {
			id := it.Node().ID()
			indegree[id]--
			if indegree[id] == 0 {
				heap.Push(ready, g.nodes[id])
			}
		}
	}
	return out
}

// nodeHeap is a min-heap of nodes ordered by insertion.
type nodeHeap []*Node

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].id < h[j].id }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(*Node)) }

func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}
