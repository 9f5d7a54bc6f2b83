package graph_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stackgraph/stackgraph/graph"
)

// scenario returns the network, config store and service graph:
// network -[exists-before]-> store -[ready-before]-> service, with a gate on
// store.
func scenario(t *testing.T) *graph.Graph {
	t.Helper()
	g := build(t, "network", "store", "service")
	if err := g.AddEdge("network", "store", graph.ExistsBefore); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge("store", "service", graph.ReadyBefore); err != nil {
		t.Fatal(err)
	}
	if err := g.AttachGate("store", "deployment complete"); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestGraph_AttachGate(t *testing.T) {
	g := scenario(t)

	gate, ok := g.Gate("store")
	if !ok {
		t.Fatal("Gate() not found")
	}
	want := graph.Gate{Predicate: "deployment complete", Status: graph.Pending}
	if diff := cmp.Diff(gate, want); diff != "" {
		t.Errorf("Gate() (-got, +want)\n%s", diff)
	}

	err := g.AttachGate("store", "again")
	var gerr *graph.GateExistsError
	if !errors.As(err, &gerr) {
		t.Errorf("AttachGate() err = %v, want GateExistsError", err)
	}

	var uerr *graph.UnknownNodeError
	if err := g.AttachGate("nope", "x"); !errors.As(err, &uerr) {
		t.Errorf("AttachGate() err = %v, want UnknownNodeError", err)
	}
}

func TestGraph_MarkReady_noGate(t *testing.T) {
	g := scenario(t)
	var nerr *graph.NoGateError
	if err := g.MarkReady("network"); !errors.As(err, &nerr) {
		t.Errorf("MarkReady() err = %v, want NoGateError", err)
	}
	if err := g.MarkFailed("service", "boom"); !errors.As(err, &nerr) {
		t.Errorf("MarkFailed() err = %v, want NoGateError", err)
	}
}

func TestGraph_IsSatisfied(t *testing.T) {
	g := scenario(t)
	tests := []struct {
		name string
		mark func()
		node string
		want bool
	}{
		{"Ungated", nil, "network", true},
		{"Unknown", nil, "nope", false},
		{"Pending", nil, "store", false},
		{"Failed", func() { _ = g.MarkFailed("store", "timeout") }, "store", false},
		{"Ready", func() { _ = g.MarkReady("store") }, "store", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.mark != nil {
				tt.mark()
			}
			if got := g.IsSatisfied(tt.node); got != tt.want {
				t.Errorf("IsSatisfied(%q) = %t, want %t", tt.node, got, tt.want)
			}
		})
	}
}

func TestGraph_Status(t *testing.T) {
	g := scenario(t)
	if got := g.Status("network"); got != graph.Ready {
		t.Errorf("Status(network) = %v, want ready", got)
	}
	if got := g.Status("store"); got != graph.Pending {
		t.Errorf("Status(store) = %v, want pending", got)
	}
	_ = g.MarkFailed("store", "timeout")
	if got := g.Status("store"); got != graph.Failed {
		t.Errorf("Status(store) = %v, want failed", got)
	}
	gate, _ := g.Gate("store")
	if gate.Reason != "timeout" {
		t.Errorf("Reason = %q, want timeout", gate.Reason)
	}
	_ = g.MarkReady("store")
	gate, _ = g.Gate("store")
	if gate.Reason != "" {
		t.Errorf("Reason after ready = %q, want empty", gate.Reason)
	}
}

func TestGraph_Blocked(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(g *graph.Graph)
		deferPending bool
		want         []graph.Blocked
	}{
		{
			name: "Pending",
			want: []graph.Blocked{
				{Node: "service", Gate: "store", Via: "store", Status: graph.Pending},
			},
		},
		{
			name:         "PendingDeferred",
			deferPending: true,
		},
		{
			name:         "Failed",
			setup:        func(g *graph.Graph) { _ = g.MarkFailed("store", "timeout") },
			deferPending: true,
			want: []graph.Blocked{
				{Node: "service", Gate: "store", Via: "store", Status: graph.Failed, Reason: "timeout"},
			},
		},
		{
			name:  "Ready",
			setup: func(g *graph.Graph) { _ = g.MarkReady("store") },
		},
		{
			name: "Propagates",
			setup: func(g *graph.Graph) {
				_, _ = g.AddNode("target", graph.KindLoadBalancerTarget, nil)
				_, _ = g.AddNode("listener", graph.KindListener, nil)
				_ = g.AddEdge("service", "target", graph.ExistsBefore)
				_ = g.AddEdge("target", "listener", graph.ExistsBefore)
				_ = g.MarkFailed("store", "timeout")
			},
			want: []graph.Blocked{
				{Node: "service", Gate: "store", Via: "store", Status: graph.Failed, Reason: "timeout"},
				{Node: "target", Gate: "store", Via: "service", Status: graph.Failed, Reason: "timeout"},
				{Node: "listener", Gate: "store", Via: "target", Status: graph.Failed, Reason: "timeout"},
			},
		},
		{
			name: "ExistsBeforeIgnoresGate",
			setup: func(g *graph.Graph) {
				_, _ = g.AddNode("logs", graph.KindLogGroup, nil)
				_ = g.AddEdge("store", "logs", graph.ExistsBefore)
				_ = g.MarkFailed("store", "timeout")
			},
			want: []graph.Blocked{
				{Node: "service", Gate: "store", Via: "store", Status: graph.Failed, Reason: "timeout"},
			},
		},
		{
			name: "CollectAll",
			setup: func(g *graph.Graph) {
				_, _ = g.AddNode("sidecar", graph.KindContainer, nil)
				_, _ = g.AddNode("primary", graph.KindContainer, nil)
				_ = g.AddEdge("sidecar", "primary", graph.ReadyBefore)
				_ = g.AttachGate("sidecar", "health check")
				_ = g.MarkFailed("sidecar", "unhealthy")
				_ = g.MarkFailed("store", "timeout")
			},
			want: []graph.Blocked{
				{Node: "service", Gate: "store", Via: "store", Status: graph.Failed, Reason: "timeout"},
				{Node: "primary", Gate: "sidecar", Via: "sidecar", Status: graph.Failed, Reason: "unhealthy"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := scenario(t)
			if tt.setup != nil {
				tt.setup(g)
			}
			got := g.Blocked(tt.deferPending)
			if diff := cmp.Diff(got, tt.want); diff != "" {
				t.Errorf("Blocked() (-got, +want)\n%s", diff)
			}
		})
	}
}

func TestGraph_WaitFor(t *testing.T) {
	g := scenario(t)
	if diff := cmp.Diff(g.WaitFor("service"), []string{"store"}); diff != "" {
		t.Errorf("WaitFor() (-got, +want)\n%s", diff)
	}
	_ = g.MarkReady("store")
	if got := g.WaitFor("service"); got != nil {
		t.Errorf("WaitFor() = %v, want nil", got)
	}
}

func TestGraph_Blocked_thenOrdered(t *testing.T) {
	g := scenario(t)
	if len(g.Blocked(false)) != 1 {
		t.Fatalf("want service blocked before the gate is ready")
	}
	if err := g.MarkReady("store"); err != nil {
		t.Fatal(err)
	}
	if got := g.Blocked(false); len(got) != 0 {
		t.Errorf("Blocked() = %v, want none", got)
	}
	want := []string{"network", "store", "service"}
	if diff := cmp.Diff(names(g.TopologicalOrder()), want); diff != "" {
		t.Errorf("TopologicalOrder() (-got, +want)\n%s", diff)
	}
}
