package envmap_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stackgraph/stackgraph/envmap"
)

func TestNamespace_Set(t *testing.T) {
	ns := envmap.NewNamespace("appconfig", "EASY_NMOS_")
	ns.Set("CONFIG", "easy-nmos-config")

	got, err := ns.Get("CONFIG")
	if err != nil {
		t.Fatalf("Get() err = %v", err)
	}
	if got != "easy-nmos-config" {
		t.Errorf("Get() = %q", got)
	}
	if diff := cmp.Diff(ns.Keys(), []string{"EASY_NMOS_CONFIG"}); diff != "" {
		t.Errorf("Keys() (-got, +want)\n%s", diff)
	}
}

func TestMerge(t *testing.T) {
	test := envmap.NewNamespace("appconfig", "NMOS_TEST_")
	test.Set("APPLICATION", "nmos-test")
	test.Set("ENV", "prod")

	registry := envmap.NewNamespace("appconfig", "EASY_NMOS_")
	registry.Set("CONFIG", "easy-nmos-config")

	node := envmap.NewNamespace("appconfig", "EASY_NMOS_NODE_")
	node.Set("CONFIG", "easy-nmos-node-config")

	m, err := envmap.Merge(test, registry, node)
	if err != nil {
		t.Fatalf("Merge() err = %v", err)
	}
	want := []envmap.Pair{
		{Key: "NMOS_TEST_APPLICATION", Value: "nmos-test"},
		{Key: "NMOS_TEST_ENV", Value: "prod"},
		{Key: "EASY_NMOS_CONFIG", Value: "easy-nmos-config"},
		{Key: "EASY_NMOS_NODE_CONFIG", Value: "easy-nmos-node-config"},
	}
	if diff := cmp.Diff(m.Snapshot().Pairs(), want); diff != "" {
		t.Errorf("Pairs() (-got, +want)\n%s", diff)
	}
}

func TestMerge_collision(t *testing.T) {
	a := envmap.NewNamespace("base", "")
	a.Set("LABEL", "a")
	a.Set("DOMAIN", "nmos-test")

	b := envmap.NewNamespace("registry", "")
	b.Set("LABEL", "b")

	c := envmap.NewNamespace("node", "")
	c.Set("LABEL", "c")
	c.Set("DOMAIN", "other")

	m, err := envmap.Merge(a, b, c)
	if m != nil {
		t.Errorf("Merge() returned map on collision")
	}
	var ce *envmap.CollisionError
	if !errors.As(err, &ce) {
		t.Fatalf("Merge() err = %v, want *CollisionError", err)
	}
	want := []envmap.Collision{
		{Key: "LABEL", Owners: []string{"base", "registry", "node"}},
		{Key: "DOMAIN", Owners: []string{"base", "node"}},
	}
	if diff := cmp.Diff(ce.Collisions, want); diff != "" {
		t.Errorf("Collisions (-got, +want)\n%s", diff)
	}
	wantMsg := "config key collision: LABEL written by base and registry and node, DOMAIN written by base and node"
	if ce.Error() != wantMsg {
		t.Errorf("Error() = %q, want %q", ce.Error(), wantMsg)
	}
}
