package symbol_test

import (
	"testing"

	"github.com/tensorforge/tensorforge/symbol"
)

func TestUnionFindDedupesEquivalenceClasses(t *testing.T) {
	uf := symbol.NewUnionFind()
	a, b, c := symbol.FreshProjID(), symbol.FreshProjID(), symbol.FreshProjID()

	if uf.Same(a, b) {
		t.Fatal("a and b should not start out unioned")
	}
	uf.Union(a, b)
	if !uf.Same(a, b) {
		t.Fatal("a and b should be unioned")
	}
	if uf.Same(a, c) {
		t.Fatal("a and c should not be unioned")
	}
	uf.Union(b, c)
	if !uf.Same(a, c) {
		t.Fatal("transitive union should make a and c equivalent")
	}
}

func TestDedicatedSymbolsAreNotSubstitutable(t *testing.T) {
	task := symbol.NewDedicated("task", symbol.TaskID)
	if task.Substitutable() {
		t.Fatal("a task-id symbol must not be substitutable during inlining")
	}
	ordinary := symbol.New("i")
	if !ordinary.Substitutable() {
		t.Fatal("an ordinary symbol must be substitutable")
	}
}

func TestBindingRejectsOutOfRangeValues(t *testing.T) {
	b := symbol.NewBinding(symbol.New("i"), symbol.BoundedRange(4))
	if err := b.Set(3); err != nil {
		t.Fatalf("Set(3) should be in range: %v", err)
	}
	if err := b.Set(4); err == nil {
		t.Fatal("Set(4) should be out of range for [0,4)")
	}
}
