package services

import (
	"testing"

	"menu-service/models"
)

func strPtr(s string) *string {
	return &s
}

func node(id, name string, parent *string) models.MenuNode {
	return models.MenuNode{ID: id, Name: name, ParentID: parent}
}

func TestBuildForest(t *testing.T) {
	rows := []models.MenuNode{
		node("1", "A", nil),
		node("2", "B", strPtr("1")),
		node("3", "C", strPtr("2")),
		node("4", "D", nil),
		node("5", "E", strPtr("1")),
		node("6", "orphan", strPtr("missing")),
	}

	roots := buildForest(rows, isRootNode)
	if len(roots) != 2 {
		t.Fatalf("got %d roots, want 2", len(roots))
	}
	if roots[0].ID != "1" || roots[1].ID != "4" {
		t.Errorf("roots = %s,%s, want 1,4", roots[0].ID, roots[1].ID)
	}
	a := roots[0]
	if len(a.Children) != 2 || a.Children[0].ID != "2" || a.Children[1].ID != "5" {
		t.Fatalf("children of A not linked in input order: %+v", a.Children)
	}
	if len(a.Children[0].Children) != 1 || a.Children[0].Children[0].ID != "3" {
		t.Errorf("grandchild C not linked under B")
	}
	if roots[1].Children == nil {
		t.Error("leaf children must be an empty slice, not nil")
	}
}

func TestBuildForest_SubtreeTop(t *testing.T) {
	rows := []models.MenuNode{
		node("2", "B", strPtr("1")),
		node("3", "C", strPtr("2")),
		node("7", "F", strPtr("3")),
	}
	trees := buildForest(rows, hasID("2"))
	if len(trees) != 1 {
		t.Fatalf("got %d trees, want 1", len(trees))
	}
	flat := trees[0].Flatten()
	want := []string{"2", "3", "7"}
	if len(flat) != len(want) {
		t.Fatalf("flatten len = %d, want %d", len(flat), len(want))
	}
	for i, id := range want {
		if flat[i].ID != id {
			t.Errorf("flat[%d] = %s, want %s", i, flat[i].ID, id)
		}
	}
}

func TestBuildForest_Empty(t *testing.T) {
	got := buildForest(nil, isRootNode)
	if got == nil || len(got) != 0 {
		t.Errorf("buildForest(nil) = %v, want empty non-nil slice", got)
	}
}

func TestSameParent(t *testing.T) {
	tests := []struct {
		a, b *string
		want bool
	}{
		{nil, nil, true},
		{nil, strPtr("x"), false},
		{strPtr("x"), nil, false},
		{strPtr("x"), strPtr("x"), true},
		{strPtr("x"), strPtr("y"), false},
	}
	for _, tt := range tests {
		if got := sameParent(tt.a, tt.b); got != tt.want {
			t.Errorf("sameParent(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
