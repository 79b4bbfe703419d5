package relationship

import (
	"testing"

	"github.com/asakaida/kazoku/internal/entities"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		kind entities.RelationKind
		want string
	}{
		{name: "parent keeps direction", from: "A", to: "B", kind: entities.KindParent, want: "A-parent-B"},
		{name: "child is rewritten as parent", from: "B", to: "A", kind: entities.KindChild, want: "A-parent-B"},
		{name: "spouse sorted", from: "B", to: "A", kind: entities.KindSpouse, want: "A-spouse-B"},
		{name: "spouse already sorted", from: "A", to: "B", kind: entities.KindSpouse, want: "A-spouse-B"},
		{name: "sibling sorted", from: "mem-102", to: "mem-101", kind: entities.KindSibling, want: "mem-101-sibling-mem-102"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeKey(tt.from, tt.to, tt.kind); got != tt.want {
				t.Errorf("NormalizeKey(%q, %q, %q) = %q, want %q", tt.from, tt.to, tt.kind, got, tt.want)
			}
		})
	}
}

func TestNormalizeKey_Idempotence(t *testing.T) {
	pairs := [][2]string{{"A", "B"}, {"mem-1", "mem-2"}, {"z", "a"}}

	for _, p := range pairs {
		a, b := p[0], p[1]
		if NormalizeKey(a, b, entities.KindParent) != NormalizeKey(b, a, entities.KindChild) {
			t.Errorf("parent/child keys differ for %s, %s", a, b)
		}
		if NormalizeKey(a, b, entities.KindSpouse) != NormalizeKey(b, a, entities.KindSpouse) {
			t.Errorf("spouse keys differ for %s, %s", a, b)
		}
		if NormalizeKey(a, b, entities.KindSibling) != NormalizeKey(b, a, entities.KindSibling) {
			t.Errorf("sibling keys differ for %s, %s", a, b)
		}
		if NormalizeKey(a, b, entities.KindParent) == NormalizeKey(b, a, entities.KindParent) {
			t.Errorf("opposite parent relationships must not share a key: %s, %s", a, b)
		}
	}
}

func TestReciprocalKey(t *testing.T) {
	for _, kind := range []entities.RelationKind{entities.KindParent, entities.KindChild, entities.KindSpouse, entities.KindSibling} {
		if got, want := ReciprocalKey("A", "B", kind), NormalizeKey("A", "B", kind); got != want {
			t.Errorf("ReciprocalKey(A, B, %s) = %q, want %q", kind, got, want)
		}
	}

	rel := entities.Relationship{From: "bob", To: "alice", Kind: entities.KindParent}
	edges := rel.Edges()
	if EdgeKey(&edges[0]) != EdgeKey(&edges[1]) {
		t.Errorf("edges of one relationship must share a key: %q vs %q", EdgeKey(&edges[0]), EdgeKey(&edges[1]))
	}
}
