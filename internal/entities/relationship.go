package entities

import (
	"fmt"
	"strings"
)

// RelationKind is the kind stored on a single edge.
// parent and child are the two directions of one logical parent/child relationship.
type RelationKind string

const (
	KindParent  RelationKind = "parent"
	KindChild   RelationKind = "child"
	KindSpouse  RelationKind = "spouse"
	KindSibling RelationKind = "sibling"
)

// ParseRelationKind converts user or transfer input into a RelationKind
func ParseRelationKind(s string) (RelationKind, error) {
	k := RelationKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", NewValidationError("parse_kind", fmt.Sprintf("unknown relationship kind %q", s))
	}
	return k, nil
}

// IsValid reports whether the kind is one of the four supported kinds
func (k RelationKind) IsValid() bool {
	switch k {
	case KindParent, KindChild, KindSpouse, KindSibling:
		return true
	default:
		return false
	}
}

// IsSymmetric reports whether direction is immaterial for the kind
func (k RelationKind) IsSymmetric() bool {
	return k == KindSpouse || k == KindSibling
}

// IsParentChild reports whether the kind belongs to the parent/child family
func (k RelationKind) IsParentChild() bool {
	return k == KindParent || k == KindChild
}

// Reciprocal returns the kind required on the opposite-direction edge
func (k RelationKind) Reciprocal() RelationKind {
	switch k {
	case KindParent:
		return KindChild
	case KindChild:
		return KindParent
	default:
		return k
	}
}

// String returns the string representation of the kind
func (k RelationKind) String() string {
	return string(k)
}

// SiblingType distinguishes half and full siblings. Empty means unspecified.
type SiblingType string

const (
	SiblingUnspecified SiblingType = ""
	SiblingFull        SiblingType = "full"
	SiblingHalf        SiblingType = "half"
)

// IsValid reports whether the sibling type is known
func (s SiblingType) IsValid() bool {
	switch s {
	case SiblingUnspecified, SiblingFull, SiblingHalf:
		return true
	default:
		return false
	}
}

// Relationship is the logical, direction-independent fact linking two members.
// It is the only way edges are produced, so both halves of a pair always agree.
//
// Example: Relationship{From: "bob", To: "alice", Kind: KindParent}
// means bob is the parent of alice and yields
//
//	bob#parent@alice
//	alice#child@bob
type Relationship struct {
	From        string
	To          string
	Kind        RelationKind
	SiblingType SiblingType
}

// Validate checks the relationship before any mutation happens
func (r *Relationship) Validate() error {
	if r.From == "" || r.To == "" {
		return NewValidationError("validate", "both member IDs are required")
	}
	if r.From == r.To {
		return NewValidationError("validate", "a member cannot be related to themselves")
	}
	if !r.Kind.IsValid() {
		return NewValidationError("validate", fmt.Sprintf("unknown relationship kind %q", r.Kind))
	}
	if !r.SiblingType.IsValid() {
		return NewValidationError("validate", fmt.Sprintf("unknown sibling type %q", r.SiblingType))
	}
	if r.SiblingType != SiblingUnspecified && r.Kind != KindSibling {
		return NewValidationError("validate", "sibling type is only allowed on sibling relationships")
	}
	return nil
}

// Edges returns the two physical edges representing the relationship.
// The first edge carries the requested direction, the second its reciprocal.
func (r *Relationship) Edges() [2]Edge {
	return [2]Edge{
		{FromMemberID: r.From, ToMemberID: r.To, Kind: r.Kind, SiblingType: r.SiblingType},
		{FromMemberID: r.To, ToMemberID: r.From, Kind: r.Kind.Reciprocal(), SiblingType: r.SiblingType},
	}
}

// Reversed returns the same logical relationship seen from the other member
func (r *Relationship) Reversed() Relationship {
	return Relationship{
		From:        r.To,
		To:          r.From,
		Kind:        r.Kind.Reciprocal(),
		SiblingType: r.SiblingType,
	}
}

// String returns a string representation of the relationship
func (r *Relationship) String() string {
	e := r.Edges()
	return e[0].String()
}
