package entities

import (
	"fmt"
	"time"
)

// Edge represents one stored direction of a logical relationship
// Example: bob#parent@alice
// This means: member "bob" is the "parent" of member "alice"
type Edge struct {
	ID           string       // Edge ID (uuid)
	FromMemberID string       // Member the edge starts from (e.g., "bob")
	ToMemberID   string       // Member the edge points to (e.g., "alice")
	Kind         RelationKind // Relation kind seen from FromMemberID
	SiblingType  SiblingType  // Optional, sibling edges only
	CreatedAt    time.Time
}

// String returns a string representation of the edge
// Format: from#kind@to[#sibling_type]
func (e *Edge) String() string {
	if e.SiblingType != SiblingUnspecified {
		return fmt.Sprintf("%s#%s@%s#%s", e.FromMemberID, e.Kind, e.ToMemberID, e.SiblingType)
	}
	return fmt.Sprintf("%s#%s@%s", e.FromMemberID, e.Kind, e.ToMemberID)
}

// Validate checks if the edge is valid
func (e *Edge) Validate() error {
	if e.FromMemberID == "" {
		return fmt.Errorf("from member ID is required")
	}
	if e.ToMemberID == "" {
		return fmt.Errorf("to member ID is required")
	}
	if e.FromMemberID == e.ToMemberID {
		return fmt.Errorf("from and to member must differ")
	}
	if !e.Kind.IsValid() {
		return fmt.Errorf("invalid relationship kind: %q", e.Kind)
	}
	if !e.SiblingType.IsValid() {
		return fmt.Errorf("invalid sibling type: %q", e.SiblingType)
	}
	return nil
}

// Relationship returns the logical relationship this edge is one half of
func (e *Edge) Relationship() Relationship {
	return Relationship{
		From:        e.FromMemberID,
		To:          e.ToMemberID,
		Kind:        e.Kind,
		SiblingType: e.SiblingType,
	}
}

// IsReciprocalOf reports whether other is the opposite-direction half of e
func (e *Edge) IsReciprocalOf(other *Edge) bool {
	return other != nil &&
		e.FromMemberID == other.ToMemberID &&
		e.ToMemberID == other.FromMemberID &&
		e.Kind.Reciprocal() == other.Kind &&
		e.SiblingType == other.SiblingType
}

// RelationshipRecord is an edge with both endpoints' display names joined in
type RelationshipRecord struct {
	Edge
	FromMemberName string
	ToMemberName   string
}
