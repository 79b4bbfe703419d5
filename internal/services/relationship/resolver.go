package relationship

import (
	"fmt"

	"github.com/asakaida/kazoku/internal/entities"
)

// Direction is the canonical (from, to, kind) triple for a request made from
// a member's page, plus the role each side plays.
type Direction struct {
	FromMemberID       string
	ToMemberID         string
	Kind               entities.RelationKind
	CurrentMemberRole  entities.RelationKind
	SelectedMemberRole entities.RelationKind
}

// ResolveDirection computes where an edge starts and ends when the current
// member asks for a relative of the requested kind.
//
//	parent: "give current a parent" -> selected#parent@current
//	child:  "give current a child"  -> current#parent@selected
//	spouse/sibling: current#kind@selected
func ResolveDirection(currentMemberID, selectedMemberID string, requested entities.RelationKind) (*Direction, error) {
	if currentMemberID == "" || selectedMemberID == "" {
		return nil, entities.NewValidationError("resolve_direction", "both member IDs are required")
	}
	if currentMemberID == selectedMemberID {
		return nil, entities.NewValidationError("resolve_direction", "a member cannot be related to themselves")
	}

	switch requested {
	case entities.KindParent:
		return &Direction{
			FromMemberID:       selectedMemberID,
			ToMemberID:         currentMemberID,
			Kind:               entities.KindParent,
			CurrentMemberRole:  entities.KindChild,
			SelectedMemberRole: entities.KindParent,
		}, nil
	case entities.KindChild:
		return &Direction{
			FromMemberID:       currentMemberID,
			ToMemberID:         selectedMemberID,
			Kind:               entities.KindParent,
			CurrentMemberRole:  entities.KindParent,
			SelectedMemberRole: entities.KindChild,
		}, nil
	case entities.KindSpouse, entities.KindSibling:
		return &Direction{
			FromMemberID:       currentMemberID,
			ToMemberID:         selectedMemberID,
			Kind:               requested,
			CurrentMemberRole:  requested,
			SelectedMemberRole: requested,
		}, nil
	default:
		return nil, entities.NewValidationError("resolve_direction", fmt.Sprintf("unknown relationship kind %q", requested))
	}
}

// Relationship returns the logical relationship the direction describes
func (d *Direction) Relationship() *entities.Relationship {
	return &entities.Relationship{From: d.FromMemberID, To: d.ToMemberID, Kind: d.Kind}
}

// Describe renders the direction from the selected member's point of view,
// e.g. "Bob is the parent of Alice".
func (d *Direction) Describe(currentName, selectedName string) string {
	return fmt.Sprintf("%s is the %s of %s", selectedName, d.SelectedMemberRole, currentName)
}
