package relationship

import (
	"fmt"

	"github.com/asakaida/kazoku/internal/entities"
)

// NormalizeKey returns a direction-independent key for the logical
// relationship an edge belongs to. Both edges of a pair share one key.
//
//	(a, b, parent)  -> "a-parent-b"
//	(a, b, child)   -> "b-parent-a"
//	(a, b, spouse)  -> "min(a,b)-spouse-max(a,b)"
func NormalizeKey(from, to string, kind entities.RelationKind) string {
	switch kind {
	case entities.KindParent:
		return fmt.Sprintf("%s-%s-%s", from, entities.KindParent, to)
	case entities.KindChild:
		return fmt.Sprintf("%s-%s-%s", to, entities.KindParent, from)
	default:
		if to < from {
			from, to = to, from
		}
		return fmt.Sprintf("%s-%s-%s", from, kind, to)
	}
}

// ReciprocalKey returns the key of the opposite-direction edge
func ReciprocalKey(from, to string, kind entities.RelationKind) string {
	return NormalizeKey(to, from, kind.Reciprocal())
}

// EdgeKey returns NormalizeKey for a stored edge
func EdgeKey(e *entities.Edge) string {
	return NormalizeKey(e.FromMemberID, e.ToMemberID, e.Kind)
}
