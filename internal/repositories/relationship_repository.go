package repositories

import (
	"context"
	"errors"

	"github.com/asakaida/kazoku/internal/entities"
)

var (
	// ErrEdgeNotFound is returned when no edge has the requested ID
	ErrEdgeNotFound = errors.New("relationship edge not found")

	// ErrDuplicateEdge is returned when an edge with the same (from, to, kind) already exists
	ErrDuplicateEdge = errors.New("relationship edge already exists")
)

// RelationshipFilter defines filter criteria for listing relationships
type RelationshipFilter struct {
	MemberID  string                // Edges starting from this member (optional)
	MemberIDs []string              // Edges starting from any of these members (optional)
	Kind      entities.RelationKind // Filter by edge kind (optional)
}

// DeletedPair describes what DeletePair removed.
// Reciprocal is nil when only one half of the pair existed.
type DeletedPair struct {
	Edge       *entities.Edge
	Reciprocal *entities.Edge
}

// RelationshipRepository defines the interface for the persistent relation collection.
// It is the sole system of record; implementations must not cache across calls.
type RelationshipRepository interface {
	// CreatePair inserts both edges of the relationship in a single transaction.
	// Returns ErrDuplicateEdge if either edge already exists and ErrMemberNotFound
	// if either endpoint has no member row.
	CreatePair(ctx context.Context, rel *entities.Relationship) ([2]*entities.Edge, error)

	// GetByID retrieves one edge. Returns ErrEdgeNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*entities.Edge, error)

	// FindBetween returns all edges starting at fromMemberID and ending at toMemberID
	FindBetween(ctx context.Context, fromMemberID, toMemberID string) ([]*entities.Edge, error)

	// DeletePair removes the edge and its reciprocal in a single transaction.
	// Returns ErrEdgeNotFound if the edge does not exist.
	DeletePair(ctx context.Context, id string) (*DeletedPair, error)

	// ListWithNames retrieves edges matching the filter with both member names joined in
	ListWithNames(ctx context.Context, filter *RelationshipFilter) ([]*entities.RelationshipRecord, error)
}
