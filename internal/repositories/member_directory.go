package repositories

import (
	"context"
	"errors"

	"github.com/asakaida/kazoku/internal/entities"
)

// ErrMemberNotFound is returned when no member has the requested ID
var ErrMemberNotFound = errors.New("member not found")

// MemberDirectory defines the read access the relationship engine needs to members,
// plus creation for bulk import runs
type MemberDirectory interface {
	// GetByID retrieves a member. Returns ErrMemberNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*entities.Member, error)

	// FindByName returns members whose first and last name match exactly
	FindByName(ctx context.Context, firstName, lastName string) ([]*entities.Member, error)

	// CreateMember stores a new member and assigns its ID
	CreateMember(ctx context.Context, member *entities.Member) error
}
