package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/asakaida/kazoku/internal/entities"
	"github.com/asakaida/kazoku/internal/repositories"
)

// MemberRef points at a member in a transfer record.
// It is either a RefByID or a RefByName.
type MemberRef interface {
	fmt.Stringer
	memberRef()
}

// RefByID refers to a member by a batch-local temporary ID or a persistent ID
type RefByID struct {
	ID string
}

// RefByName refers to a member by exact first and last name
type RefByName struct {
	FirstName string
	LastName  string
}

func (RefByID) memberRef()   {}
func (RefByName) memberRef() {}

func (r RefByID) String() string { return r.ID }

func (r RefByName) String() string {
	return (&entities.Member{FirstName: r.FirstName, LastName: r.LastName}).DisplayName()
}

// ByID builds an ID reference
func ByID(id string) MemberRef { return RefByID{ID: id} }

// ByName builds a name reference
func ByName(firstName, lastName string) MemberRef {
	return RefByName{FirstName: firstName, LastName: lastName}
}

// Resolve turns a reference into a persistent member ID.
// IDs are looked up in the run's remap table first and otherwise must name
// an existing member; names must match exactly one member.
func (r *ImportRun) Resolve(ctx context.Context, members repositories.MemberDirectory, ref MemberRef) (string, error) {
	const op = "resolve"

	switch ref := ref.(type) {
	case RefByID:
		if ref.ID == "" {
			return "", entities.NewValidationError(op, "member ID is empty")
		}
		if id, ok := r.Lookup(ref.ID); ok {
			return id, nil
		}
		if _, err := members.GetByID(ctx, ref.ID); err != nil {
			if errors.Is(err, repositories.ErrMemberNotFound) {
				return "", entities.NewNotFoundError(op, fmt.Sprintf("unresolved member reference %q", ref.ID))
			}
			return "", entities.NewTransportError(op, err)
		}
		return ref.ID, nil

	case RefByName:
		if ref.FirstName == "" && ref.LastName == "" {
			return "", entities.NewValidationError(op, "member name is empty")
		}
		found, err := members.FindByName(ctx, ref.FirstName, ref.LastName)
		if err != nil {
			return "", entities.NewTransportError(op, err)
		}
		switch len(found) {
		case 0:
			return "", entities.NewNotFoundError(op, fmt.Sprintf("no member named %q", ref.String()))
		case 1:
			return found[0].ID, nil
		default:
			return "", entities.NewValidationError(op, fmt.Sprintf("%d members named %q", len(found), ref.String()))
		}

	default:
		return "", entities.NewValidationError(op, "missing member reference")
	}
}
