// Package cached wraps repositories with the in-memory lookup cache.
package cached

import (
	"context"
	"time"

	"github.com/asakaida/kazoku/internal/entities"
	"github.com/asakaida/kazoku/internal/repositories"
	"github.com/asakaida/kazoku/pkg/cache"
)

const memberKeyPrefix = "member:"

// MemberDirectory caches GetByID lookups of an underlying directory.
// Name searches always reach the underlying directory.
type MemberDirectory struct {
	next  repositories.MemberDirectory
	cache cache.Cache
	ttl   time.Duration
}

// NewMemberDirectory wraps next with c. A zero ttl uses the cache default.
func NewMemberDirectory(next repositories.MemberDirectory, c cache.Cache, ttl time.Duration) *MemberDirectory {
	return &MemberDirectory{next: next, cache: c, ttl: ttl}
}

// GetByID returns a copy of the cached member, loading it on a miss.
// Misses for unknown members are not cached.
func (d *MemberDirectory) GetByID(ctx context.Context, id string) (*entities.Member, error) {
	key := memberKeyPrefix + id
	if v, ok := d.cache.Get(ctx, key); ok {
		if m, ok := v.(entities.Member); ok {
			return &m, nil
		}
	}

	member, err := d.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	_ = d.cache.Set(ctx, key, *member, d.ttl)
	return member, nil
}

// FindByName delegates to the underlying directory
func (d *MemberDirectory) FindByName(ctx context.Context, firstName, lastName string) ([]*entities.Member, error) {
	return d.next.FindByName(ctx, firstName, lastName)
}

// CreateMember delegates and primes the cache with the new member
func (d *MemberDirectory) CreateMember(ctx context.Context, member *entities.Member) error {
	if err := d.next.CreateMember(ctx, member); err != nil {
		return err
	}
	_ = d.cache.Set(ctx, memberKeyPrefix+member.ID, *member, d.ttl)
	return nil
}

// Invalidate drops a member from the cache, e.g. after its dates were edited
func (d *MemberDirectory) Invalidate(ctx context.Context, id string) {
	_ = d.cache.Delete(ctx, memberKeyPrefix+id)
}

// Uncached returns the wrapped directory for reads that must see the store
func (d *MemberDirectory) Uncached() repositories.MemberDirectory {
	return d.next
}

var _ repositories.MemberDirectory = (*MemberDirectory)(nil)
