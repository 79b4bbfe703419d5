// Package relationship is the relationship-consistency engine: it resolves
// direction, creates and deletes reciprocal edge pairs, and keys logical
// relationships for deduplication.
package relationship

import (
	"context"
	"errors"
	"fmt"

	"github.com/asakaida/kazoku/internal/entities"
	"github.com/asakaida/kazoku/internal/infrastructure/logger"
	"github.com/asakaida/kazoku/internal/infrastructure/metrics"
	"github.com/asakaida/kazoku/internal/repositories"
	"go.uber.org/zap"
)

// GraphStoreInterface defines the relationship operations exposed to callers
type GraphStoreInterface interface {
	SmartCreate(ctx context.Context, from, to string, kind entities.RelationKind, opts ...CreateOption) (*CreateResult, error)
	PlainCreate(ctx context.Context, from, to string, kind entities.RelationKind, opts ...CreateOption) (*CreateResult, error)
	Delete(ctx context.Context, relationshipID string) (*DeleteResult, error)
	GetAll(ctx context.Context) ([]*entities.RelationshipRecord, error)
	ListForMember(ctx context.Context, memberID string) ([]*entities.RelationshipRecord, error)
	AddBothParents(ctx context.Context, childID string, parentIDs [2]string) *ParentsResult
}

// EventRecorder receives engine events such as metrics.EventCreated
type EventRecorder interface {
	RecordRelationshipEvent(event string)
}

type nopRecorder struct{}

func (nopRecorder) RecordRelationshipEvent(string) {}

// GraphStore is the system of record for relationships. Every mutation goes
// through entities.Relationship, so edges are always written and removed in pairs.
type GraphStore struct {
	relationships repositories.RelationshipRepository
	members       repositories.MemberDirectory // birth dates and existence, never cached
	logger        *zap.Logger
	events        EventRecorder
}

// Option configures a GraphStore
type Option func(*GraphStore)

// WithLogger sets the logger used for corrections and partial deletes
func WithLogger(l *zap.Logger) Option {
	return func(s *GraphStore) { s.logger = logger.OrNop(l) }
}

// WithEventRecorder sets where engine events are counted
func WithEventRecorder(r EventRecorder) Option {
	return func(s *GraphStore) {
		if r != nil {
			s.events = r
		}
	}
}

// uncachedDirectory is implemented by directories that front the store with a cache
type uncachedDirectory interface {
	Uncached() repositories.MemberDirectory
}

// NewGraphStore creates a new GraphStore. A cached directory is unwrapped so
// the birth-date check always reads current member rows.
func NewGraphStore(relationships repositories.RelationshipRepository, members repositories.MemberDirectory, opts ...Option) *GraphStore {
	if u, ok := members.(uncachedDirectory); ok {
		members = u.Uncached()
	}
	s := &GraphStore{
		relationships: relationships,
		members:       members,
		logger:        zap.NewNop(),
		events:        nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateResult is the outcome of a successful creation
type CreateResult struct {
	RelationshipID string                // ID of the edge carrying the persisted direction
	Corrected      bool                  // Direction was swapped by the birth-date check
	ActualKind     entities.RelationKind // Kind persisted from the requested from member to the requested to member
	Edges          [2]*entities.Edge
}

// DeleteResult is the outcome of a successful deletion.
// Warning is set with code PARTIAL_STATE when only one half of the pair existed.
type DeleteResult struct {
	RelationshipID string
	Removed        []*entities.Edge
	Partial        bool
	Warning        *entities.RelationshipError
}

// CreateOption configures a single creation
type CreateOption func(*createOptions)

type createOptions struct {
	siblingType entities.SiblingType
}

// WithSiblingType records a half/full attribute on a sibling relationship
func WithSiblingType(t entities.SiblingType) CreateOption {
	return func(o *createOptions) { o.siblingType = t }
}

// SmartCreate creates a relationship after cross-checking birth dates.
// If the nominal parent was born strictly after the nominal child, the
// opposite orientation is stored and the result is marked Corrected.
func (s *GraphStore) SmartCreate(ctx context.Context, from, to string, kind entities.RelationKind, opts ...CreateOption) (*CreateResult, error) {
	return s.create(ctx, "smart_create", from, to, kind, true, opts)
}

// PlainCreate creates a relationship exactly as requested
func (s *GraphStore) PlainCreate(ctx context.Context, from, to string, kind entities.RelationKind, opts ...CreateOption) (*CreateResult, error) {
	return s.create(ctx, "plain_create", from, to, kind, false, opts)
}

func (s *GraphStore) create(ctx context.Context, op, from, to string, kind entities.RelationKind, correct bool, opts []CreateOption) (*CreateResult, error) {
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	rel := &entities.Relationship{From: from, To: to, Kind: kind, SiblingType: o.siblingType}
	if err := rel.Validate(); err != nil {
		return nil, withOp(err, op)
	}

	fromMember, err := s.loadMember(ctx, op, from)
	if err != nil {
		return nil, err
	}
	toMember, err := s.loadMember(ctx, op, to)
	if err != nil {
		return nil, err
	}

	corrected := false
	if correct && rel.Kind.IsParentChild() {
		parent, child := fromMember, toMember
		if rel.Kind == entities.KindChild {
			parent, child = toMember, fromMember
		}
		if after, ok := parent.BornAfter(child); ok && after {
			rel.Kind = rel.Kind.Reciprocal()
			corrected = true
		}
	}

	if err := s.checkDuplicate(ctx, op, rel); err != nil {
		return nil, err
	}

	edges, err := s.relationships.CreatePair(ctx, rel)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateEdge) {
			s.events.RecordRelationshipEvent(metrics.EventDuplicate)
			return nil, entities.NewDuplicateError(op, fmt.Sprintf("relationship between %s and %s already exists", from, to))
		}
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return nil, entities.NewNotFoundError(op, fmt.Sprintf("member %q or %q was removed before the relationship was stored", from, to))
		}
		return nil, entities.NewTransportError(op, err)
	}

	s.events.RecordRelationshipEvent(metrics.EventCreated)
	if corrected {
		s.events.RecordRelationshipEvent(metrics.EventCorrected)
		s.logger.Info("relationship direction corrected by birth dates",
			zap.String("relationship_id", edges[0].ID),
			zap.String("from_member_id", from),
			zap.String("to_member_id", to),
			zap.String("requested_kind", kind.String()),
			zap.String("actual_kind", rel.Kind.String()),
		)
	}

	return &CreateResult{
		RelationshipID: edges[0].ID,
		Corrected:      corrected,
		ActualKind:     rel.Kind,
		Edges:          edges,
	}, nil
}

// checkDuplicate rejects a relationship whose logical kind already links the
// two members, whichever direction it was recorded in. It runs outside the
// insert transaction; CreatePair repeats the check under the transaction for
// concurrent mirror-image requests.
func (s *GraphStore) checkDuplicate(ctx context.Context, op string, rel *entities.Relationship) error {
	for _, pair := range [2][2]string{{rel.From, rel.To}, {rel.To, rel.From}} {
		existing, err := s.relationships.FindBetween(ctx, pair[0], pair[1])
		if err != nil {
			return entities.NewTransportError(op, err)
		}
		for _, e := range existing {
			if e.Kind == rel.Kind || e.Kind == rel.Kind.Reciprocal() {
				s.events.RecordRelationshipEvent(metrics.EventDuplicate)
				return entities.NewDuplicateError(op,
					fmt.Sprintf("relationship between %s and %s already exists (%s)", rel.From, rel.To, e.String()))
			}
		}
	}
	return nil
}

func (s *GraphStore) loadMember(ctx context.Context, op, id string) (*entities.Member, error) {
	m, err := s.members.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrMemberNotFound) {
		return nil, entities.NewNotFoundError(op, fmt.Sprintf("member %q not found", id))
	}
	if err != nil {
		return nil, entities.NewTransportError(op, err)
	}
	return m, nil
}

// Delete removes the edge and its reciprocal together. A missing reciprocal
// is reported as a PARTIAL_STATE warning; the existing half is still removed.
func (s *GraphStore) Delete(ctx context.Context, relationshipID string) (*DeleteResult, error) {
	const op = "delete"
	if relationshipID == "" {
		return nil, entities.NewValidationError(op, "relationship ID is required")
	}

	deleted, err := s.relationships.DeletePair(ctx, relationshipID)
	if errors.Is(err, repositories.ErrEdgeNotFound) {
		return nil, entities.NewNotFoundError(op, fmt.Sprintf("relationship %q not found", relationshipID))
	}
	if err != nil {
		return nil, entities.NewTransportError(op, err)
	}

	result := &DeleteResult{
		RelationshipID: relationshipID,
		Removed:        []*entities.Edge{deleted.Edge},
	}
	s.events.RecordRelationshipEvent(metrics.EventDeleted)

	if deleted.Reciprocal == nil {
		result.Partial = true
		result.Warning = entities.NewPartialStateError(op,
			fmt.Sprintf("reciprocal of %s was missing; removed the remaining half", deleted.Edge.String()))
		s.events.RecordRelationshipEvent(metrics.EventPartialDelete)
		s.logger.Warn("deleted half of a relationship pair",
			zap.String("relationship_id", relationshipID),
			zap.String("edge", deleted.Edge.String()),
		)
		return result, nil
	}

	result.Removed = append(result.Removed, deleted.Reciprocal)
	return result, nil
}

// GetAll returns every edge with both display names, queried fresh on each call
func (s *GraphStore) GetAll(ctx context.Context) ([]*entities.RelationshipRecord, error) {
	records, err := s.relationships.ListWithNames(ctx, nil)
	if err != nil {
		return nil, entities.NewTransportError("get_all", err)
	}
	if records == nil {
		records = []*entities.RelationshipRecord{}
	}
	return records, nil
}

// ListForMember returns the edges starting at one member
func (s *GraphStore) ListForMember(ctx context.Context, memberID string) ([]*entities.RelationshipRecord, error) {
	if memberID == "" {
		return nil, entities.NewValidationError("list_for_member", "member ID is required")
	}
	records, err := s.relationships.ListWithNames(ctx, &repositories.RelationshipFilter{MemberID: memberID})
	if err != nil {
		return nil, entities.NewTransportError("list_for_member", err)
	}
	if records == nil {
		records = []*entities.RelationshipRecord{}
	}
	return records, nil
}

// withOp rewrites the operation name on engine errors
func withOp(err error, op string) error {
	var re *entities.RelationshipError
	if errors.As(err, &re) {
		copied := *re
		copied.Op = op
		return &copied
	}
	return err
}

var _ GraphStoreInterface = (*GraphStore)(nil)
