package relationship

import (
	"context"
	"errors"
	"testing"

	"github.com/asakaida/kazoku/internal/entities"
	"github.com/asakaida/kazoku/internal/infrastructure/metrics"
	"github.com/asakaida/kazoku/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGraphStore_ReciprocalInvariant(t *testing.T) {
	env := newTestEnv(t)
	store := env.store()
	ctx := context.Background()

	_, err := store.SmartCreate(ctx, "bob", "alice", entities.KindParent)
	require.NoError(t, err)
	_, err = store.SmartCreate(ctx, "carol", "dave", entities.KindSpouse)
	require.NoError(t, err)
	_, err = store.SmartCreate(ctx, "alice", "carol", entities.KindSibling, WithSiblingType(entities.SiblingHalf))
	require.NoError(t, err)

	records, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 6)

	for _, r := range records {
		var reciprocal *entities.RelationshipRecord
		for _, other := range records {
			if r.Edge.IsReciprocalOf(&other.Edge) {
				reciprocal = other
			}
		}
		require.NotNil(t, reciprocal, "missing reciprocal of %s", r.Edge.String())
		assert.Equal(t, r.SiblingType, reciprocal.SiblingType)
	}

	assert.True(t, hasEdge(records, "alice", "carol", entities.KindSibling))
	for _, r := range records {
		if r.Kind == entities.KindSibling {
			assert.Equal(t, entities.SiblingHalf, r.SiblingType)
		}
	}
}

func TestGraphStore_NoSelfLoops(t *testing.T) {
	env := newTestEnv(t)
	store := env.store()

	for _, kind := range []entities.RelationKind{entities.KindParent, entities.KindChild, entities.KindSpouse, entities.KindSibling} {
		t.Run(kind.String(), func(t *testing.T) {
			_, err := store.SmartCreate(context.Background(), "alice", "alice", kind)
			require.Error(t, err)
			assert.ErrorIs(t, err, entities.ErrValidation)
			assert.Equal(t, entities.CodeValidation, entities.CodeOf(err))

			_, err = store.PlainCreate(context.Background(), "alice", "alice", kind)
			assert.ErrorIs(t, err, entities.ErrValidation)
		})
	}

	records, err := store.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGraphStore_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	store := env.store()
	ctx := context.Background()

	tests := []struct {
		name string
		from string
		to   string
		kind entities.RelationKind
		opts []CreateOption
	}{
		{name: "不明な種別", from: "alice", to: "bob", kind: "cousin"},
		{name: "空の ID", from: "", to: "bob", kind: entities.KindSpouse},
		{name: "兄弟以外の sibling type", from: "alice", to: "bob", kind: entities.KindSpouse, opts: []CreateOption{WithSiblingType(entities.SiblingFull)}},
		{name: "不明な sibling type", from: "alice", to: "bob", kind: entities.KindSibling, opts: []CreateOption{WithSiblingType("step")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.SmartCreate(ctx, tt.from, tt.to, tt.kind, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, entities.ErrValidation)

			var re *entities.RelationshipError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, "smart_create", re.Op)
		})
	}
}

func TestGraphStore_BirthDateCorrection(t *testing.T) {
	tests := []struct {
		name          string
		create        func(s *GraphStore) (*CreateResult, error)
		wantCorrected bool
		wantKind      entities.RelationKind
		wantParent    string
		wantChild     string
	}{
		{
			name: "年下の親は入れ替える",
			create: func(s *GraphStore) (*CreateResult, error) {
				return s.SmartCreate(context.Background(), "alice", "bob", entities.KindParent)
			},
			wantCorrected: true,
			wantKind:      entities.KindChild,
			wantParent:    "bob",
			wantChild:     "alice",
		},
		{
			name: "child 指定でも入れ替える",
			create: func(s *GraphStore) (*CreateResult, error) {
				return s.SmartCreate(context.Background(), "bob", "alice", entities.KindChild)
			},
			wantCorrected: true,
			wantKind:      entities.KindParent,
			wantParent:    "bob",
			wantChild:     "alice",
		},
		{
			name: "整合している場合はそのまま",
			create: func(s *GraphStore) (*CreateResult, error) {
				return s.SmartCreate(context.Background(), "bob", "alice", entities.KindParent)
			},
			wantCorrected: false,
			wantKind:      entities.KindParent,
			wantParent:    "bob",
			wantChild:     "alice",
		},
		{
			name: "生年月日が不明な場合はそのまま",
			create: func(s *GraphStore) (*CreateResult, error) {
				return s.SmartCreate(context.Background(), "carol", "bob", entities.KindParent)
			},
			wantCorrected: false,
			wantKind:      entities.KindParent,
			wantParent:    "carol",
			wantChild:     "bob",
		},
		{
			name: "PlainCreate は補正しない",
			create: func(s *GraphStore) (*CreateResult, error) {
				return s.PlainCreate(context.Background(), "alice", "bob", entities.KindParent)
			},
			wantCorrected: false,
			wantKind:      entities.KindParent,
			wantParent:    "alice",
			wantChild:     "bob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			recorder := newCountingRecorder()
			store := env.store(WithEventRecorder(recorder))

			result, err := tt.create(store)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCorrected, result.Corrected)
			assert.Equal(t, tt.wantKind, result.ActualKind)
			assert.Equal(t, result.Edges[0].ID, result.RelationshipID)

			records, err := store.GetAll(context.Background())
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.True(t, hasEdge(records, tt.wantParent, tt.wantChild, entities.KindParent))
			assert.True(t, hasEdge(records, tt.wantChild, tt.wantParent, entities.KindChild))

			assert.Equal(t, 1, recorder.events[metrics.EventCreated])
			if tt.wantCorrected {
				assert.Equal(t, 1, recorder.events[metrics.EventCorrected])
			} else {
				assert.Zero(t, recorder.events[metrics.EventCorrected])
			}
		})
	}
}

func TestGraphStore_DuplicateRejection(t *testing.T) {
	tests := []struct {
		name   string
		first  [2]string
		kind   entities.RelationKind
		second [2]string
		kind2  entities.RelationKind
	}{
		{name: "同じ方向の spouse", first: [2]string{"carol", "dave"}, kind: entities.KindSpouse, second: [2]string{"carol", "dave"}, kind2: entities.KindSpouse},
		{name: "逆方向の spouse", first: [2]string{"carol", "dave"}, kind: entities.KindSpouse, second: [2]string{"dave", "carol"}, kind2: entities.KindSpouse},
		{name: "逆方向の sibling", first: [2]string{"carol", "dave"}, kind: entities.KindSibling, second: [2]string{"dave", "carol"}, kind2: entities.KindSibling},
		{name: "parent の逆表現", first: [2]string{"bob", "alice"}, kind: entities.KindParent, second: [2]string{"alice", "bob"}, kind2: entities.KindChild},
		{name: "parent の逆向き", first: [2]string{"carol", "dave"}, kind: entities.KindParent, second: [2]string{"dave", "carol"}, kind2: entities.KindParent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			store := env.store()
			ctx := context.Background()

			_, err := store.SmartCreate(ctx, tt.first[0], tt.first[1], tt.kind)
			require.NoError(t, err)

			_, err = store.SmartCreate(ctx, tt.second[0], tt.second[1], tt.kind2)
			require.Error(t, err)
			assert.ErrorIs(t, err, entities.ErrDuplicateRelationship)

			_, err = store.PlainCreate(ctx, tt.second[0], tt.second[1], tt.kind2)
			assert.ErrorIs(t, err, entities.ErrDuplicateRelationship)

			records, err := store.GetAll(ctx)
			require.NoError(t, err)
			assert.Len(t, records, 2)
		})
	}
}

func TestGraphStore_DifferentKindsMayCoexist(t *testing.T) {
	env := newTestEnv(t)
	store := env.store()
	ctx := context.Background()

	_, err := store.SmartCreate(ctx, "carol", "dave", entities.KindSpouse)
	require.NoError(t, err)
	_, err = store.SmartCreate(ctx, "carol", "dave", entities.KindSibling)
	require.NoError(t, err)

	records, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestGraphStore_StoreRaceMapsToDuplicate(t *testing.T) {
	repo := &mockRelationshipRepository{
		createPairFunc: func(ctx context.Context, rel *entities.Relationship) ([2]*entities.Edge, error) {
			return [2]*entities.Edge{}, repositories.ErrDuplicateEdge
		},
	}
	store := NewGraphStore(repo, twoMembers())

	_, err := store.PlainCreate(context.Background(), "a", "b", entities.KindSpouse)
	assert.ErrorIs(t, err, entities.ErrDuplicateRelationship)
}

func TestGraphStore_MemberNotFound(t *testing.T) {
	env := newTestEnv(t)
	store := env.store()

	_, err := store.SmartCreate(context.Background(), "alice", "ghost", entities.KindSpouse)
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrNotFound)
	assert.Contains(t, err.Error(), "ghost")
}

func TestGraphStore_TransportErrors(t *testing.T) {
	storeErr := errors.New("connection refused")

	tests := []struct {
		name    string
		repo    *mockRelationshipRepository
		members *mockMemberDirectory
		call    func(s *GraphStore) error
	}{
		{
			name:    "member lookup fails",
			repo:    &mockRelationshipRepository{},
			members: &mockMemberDirectory{err: storeErr},
			call: func(s *GraphStore) error {
				_, err := s.SmartCreate(context.Background(), "a", "b", entities.KindSpouse)
				return err
			},
		},
		{
			name: "duplicate lookup fails",
			repo: &mockRelationshipRepository{
				findBetweenFunc: func(ctx context.Context, from, to string) ([]*entities.Edge, error) {
					return nil, storeErr
				},
			},
			members: twoMembers(),
			call: func(s *GraphStore) error {
				_, err := s.SmartCreate(context.Background(), "a", "b", entities.KindSpouse)
				return err
			},
		},
		{
			name: "insert fails",
			repo: &mockRelationshipRepository{
				createPairFunc: func(ctx context.Context, rel *entities.Relationship) ([2]*entities.Edge, error) {
					return [2]*entities.Edge{}, storeErr
				},
			},
			members: twoMembers(),
			call: func(s *GraphStore) error {
				_, err := s.PlainCreate(context.Background(), "a", "b", entities.KindSpouse)
				return err
			},
		},
		{
			name: "delete fails",
			repo: &mockRelationshipRepository{
				deletePairFunc: func(ctx context.Context, id string) (*repositories.DeletedPair, error) {
					return nil, storeErr
				},
			},
			members: twoMembers(),
			call: func(s *GraphStore) error {
				_, err := s.Delete(context.Background(), "edge-1")
				return err
			},
		},
		{
			name: "list fails",
			repo: &mockRelationshipRepository{
				listWithNamesFunc: func(ctx context.Context, filter *repositories.RelationshipFilter) ([]*entities.RelationshipRecord, error) {
					return nil, storeErr
				},
			},
			members: twoMembers(),
			call: func(s *GraphStore) error {
				_, err := s.GetAll(context.Background())
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewGraphStore(tt.repo, tt.members)
			err := tt.call(store)
			require.Error(t, err)
			assert.ErrorIs(t, err, entities.ErrTransport)
			assert.ErrorIs(t, err, storeErr)
			assert.Equal(t, entities.CodeTransport, entities.CodeOf(err))
		})
	}
}

func TestGraphStore_DeleteSymmetry(t *testing.T) {
	env := newTestEnv(t)
	store := env.store()
	ctx := context.Background()

	created, err := store.SmartCreate(ctx, "bob", "alice", entities.KindParent)
	require.NoError(t, err)
	_, err = store.SmartCreate(ctx, "carol", "dave", entities.KindSpouse)
	require.NoError(t, err)

	result, err := store.Delete(ctx, created.RelationshipID)
	require.NoError(t, err)
	assert.False(t, result.Partial)
	assert.Nil(t, result.Warning)
	assert.Len(t, result.Removed, 2)

	records, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.False(t, hasEdge(records, "bob", "alice", entities.KindParent))
	assert.False(t, hasEdge(records, "alice", "bob", entities.KindChild))

	// Deleting through the reciprocal's ID works the same way
	spouse, err := store.ListForMember(ctx, "dave")
	require.NoError(t, err)
	require.Len(t, spouse, 1)
	_, err = store.Delete(ctx, spouse[0].ID)
	require.NoError(t, err)

	records, err = store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGraphStore_DeleteNotFound(t *testing.T) {
	env := newTestEnv(t)
	store := env.store()

	_, err := store.Delete(context.Background(), "no-such-edge")
	assert.ErrorIs(t, err, entities.ErrNotFound)

	_, err = store.Delete(context.Background(), "")
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestGraphStore_DeletePartialState(t *testing.T) {
	env := newTestEnv(t)
	core, logs := observer.New(zapcore.WarnLevel)
	recorder := newCountingRecorder()
	store := env.store(WithLogger(zap.New(core)), WithEventRecorder(recorder))
	ctx := context.Background()

	created, err := store.SmartCreate(ctx, "carol", "dave", entities.KindSpouse)
	require.NoError(t, err)

	// Simulate a half-written pair left behind by an earlier failure
	_, err = env.db.Exec(`DELETE FROM relationships WHERE id = ?`, created.Edges[1].ID)
	require.NoError(t, err)

	result, err := store.Delete(ctx, created.RelationshipID)
	require.NoError(t, err)
	assert.True(t, result.Partial)
	require.NotNil(t, result.Warning)
	assert.ErrorIs(t, result.Warning, entities.ErrPartialState)
	assert.Len(t, result.Removed, 1)

	records, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.Equal(t, 1, logs.FilterMessage("deleted half of a relationship pair").Len())
	assert.Equal(t, 1, recorder.events[metrics.EventPartialDelete])
}

func TestGraphStore_GetAllJoinsNames(t *testing.T) {
	env := newTestEnv(t)
	store := env.store()
	ctx := context.Background()

	records, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	_, err = store.SmartCreate(ctx, "bob", "alice", entities.KindParent)
	require.NoError(t, err)

	records, err = store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		if r.FromMemberID == "bob" {
			assert.Equal(t, "Bob Test", r.FromMemberName)
			assert.Equal(t, "Alice Test", r.ToMemberName)
		}
	}

	_, err = store.ListForMember(ctx, "")
	assert.ErrorIs(t, err, entities.ErrValidation)
}
