package relationship

import (
	"context"
	"database/sql"
	"testing"

	"github.com/asakaida/kazoku/internal/entities"
	"github.com/asakaida/kazoku/internal/infrastructure/database"
	"github.com/asakaida/kazoku/internal/repositories"
	sqliterepo "github.com/asakaida/kazoku/internal/repositories/sqlite"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db            *sql.DB
	relationships repositories.RelationshipRepository
	members       repositories.MemberDirectory
}

// newTestEnv opens an in-memory store seeded with:
//
//	alice born 1950-01-01, bob born 1920-01-01, carol and dave without dates
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	lite, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lite.Close() })

	env := &testEnv{
		db:            lite.DB,
		relationships: sqliterepo.NewRelationshipRepository(lite.DB),
		members:       sqliterepo.NewMemberRepository(lite.DB),
	}

	env.addMember(t, "alice", "Alice", "1950-01-01")
	env.addMember(t, "bob", "Bob", "1920-01-01")
	env.addMember(t, "carol", "Carol", "")
	env.addMember(t, "dave", "Dave", "")
	return env
}

func (e *testEnv) addMember(t *testing.T, id, first, birth string) {
	t.Helper()
	born, err := entities.ParseDate(birth)
	require.NoError(t, err)
	require.NoError(t, e.members.CreateMember(context.Background(), &entities.Member{
		ID: id, FirstName: first, LastName: "Test", BirthDate: born,
	}))
}

func (e *testEnv) store(opts ...Option) *GraphStore {
	return NewGraphStore(e.relationships, e.members, opts...)
}

// hasEdge reports whether records contain from#kind@to
func hasEdge(records []*entities.RelationshipRecord, from, to string, kind entities.RelationKind) bool {
	for _, r := range records {
		if r.FromMemberID == from && r.ToMemberID == to && r.Kind == kind {
			return true
		}
	}
	return false
}

type countingRecorder struct {
	events map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{events: make(map[string]int)}
}

func (r *countingRecorder) RecordRelationshipEvent(event string) {
	r.events[event]++
}

// mockRelationshipRepository lets a test replace individual repository calls
type mockRelationshipRepository struct {
	createPairFunc    func(ctx context.Context, rel *entities.Relationship) ([2]*entities.Edge, error)
	getByIDFunc       func(ctx context.Context, id string) (*entities.Edge, error)
	findBetweenFunc   func(ctx context.Context, from, to string) ([]*entities.Edge, error)
	deletePairFunc    func(ctx context.Context, id string) (*repositories.DeletedPair, error)
	listWithNamesFunc func(ctx context.Context, filter *repositories.RelationshipFilter) ([]*entities.RelationshipRecord, error)
}

func (m *mockRelationshipRepository) CreatePair(ctx context.Context, rel *entities.Relationship) ([2]*entities.Edge, error) {
	if m.createPairFunc != nil {
		return m.createPairFunc(ctx, rel)
	}
	edges := rel.Edges()
	edges[0].ID, edges[1].ID = "edge-1", "edge-2"
	return [2]*entities.Edge{&edges[0], &edges[1]}, nil
}

func (m *mockRelationshipRepository) GetByID(ctx context.Context, id string) (*entities.Edge, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, repositories.ErrEdgeNotFound
}

func (m *mockRelationshipRepository) FindBetween(ctx context.Context, from, to string) ([]*entities.Edge, error) {
	if m.findBetweenFunc != nil {
		return m.findBetweenFunc(ctx, from, to)
	}
	return nil, nil
}

func (m *mockRelationshipRepository) DeletePair(ctx context.Context, id string) (*repositories.DeletedPair, error) {
	if m.deletePairFunc != nil {
		return m.deletePairFunc(ctx, id)
	}
	return nil, repositories.ErrEdgeNotFound
}

func (m *mockRelationshipRepository) ListWithNames(ctx context.Context, filter *repositories.RelationshipFilter) ([]*entities.RelationshipRecord, error) {
	if m.listWithNamesFunc != nil {
		return m.listWithNamesFunc(ctx, filter)
	}
	return nil, nil
}

// mockMemberDirectory serves members from a map
type mockMemberDirectory struct {
	members map[string]*entities.Member
	err     error
}

func (m *mockMemberDirectory) GetByID(ctx context.Context, id string) (*entities.Member, error) {
	if m.err != nil {
		return nil, m.err
	}
	member, ok := m.members[id]
	if !ok {
		return nil, repositories.ErrMemberNotFound
	}
	return member, nil
}

func (m *mockMemberDirectory) FindByName(ctx context.Context, firstName, lastName string) ([]*entities.Member, error) {
	return nil, m.err
}

func (m *mockMemberDirectory) CreateMember(ctx context.Context, member *entities.Member) error {
	return m.err
}

func twoMembers() *mockMemberDirectory {
	return &mockMemberDirectory{members: map[string]*entities.Member{
		"a": {ID: "a", FirstName: "A"},
		"b": {ID: "b", FirstName: "B"},
	}}
}
