package handlers

import (
	"context"
	"net"
	"testing"

	"github.com/asakaida/kazoku/internal/entities"
	"github.com/asakaida/kazoku/internal/infrastructure/database"
	"github.com/asakaida/kazoku/internal/repositories"
	sqliterepo "github.com/asakaida/kazoku/internal/repositories/sqlite"
	"github.com/asakaida/kazoku/internal/services/relationship"
	"github.com/asakaida/kazoku/internal/services/transfer"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

// Mock GraphStore
type mockGraphStore struct {
	smartCreateFunc    func(ctx context.Context, from, to string, kind entities.RelationKind, opts ...relationship.CreateOption) (*relationship.CreateResult, error)
	plainCreateFunc    func(ctx context.Context, from, to string, kind entities.RelationKind, opts ...relationship.CreateOption) (*relationship.CreateResult, error)
	deleteFunc         func(ctx context.Context, relationshipID string) (*relationship.DeleteResult, error)
	getAllFunc         func(ctx context.Context) ([]*entities.RelationshipRecord, error)
	listForMemberFunc  func(ctx context.Context, memberID string) ([]*entities.RelationshipRecord, error)
	addBothParentsFunc func(ctx context.Context, childID string, parentIDs [2]string) *relationship.ParentsResult
}

func (m *mockGraphStore) SmartCreate(ctx context.Context, from, to string, kind entities.RelationKind, opts ...relationship.CreateOption) (*relationship.CreateResult, error) {
	if m.smartCreateFunc != nil {
		return m.smartCreateFunc(ctx, from, to, kind, opts...)
	}
	return &relationship.CreateResult{RelationshipID: "rel-1", ActualKind: kind}, nil
}

func (m *mockGraphStore) PlainCreate(ctx context.Context, from, to string, kind entities.RelationKind, opts ...relationship.CreateOption) (*relationship.CreateResult, error) {
	if m.plainCreateFunc != nil {
		return m.plainCreateFunc(ctx, from, to, kind, opts...)
	}
	return &relationship.CreateResult{RelationshipID: "rel-1", ActualKind: kind}, nil
}

func (m *mockGraphStore) Delete(ctx context.Context, relationshipID string) (*relationship.DeleteResult, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, relationshipID)
	}
	return &relationship.DeleteResult{RelationshipID: relationshipID}, nil
}

func (m *mockGraphStore) GetAll(ctx context.Context) ([]*entities.RelationshipRecord, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx)
	}
	return []*entities.RelationshipRecord{}, nil
}

func (m *mockGraphStore) ListForMember(ctx context.Context, memberID string) ([]*entities.RelationshipRecord, error) {
	if m.listForMemberFunc != nil {
		return m.listForMemberFunc(ctx, memberID)
	}
	return []*entities.RelationshipRecord{}, nil
}

func (m *mockGraphStore) AddBothParents(ctx context.Context, childID string, parentIDs [2]string) *relationship.ParentsResult {
	if m.addBothParentsFunc != nil {
		return m.addBothParentsFunc(ctx, childID, parentIDs)
	}
	return &relationship.ParentsResult{ChildID: childID}
}

// Mock transfer Service
type mockTransferService struct {
	importFunc func(ctx context.Context, bundle *transfer.Bundle) *transfer.ImportReport
	exportFunc func(ctx context.Context) ([]transfer.ExportRecord, error)
}

func (m *mockTransferService) Import(ctx context.Context, bundle *transfer.Bundle) *transfer.ImportReport {
	if m.importFunc != nil {
		return m.importFunc(ctx, bundle)
	}
	return transfer.NewImportRun().Report()
}

func (m *mockTransferService) Export(ctx context.Context) ([]transfer.ExportRecord, error) {
	if m.exportFunc != nil {
		return m.exportFunc(ctx)
	}
	return []transfer.ExportRecord{}, nil
}

// testEnv is a handler over a real engine on in-memory SQLite
type testEnv struct {
	members repositories.MemberDirectory
	store   *relationship.GraphStore
	handler *RelationshipHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	lite, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lite.Close() })

	members := sqliterepo.NewMemberRepository(lite.DB)
	store := relationship.NewGraphStore(sqliterepo.NewRelationshipRepository(lite.DB), members)
	service := transfer.NewService(transfer.NewImporter(store, members), store, members, nil)

	env := &testEnv{
		members: members,
		store:   store,
		handler: NewRelationshipHandler(store, service, members, nil),
	}
	env.addMember(t, "mem-101", "Alice", "Test", "1950-01-01")
	env.addMember(t, "mem-102", "Bob", "Test", "1920-01-01")
	env.addMember(t, "mem-103", "Carol", "Test", "")
	return env
}

func (e *testEnv) addMember(t *testing.T, id, first, last, birth string) {
	t.Helper()
	born, err := entities.ParseDate(birth)
	require.NoError(t, err)
	require.NoError(t, e.members.CreateMember(context.Background(), &entities.Member{
		ID: id, FirstName: first, LastName: last, BirthDate: born,
	}))
}

// newBufconnClient serves srv over an in-memory listener and returns a client
func newBufconnClient(t *testing.T, srv RelationshipServiceServer, opts ...grpc.ServerOption) *RelationshipServiceClient {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)

	server := grpc.NewServer(opts...)
	RegisterRelationshipServiceServer(server, srv)
	go func() {
		_ = server.Serve(lis)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewRelationshipServiceClient(conn)
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}
