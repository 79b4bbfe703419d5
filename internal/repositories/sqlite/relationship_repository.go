// Package sqlite implements the repositories on an embedded SQLite database.
// It backs single-file deployments and fast tests; PostgreSQL stays the primary store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asakaida/kazoku/internal/entities"
	"github.com/asakaida/kazoku/internal/repositories"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timeLayout keeps created_at sortable as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RelationshipRepository implements repositories.RelationshipRepository using SQLite
type RelationshipRepository struct {
	db *sql.DB
}

// NewRelationshipRepository creates a new SQLite relationship repository
func NewRelationshipRepository(db *sql.DB) repositories.RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// CreatePair inserts both edges of the relationship in one transaction.
// Any edge of the same logical kind between the two members, in either
// direction, makes it fail with ErrDuplicateEdge.
func (r *RelationshipRepository) CreatePair(ctx context.Context, rel *entities.Relationship) ([2]*entities.Edge, error) {
	var created [2]*entities.Edge
	if err := rel.Validate(); err != nil {
		return created, fmt.Errorf("invalid relationship: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return created, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The pool holds one connection, so this check and the inserts below
	// cannot interleave with another CreatePair.
	var conflicts int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM relationships
		WHERE from_member_id IN (?, ?) AND to_member_id IN (?, ?) AND kind IN (?, ?)
	`, rel.From, rel.To, rel.From, rel.To, string(rel.Kind), string(rel.Kind.Reciprocal())).Scan(&conflicts)
	if err != nil {
		return created, fmt.Errorf("failed to check existing relationship: %w", err)
	}
	if conflicts > 0 {
		return created, repositories.ErrDuplicateEdge
	}

	now := time.Now().UTC()
	for i, edge := range rel.Edges() {
		edge := edge
		edge.ID = uuid.New().String()
		edge.CreatedAt = now

		_, err := tx.ExecContext(ctx, `
			INSERT INTO relationships (id, from_member_id, to_member_id, kind, sibling_type, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, edge.ID, edge.FromMemberID, edge.ToMemberID, string(edge.Kind),
			nullSiblingType(edge.SiblingType), now.Format(timeLayout))
		if err != nil {
			if isUniqueViolation(err) {
				return [2]*entities.Edge{}, repositories.ErrDuplicateEdge
			}
			if isForeignKeyViolation(err) {
				return [2]*entities.Edge{}, repositories.ErrMemberNotFound
			}
			return [2]*entities.Edge{}, fmt.Errorf("failed to write relationship edge: %w", err)
		}
		created[i] = &edge
	}

	if err := tx.Commit(); err != nil {
		return [2]*entities.Edge{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return created, nil
}

// GetByID retrieves one edge by ID
func (r *RelationshipRepository) GetByID(ctx context.Context, id string) (*entities.Edge, error) {
	edge, err := scanEdge(r.db.QueryRowContext(ctx, `
		SELECT id, from_member_id, to_member_id, kind, sibling_type, created_at
		FROM relationships
		WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrEdgeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	return edge, nil
}

// FindBetween returns all edges from one member to another
func (r *RelationshipRepository) FindBetween(ctx context.Context, fromMemberID, toMemberID string) ([]*entities.Edge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, from_member_id, to_member_id, kind, sibling_type, created_at
		FROM relationships
		WHERE from_member_id = ? AND to_member_id = ?
		ORDER BY rowid
	`, fromMemberID, toMemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to find relationships: %w", err)
	}
	defer rows.Close()

	var edges []*entities.Edge
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relationships: %w", err)
	}

	return edges, nil
}

// DeletePair removes the edge and its reciprocal in one transaction
func (r *RelationshipRepository) DeletePair(ctx context.Context, id string) (*repositories.DeletedPair, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	edge, err := scanEdge(tx.QueryRowContext(ctx, `
		SELECT id, from_member_id, to_member_id, kind, sibling_type, created_at
		FROM relationships
		WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrEdgeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}

	result := &repositories.DeletedPair{Edge: edge}

	reciprocal, err := scanEdge(tx.QueryRowContext(ctx, `
		SELECT id, from_member_id, to_member_id, kind, sibling_type, created_at
		FROM relationships
		WHERE from_member_id = ? AND to_member_id = ? AND kind = ?
	`, edge.ToMemberID, edge.FromMemberID, string(edge.Kind.Reciprocal())))
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to get reciprocal relationship: %w", err)
	default:
		result.Reciprocal = reciprocal
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM relationships WHERE id = ?`, edge.ID); err != nil {
		return nil, fmt.Errorf("failed to delete relationship: %w", err)
	}
	if result.Reciprocal != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM relationships WHERE id = ?`, result.Reciprocal.ID); err != nil {
			return nil, fmt.Errorf("failed to delete reciprocal relationship: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

// ListWithNames retrieves edges matching the filter with member names joined in
func (r *RelationshipRepository) ListWithNames(ctx context.Context, filter *repositories.RelationshipFilter) ([]*entities.RelationshipRecord, error) {
	query := `
		SELECT r.id, r.from_member_id, r.to_member_id, r.kind, r.sibling_type, r.created_at,
			COALESCE(fm.first_name, ''), COALESCE(fm.last_name, ''),
			COALESCE(tm.first_name, ''), COALESCE(tm.last_name, '')
		FROM relationships r
		LEFT JOIN members fm ON fm.id = r.from_member_id
		LEFT JOIN members tm ON tm.id = r.to_member_id
		WHERE 1 = 1
	`
	var args []interface{}

	if filter != nil {
		if len(filter.MemberIDs) > 0 {
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(filter.MemberIDs)), ", ")
			query += " AND r.from_member_id IN (" + placeholders + ")"
			for _, id := range filter.MemberIDs {
				args = append(args, id)
			}
		} else if filter.MemberID != "" {
			query += " AND r.from_member_id = ?"
			args = append(args, filter.MemberID)
		}
		if filter.Kind != "" {
			query += " AND r.kind = ?"
			args = append(args, string(filter.Kind))
		}
	}

	query += " ORDER BY r.rowid"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	defer rows.Close()

	var records []*entities.RelationshipRecord
	for rows.Next() {
		var rec entities.RelationshipRecord
		var kind, createdAt string
		var siblingType sql.NullString
		var fromFirst, fromLast, toFirst, toLast string

		err := rows.Scan(
			&rec.ID, &rec.FromMemberID, &rec.ToMemberID, &kind, &siblingType, &createdAt,
			&fromFirst, &fromLast, &toFirst, &toLast,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}

		rec.Kind = entities.RelationKind(kind)
		if siblingType.Valid {
			rec.SiblingType = entities.SiblingType(siblingType.String)
		}
		if rec.CreatedAt, err = parseCreatedAt(createdAt); err != nil {
			return nil, err
		}
		rec.FromMemberName = (&entities.Member{FirstName: fromFirst, LastName: fromLast}).DisplayName()
		rec.ToMemberName = (&entities.Member{FirstName: toFirst, LastName: toLast}).DisplayName()

		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relationships: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEdge(row rowScanner) (*entities.Edge, error) {
	var edge entities.Edge
	var kind, createdAt string
	var siblingType sql.NullString

	if err := row.Scan(&edge.ID, &edge.FromMemberID, &edge.ToMemberID, &kind, &siblingType, &createdAt); err != nil {
		return nil, err
	}

	edge.Kind = entities.RelationKind(kind)
	if siblingType.Valid {
		edge.SiblingType = entities.SiblingType(siblingType.String)
	}
	var err error
	if edge.CreatedAt, err = parseCreatedAt(createdAt); err != nil {
		return nil, err
	}
	return &edge, nil
}

func parseCreatedAt(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return t, nil
}

func nullSiblingType(s entities.SiblingType) sql.NullString {
	return sql.NullString{String: string(s), Valid: s != entities.SiblingUnspecified}
}

func isUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}
	// Base result codes do not distinguish unique from other constraints
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation reports an edge pointing at a member row that does not exist
func isForeignKeyViolation(err error) bool {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
