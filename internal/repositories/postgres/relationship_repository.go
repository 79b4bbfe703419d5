package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/kazoku/internal/entities"
	"github.com/asakaida/kazoku/internal/repositories"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgreSQL error codes for unique_violation and foreign_key_violation
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// PostgresRelationshipRepository implements RelationshipRepository using PostgreSQL
type PostgresRelationshipRepository struct {
	db *sql.DB
}

// NewPostgresRelationshipRepository creates a new PostgreSQL relationship repository
func NewPostgresRelationshipRepository(db *sql.DB) repositories.RelationshipRepository {
	return &PostgresRelationshipRepository{db: db}
}

// CreatePair inserts both edges of the relationship in one transaction.
// Any edge of the same logical kind between the two members, in either
// direction, makes it fail with ErrDuplicateEdge.
func (r *PostgresRelationshipRepository) CreatePair(ctx context.Context, rel *entities.Relationship) ([2]*entities.Edge, error) {
	var created [2]*entities.Edge
	if err := rel.Validate(); err != nil {
		return created, fmt.Errorf("invalid relationship: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return created, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Serialize writers on the unordered member pair so that mirror-image
	// requests such as (a, b, parent) and (b, a, parent) cannot both pass the check.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, pairLockKey(rel.From, rel.To)); err != nil {
		return created, fmt.Errorf("failed to lock member pair: %w", err)
	}

	var conflicts int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM relationships
		WHERE from_member_id IN ($1, $2) AND to_member_id IN ($1, $2) AND kind IN ($3, $4)
	`, rel.From, rel.To, string(rel.Kind), string(rel.Kind.Reciprocal())).Scan(&conflicts)
	if err != nil {
		return created, fmt.Errorf("failed to check existing relationship: %w", err)
	}
	if conflicts > 0 {
		return created, repositories.ErrDuplicateEdge
	}

	query := `
		INSERT INTO relationships (id, from_member_id, to_member_id, kind, sibling_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return created, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, edge := range rel.Edges() {
		edge := edge
		edge.ID = uuid.New().String()
		edge.CreatedAt = now

		_, err := stmt.ExecContext(ctx,
			edge.ID, edge.FromMemberID, edge.ToMemberID, string(edge.Kind),
			nullSiblingType(edge.SiblingType), edge.CreatedAt,
		)
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
func (r *PostgresRelationshipRepository) GetByID(ctx context.Context, id string) (*entities.Edge, error) {
	query := `
		SELECT id, from_member_id, to_member_id, kind, sibling_type, created_at
		FROM relationships
		WHERE id = $1
	`
	edge, err := scanEdge(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, repositories.ErrEdgeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	return edge, nil
}

// FindBetween returns all edges from one member to another
func (r *PostgresRelationshipRepository) FindBetween(ctx context.Context, fromMemberID, toMemberID string) ([]*entities.Edge, error) {
	query := `
		SELECT id, from_member_id, to_member_id, kind, sibling_type, created_at
		FROM relationships
		WHERE from_member_id = $1 AND to_member_id = $2
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, fromMemberID, toMemberID)
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
func (r *PostgresRelationshipRepository) DeletePair(ctx context.Context, id string) (*repositories.DeletedPair, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	edge, err := scanEdge(tx.QueryRowContext(ctx, `
		SELECT id, from_member_id, to_member_id, kind, sibling_type, created_at
		FROM relationships
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err == sql.ErrNoRows {
		return nil, repositories.ErrEdgeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}

	result := &repositories.DeletedPair{Edge: edge}

	reciprocal, err := scanEdge(tx.QueryRowContext(ctx, `
		SELECT id, from_member_id, to_member_id, kind, sibling_type, created_at
		FROM relationships
		WHERE from_member_id = $1 AND to_member_id = $2 AND kind = $3
		FOR UPDATE
	`, edge.ToMemberID, edge.FromMemberID, string(edge.Kind.Reciprocal())))
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("failed to get reciprocal relationship: %w", err)
	default:
		result.Reciprocal = reciprocal
	}

	ids := []string{edge.ID}
	if result.Reciprocal != nil {
		ids = append(ids, result.Reciprocal.ID)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM relationships WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to delete relationship: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

// ListWithNames retrieves edges matching the filter with member names joined in
func (r *PostgresRelationshipRepository) ListWithNames(ctx context.Context, filter *repositories.RelationshipFilter) ([]*entities.RelationshipRecord, error) {
	query := `
		SELECT r.id, r.from_member_id, r.to_member_id, r.kind, r.sibling_type, r.created_at,
			COALESCE(fm.first_name, ''), COALESCE(fm.last_name, ''),
			COALESCE(tm.first_name, ''), COALESCE(tm.last_name, '')
		FROM relationships r
		LEFT JOIN members fm ON fm.id = r.from_member_id
		LEFT JOIN members tm ON tm.id = r.to_member_id
		WHERE 1 = 1
	`
	args := []interface{}{}
	argIdx := 1

	// Build dynamic WHERE clause based on filter
	if filter != nil {
		if len(filter.MemberIDs) > 0 {
			query += fmt.Sprintf(" AND r.from_member_id = ANY($%d)", argIdx)
			args = append(args, pq.Array(filter.MemberIDs))
			argIdx++
		} else if filter.MemberID != "" {
			query += fmt.Sprintf(" AND r.from_member_id = $%d", argIdx)
			args = append(args, filter.MemberID)
			argIdx++
		}
		if filter.Kind != "" {
			query += fmt.Sprintf(" AND r.kind = $%d", argIdx)
			args = append(args, string(filter.Kind))
			argIdx++
		}
	}

	query += " ORDER BY r.created_at, r.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	defer rows.Close()

	var records []*entities.RelationshipRecord
	for rows.Next() {
		var rec entities.RelationshipRecord
		var kind string
		var siblingType sql.NullString
		var fromFirst, fromLast, toFirst, toLast string

		err := rows.Scan(
			&rec.ID, &rec.FromMemberID, &rec.ToMemberID, &kind, &siblingType, &rec.CreatedAt,
			&fromFirst, &fromLast, &toFirst, &toLast,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}

		rec.Kind = entities.RelationKind(kind)
		if siblingType.Valid {
			rec.SiblingType = entities.SiblingType(siblingType.String)
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

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEdge(row rowScanner) (*entities.Edge, error) {
	var edge entities.Edge
	var kind string
	var siblingType sql.NullString

	if err := row.Scan(&edge.ID, &edge.FromMemberID, &edge.ToMemberID, &kind, &siblingType, &edge.CreatedAt); err != nil {
		return nil, err
	}

	edge.Kind = entities.RelationKind(kind)
	if siblingType.Valid {
		edge.SiblingType = entities.SiblingType(siblingType.String)
	}
	return &edge, nil
}

func nullSiblingType(s entities.SiblingType) sql.NullString {
	return sql.NullString{String: string(s), Valid: s != entities.SiblingUnspecified}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == foreignKeyViolation
}

// pairLockKey is the same for (a, b) and (b, a)
func pairLockKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
