package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/asakaida/kazoku/internal/entities"
	"github.com/asakaida/kazoku/internal/repositories"
	"github.com/google/uuid"
)

// PostgresMemberRepository implements MemberDirectory using PostgreSQL
type PostgresMemberRepository struct {
	db *sql.DB
}

// NewPostgresMemberRepository creates a new PostgreSQL member repository
func NewPostgresMemberRepository(db *sql.DB) repositories.MemberDirectory {
	return &PostgresMemberRepository{db: db}
}

// GetByID retrieves a member by ID
func (r *PostgresMemberRepository) GetByID(ctx context.Context, id string) (*entities.Member, error) {
	query := `
		SELECT id, first_name, last_name, birth_date, death_date, created_at
		FROM members
		WHERE id = $1
	`
	member, err := scanMember(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, repositories.ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// FindByName returns members with exactly matching first and last name
func (r *PostgresMemberRepository) FindByName(ctx context.Context, firstName, lastName string) ([]*entities.Member, error) {
	query := `
		SELECT id, first_name, last_name, birth_date, death_date, created_at
		FROM members
		WHERE first_name = $1 AND last_name = $2
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, firstName, lastName)
	if err != nil {
		return nil, fmt.Errorf("failed to find members: %w", err)
	}
	defer rows.Close()

	var members []*entities.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return members, nil
}

// CreateMember inserts a new member and assigns its ID
func (r *PostgresMemberRepository) CreateMember(ctx context.Context, member *entities.Member) error {
	if err := member.Validate(); err != nil {
		return fmt.Errorf("invalid member: %w", err)
	}

	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	member.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO members (id, first_name, last_name, birth_date, death_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		member.ID, member.FirstName, member.LastName,
		nullTime(member.BirthDate), nullTime(member.DeathDate), member.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}

	return nil
}

func scanMember(row rowScanner) (*entities.Member, error) {
	var m entities.Member
	var birth, death sql.NullTime

	if err := row.Scan(&m.ID, &m.FirstName, &m.LastName, &birth, &death, &m.CreatedAt); err != nil {
		return nil, err
	}

	if birth.Valid {
		t := birth.Time
		m.BirthDate = &t
	}
	if death.Valid {
		t := death.Time
		m.DeathDate = &t
	}
	return &m, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
