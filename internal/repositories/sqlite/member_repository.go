package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/kazoku/internal/entities"
	"github.com/asakaida/kazoku/internal/repositories"
	"github.com/google/uuid"
)

// MemberRepository implements repositories.MemberDirectory using SQLite
type MemberRepository struct {
	db *sql.DB
}

// NewMemberRepository creates a new SQLite member repository
func NewMemberRepository(db *sql.DB) repositories.MemberDirectory {
	return &MemberRepository{db: db}
}

// GetByID retrieves a member by ID
func (r *MemberRepository) GetByID(ctx context.Context, id string) (*entities.Member, error) {
	member, err := scanMember(r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, birth_date, death_date, created_at
		FROM members
		WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// FindByName returns members with exactly matching first and last name
func (r *MemberRepository) FindByName(ctx context.Context, firstName, lastName string) ([]*entities.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, birth_date, death_date, created_at
		FROM members
		WHERE first_name = ? AND last_name = ?
		ORDER BY rowid
	`, firstName, lastName)
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
func (r *MemberRepository) CreateMember(ctx context.Context, member *entities.Member) error {
	if err := member.Validate(); err != nil {
		return fmt.Errorf("invalid member: %w", err)
	}

	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	member.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO members (id, first_name, last_name, birth_date, death_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, member.ID, member.FirstName, member.LastName,
		nullDate(member.BirthDate), nullDate(member.DeathDate), member.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}

	return nil
}

func scanMember(row rowScanner) (*entities.Member, error) {
	var m entities.Member
	var birth, death sql.NullString
	var createdAt string

	if err := row.Scan(&m.ID, &m.FirstName, &m.LastName, &birth, &death, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if m.BirthDate, err = entities.ParseDate(birth.String); err != nil {
		return nil, err
	}
	if m.DeathDate, err = entities.ParseDate(death.String); err != nil {
		return nil, err
	}
	if m.CreatedAt, err = parseCreatedAt(createdAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: entities.FormatDate(t), Valid: true}
}
