package transfer

import (
	"context"
	"fmt"

	"github.com/asakaida/kazoku/internal/entities"
	"github.com/asakaida/kazoku/internal/infrastructure/logger"
	"github.com/asakaida/kazoku/internal/infrastructure/metrics"
	"github.com/asakaida/kazoku/internal/repositories"
	"github.com/asakaida/kazoku/internal/services/relationship"
	"go.uber.org/zap"
)

// MemberDescriptor is one member row of a transfer file.
// Ref is the batch-local ID other rows use to point at this member.
type MemberDescriptor struct {
	Ref       string
	FirstName string
	LastName  string
	BirthDate string // YYYY-MM-DD, optional
	DeathDate string // YYYY-MM-DD, optional
}

// Bundle is a parsed transfer file
type Bundle struct {
	Members       []MemberDescriptor
	Relationships []RelationshipDescriptor
}

// ExportRecord is one logical relationship in export form.
// Parent/child relationships are always written parent first.
type ExportRecord struct {
	FromMemberID     string
	ToMemberID       string
	RelationshipKind entities.RelationKind
	SiblingType      entities.SiblingType
	FromMemberName   string // For auditability; ignored on import
	ToMemberName     string
}

// RelationshipLister reads every stored edge
type RelationshipLister interface {
	GetAll(ctx context.Context) ([]*entities.RelationshipRecord, error)
}

// ServiceInterface defines bulk transfer operations
type ServiceInterface interface {
	Import(ctx context.Context, bundle *Bundle) *ImportReport
	Export(ctx context.Context) ([]ExportRecord, error)
}

// Service orchestrates whole-file imports and exports
type Service struct {
	importer *Importer
	store    RelationshipLister
	members  repositories.MemberDirectory
	logger   *zap.Logger
	events   relationship.EventRecorder
}

// NewService creates a new transfer Service
func NewService(importer *Importer, store RelationshipLister, members repositories.MemberDirectory, l *zap.Logger) *Service {
	return &Service{
		importer: importer,
		store:    store,
		members:  members,
		logger:   logger.OrNop(l),
		events:   importer.events,
	}
}

// Import creates the bundle's members, then its relationships.
// Categories run strictly in that order: relationship rows may refer to
// members through refs that only exist once the member rows are created.
func (s *Service) Import(ctx context.Context, bundle *Bundle) *ImportReport {
	run := NewImportRun()
	if bundle == nil {
		return run.Report()
	}

	for i, d := range bundle.Members {
		if err := s.importMember(ctx, run, d); err != nil {
			run.addError(CategoryMember, i, err)
			s.events.RecordRelationshipEvent(metrics.EventImportError)
		}
	}

	return s.importer.ImportRelationships(ctx, run, bundle.Relationships)
}

func (s *Service) importMember(ctx context.Context, run *ImportRun, d MemberDescriptor) error {
	const op = "import_member"

	if d.Ref != "" {
		if _, exists := run.Lookup(d.Ref); exists {
			return entities.NewValidationError(op, fmt.Sprintf("duplicate member ref %q", d.Ref))
		}
	}

	birth, err := entities.ParseDate(d.BirthDate)
	if err != nil {
		return entities.NewValidationError(op, err.Error())
	}
	death, err := entities.ParseDate(d.DeathDate)
	if err != nil {
		return entities.NewValidationError(op, err.Error())
	}

	member := &entities.Member{
		FirstName: d.FirstName,
		LastName:  d.LastName,
		BirthDate: birth,
		DeathDate: death,
	}
	if err := member.Validate(); err != nil {
		return entities.NewValidationError(op, err.Error())
	}
	if err := s.members.CreateMember(ctx, member); err != nil {
		return entities.NewTransportError(op, err)
	}

	if d.Ref != "" {
		run.Remap(d.Ref, member.ID)
	}
	run.report.MembersImported++
	return nil
}

// Export emits one record per logical relationship, in storage order
func (s *Service) Export(ctx context.Context) ([]ExportRecord, error) {
	records, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(records)/2)
	out := make([]ExportRecord, 0, len(records)/2)
	for _, r := range records {
		key := relationship.EdgeKey(&r.Edge)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, exportRecord(r))
	}

	s.logger.Info("relationships exported", zap.Int("edges", len(records)), zap.Int("relationships", len(out)))
	return out, nil
}

// exportRecord orients a record canonically: parent first for parent/child,
// lexicographically smaller ID first for symmetric kinds
func exportRecord(r *entities.RelationshipRecord) ExportRecord {
	rec := ExportRecord{
		FromMemberID:     r.FromMemberID,
		ToMemberID:       r.ToMemberID,
		RelationshipKind: r.Kind,
		SiblingType:      r.SiblingType,
		FromMemberName:   r.FromMemberName,
		ToMemberName:     r.ToMemberName,
	}

	swap := r.Kind == entities.KindChild || (r.Kind.IsSymmetric() && r.ToMemberID < r.FromMemberID)
	if swap {
		rec.FromMemberID, rec.ToMemberID = rec.ToMemberID, rec.FromMemberID
		rec.FromMemberName, rec.ToMemberName = rec.ToMemberName, rec.FromMemberName
		rec.RelationshipKind = r.Kind.Reciprocal()
	}
	return rec
}

var _ ServiceInterface = (*Service)(nil)
