// Package transfer replays and emits relationship data in bulk.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/asakaida/kazoku/internal/entities"
	"github.com/asakaida/kazoku/internal/infrastructure/logger"
	"github.com/asakaida/kazoku/internal/infrastructure/metrics"
	"github.com/asakaida/kazoku/internal/repositories"
	"github.com/asakaida/kazoku/internal/services/relationship"
	"go.uber.org/zap"
)

// RelationshipDescriptor is one relationship row of a transfer file
type RelationshipDescriptor struct {
	From        MemberRef
	To          MemberRef
	Kind        string
	SiblingType string
}

// RelationshipCreator is the part of the graph store the importer writes through
type RelationshipCreator interface {
	SmartCreate(ctx context.Context, from, to string, kind entities.RelationKind, opts ...relationship.CreateOption) (*relationship.CreateResult, error)
	PlainCreate(ctx context.Context, from, to string, kind entities.RelationKind, opts ...relationship.CreateOption) (*relationship.CreateResult, error)
}

// Importer replays relationship descriptors against the graph store
type Importer struct {
	store             RelationshipCreator
	members           repositories.MemberDirectory
	correctBirthDates bool
	logger            *zap.Logger
	events            relationship.EventRecorder
}

// ImporterOption configures an Importer
type ImporterOption func(*Importer)

// WithBirthDateCorrection makes the importer create through SmartCreate.
// Off by default: imported direction is kept as supplied.
func WithBirthDateCorrection(enabled bool) ImporterOption {
	return func(im *Importer) { im.correctBirthDates = enabled }
}

// WithLogger sets the importer's logger
func WithLogger(l *zap.Logger) ImporterOption {
	return func(im *Importer) { im.logger = logger.OrNop(l) }
}

// WithEventRecorder sets where import events are counted
func WithEventRecorder(r relationship.EventRecorder) ImporterOption {
	return func(im *Importer) {
		if r != nil {
			im.events = r
		}
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordRelationshipEvent(string) {}

// NewImporter creates a new Importer
func NewImporter(store RelationshipCreator, members repositories.MemberDirectory, opts ...ImporterOption) *Importer {
	im := &Importer{
		store:   store,
		members: members,
		logger:  zap.NewNop(),
		events:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportRelationships processes descriptors in order and records the outcome
// of each in the run's report. A bad row never aborts the batch.
func (im *Importer) ImportRelationships(ctx context.Context, run *ImportRun, descriptors []RelationshipDescriptor) *ImportReport {
	for i, d := range descriptors {
		im.importOne(ctx, run, i, d)
	}

	report := run.Report()
	im.logger.Info("relationship import finished",
		zap.Int("rows", len(descriptors)),
		zap.Int("imported", report.ImportedCount),
		zap.Int("skipped", report.SkippedCount),
		zap.Int("warnings", len(report.Warnings)),
		zap.Int("errors", len(report.Errors)),
	)
	return report
}

func (im *Importer) importOne(ctx context.Context, run *ImportRun, index int, d RelationshipDescriptor) {
	defer func() {
		if r := recover(); r != nil {
			im.logger.Error("panic while importing relationship", zap.Int("index", index), zap.Any("panic", r))
			im.events.RecordRelationshipEvent(metrics.EventImportError)
			run.addError(CategoryRelationship, index, fmt.Errorf("unexpected failure: %v", r))
		}
	}()

	from, err := run.Resolve(ctx, im.members, d.From)
	if err != nil {
		im.fail(run, index, fmt.Errorf("from: %w", err))
		return
	}
	to, err := run.Resolve(ctx, im.members, d.To)
	if err != nil {
		im.fail(run, index, fmt.Errorf("to: %w", err))
		return
	}
	kind, err := entities.ParseRelationKind(d.Kind)
	if err != nil {
		im.fail(run, index, err)
		return
	}

	key := relationship.NormalizeKey(from, to, kind)
	if run.IsProcessed(key) {
		run.report.SkippedCount++
		im.events.RecordRelationshipEvent(metrics.EventSkipped)
		return
	}

	var opts []relationship.CreateOption
	if st := strings.ToLower(strings.TrimSpace(d.SiblingType)); st != "" {
		opts = append(opts, relationship.WithSiblingType(entities.SiblingType(st)))
	}

	create := im.store.PlainCreate
	if im.correctBirthDates {
		create = im.store.SmartCreate
	}

	result, err := create(ctx, from, to, kind, opts...)
	switch {
	case err == nil:
		run.report.ImportedCount++
		run.MarkProcessed(key, relationship.ReciprocalKey(from, to, kind))
		if result.Corrected {
			run.MarkProcessed(relationship.NormalizeKey(from, to, result.ActualKind))
		}
		im.events.RecordRelationshipEvent(metrics.EventImported)

	case errors.Is(err, entities.ErrDuplicateRelationship):
		// Already present from an earlier import or manual entry
		run.MarkProcessed(key, relationship.ReciprocalKey(from, to, kind))
		run.addWarning(CategoryRelationship, index, err)
		im.events.RecordRelationshipEvent(metrics.EventImportWarning)

	default:
		im.fail(run, index, err)
	}
}

func (im *Importer) fail(run *ImportRun, index int, err error) {
	run.addError(CategoryRelationship, index, err)
	im.events.RecordRelationshipEvent(metrics.EventImportError)
}
