package transfer

import (
	"github.com/asakaida/kazoku/internal/entities"
)

// Import categories
const (
	CategoryMember       = "member"
	CategoryRelationship = "relationship"
)

// ImportIssue is one error or warning in an import report
type ImportIssue struct {
	Category string
	Index    int // Position of the record within its category
	Code     entities.ErrorCode
	Message  string
}

// ImportReport summarizes an import run
type ImportReport struct {
	MembersImported int
	ImportedCount   int // Relationships created
	SkippedCount    int // Rows belonging to a relationship already handled in this run
	Errors          []ImportIssue
	Warnings        []ImportIssue
}

// ImportRun carries the state of a single import: the temporary-ref remap
// table, the normalized keys already handled and the report. Each run owns
// its own state, so concurrent runs cannot see each other's refs.
// An ImportRun is not safe for concurrent use.
type ImportRun struct {
	remap     map[string]string
	processed map[string]struct{}
	report    *ImportReport
}

// NewImportRun creates an empty run
func NewImportRun() *ImportRun {
	return &ImportRun{
		remap:     make(map[string]string),
		processed: make(map[string]struct{}),
		report: &ImportReport{
			Errors:   []ImportIssue{},
			Warnings: []ImportIssue{},
		},
	}
}

// Remap records that a temporary ref now refers to a persistent member ID
func (r *ImportRun) Remap(ref, memberID string) {
	r.remap[ref] = memberID
}

// Lookup returns the persistent ID recorded for a temporary ref
func (r *ImportRun) Lookup(ref string) (string, bool) {
	id, ok := r.remap[ref]
	return id, ok
}

// MarkProcessed records normalized relationship keys as handled
func (r *ImportRun) MarkProcessed(keys ...string) {
	for _, k := range keys {
		r.processed[k] = struct{}{}
	}
}

// IsProcessed reports whether a normalized key was handled earlier in the run
func (r *ImportRun) IsProcessed(key string) bool {
	_, ok := r.processed[key]
	return ok
}

// Report returns the run's report
func (r *ImportRun) Report() *ImportReport {
	return r.report
}

func (r *ImportRun) addError(category string, index int, err error) {
	r.report.Errors = append(r.report.Errors, issueFor(category, index, err))
}

func (r *ImportRun) addWarning(category string, index int, err error) {
	r.report.Warnings = append(r.report.Warnings, issueFor(category, index, err))
}

func issueFor(category string, index int, err error) ImportIssue {
	return ImportIssue{
		Category: category,
		Index:    index,
		Code:     entities.CodeOf(err),
		Message:  err.Error(),
	}
}
