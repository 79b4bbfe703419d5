package relationship

import (
	"context"

	"github.com/asakaida/kazoku/internal/entities"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ParentOutcome is the result of one branch of AddBothParents
type ParentOutcome struct {
	ParentID string
	Result   *CreateResult
	Err      error
}

// ParentsResult aggregates both branches of AddBothParents.
// One parent recorded and the other rejected is a valid, reported outcome.
type ParentsResult struct {
	ChildID  string
	Outcomes [2]ParentOutcome
}

// Succeeded returns how many parents were recorded
func (r *ParentsResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Complete reports whether both parents were recorded
func (r *ParentsResult) Complete() bool {
	return r.Succeeded() == len(r.Outcomes)
}

// Partial reports whether exactly one parent was recorded
func (r *ParentsResult) Partial() bool {
	return r.Succeeded() == 1
}

// AddBothParents records two parents for a child concurrently. Each branch is
// an independent SmartCreate; a failure in one neither cancels nor rolls back
// the other.
func (s *GraphStore) AddBothParents(ctx context.Context, childID string, parentIDs [2]string) *ParentsResult {
	result := &ParentsResult{ChildID: childID}

	// Branches report through result.Outcomes and never return an error,
	// so the group never cancels a sibling branch.
	var g errgroup.Group
	for i, parentID := range parentIDs {
		result.Outcomes[i].ParentID = parentID
		g.Go(func() error {
			res, err := s.SmartCreate(ctx, parentID, childID, entities.KindParent)
			result.Outcomes[i].Result = res
			result.Outcomes[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	if result.Partial() {
		fields := []zap.Field{zap.String("child_id", childID)}
		for _, o := range result.Outcomes {
			if o.Err != nil {
				fields = append(fields, zap.String("failed_parent_id", o.ParentID), zap.Error(o.Err))
			}
		}
		s.logger.Warn("only one parent recorded", fields...)
	}

	return result
}
