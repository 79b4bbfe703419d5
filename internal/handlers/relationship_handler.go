package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/asakaida/kazoku/internal/entities"
	"github.com/asakaida/kazoku/internal/infrastructure/logger"
	"github.com/asakaida/kazoku/internal/repositories"
	"github.com/asakaida/kazoku/internal/services/relationship"
	"github.com/asakaida/kazoku/internal/services/transfer"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"
)

// RelationshipHandler handles all RelationshipService gRPC requests.
// This includes direction resolution, pair mutations, listing and bulk transfer.
type RelationshipHandler struct {
	store    relationship.GraphStoreInterface
	transfer transfer.ServiceInterface
	members  repositories.MemberDirectory // Display names for ResolveDirection; optional
	logger   *zap.Logger

	UnimplementedRelationshipServiceServer
}

// NewRelationshipHandler creates a new RelationshipHandler
func NewRelationshipHandler(
	store relationship.GraphStoreInterface,
	transferService transfer.ServiceInterface,
	members repositories.MemberDirectory,
	l *zap.Logger,
) *RelationshipHandler {
	return &RelationshipHandler{
		store:    store,
		transfer: transferService,
		members:  members,
		logger:   logger.OrNop(l),
	}
}

// ResolveDirection handles the ResolveDirection RPC
func (h *RelationshipHandler) ResolveDirection(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, err := requestFields(req)
	if err != nil {
		return nil, err
	}
	current, err := stringField(fields, "currentMemberId")
	if err != nil {
		return nil, err
	}
	selected, err := stringField(fields, "selectedMemberId")
	if err != nil {
		return nil, err
	}
	rawKind, err := stringField(fields, "relationshipKind")
	if err != nil {
		return nil, err
	}

	kind, err := entities.ParseRelationKind(rawKind)
	if err != nil {
		return errorResponse(err)
	}
	dir, err := relationship.ResolveDirection(current, selected, kind)
	if err != nil {
		return errorResponse(err)
	}

	return okResponse(map[string]interface{}{
		"direction": map[string]interface{}{
			"fromMemberId":       dir.FromMemberID,
			"toMemberId":         dir.ToMemberID,
			"relationshipKind":   dir.Kind.String(),
			"currentMemberRole":  dir.CurrentMemberRole.String(),
			"selectedMemberRole": dir.SelectedMemberRole.String(),
			"description":        dir.Describe(h.displayName(ctx, current), h.displayName(ctx, selected)),
		},
	})
}

// displayName falls back to the member ID when no name can be looked up
func (h *RelationshipHandler) displayName(ctx context.Context, id string) string {
	if h.members == nil {
		return id
	}
	m, err := h.members.GetByID(ctx, id)
	if err != nil {
		return id
	}
	return m.DisplayName()
}

// SmartCreate handles the SmartCreate RPC
func (h *RelationshipHandler) SmartCreate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.create(ctx, req, h.store.SmartCreate)
}

// PlainCreate handles the PlainCreate RPC
func (h *RelationshipHandler) PlainCreate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.create(ctx, req, h.store.PlainCreate)
}

type createFunc func(ctx context.Context, from, to string, kind entities.RelationKind, opts ...relationship.CreateOption) (*relationship.CreateResult, error)

func (h *RelationshipHandler) create(ctx context.Context, req *structpb.Struct, create createFunc) (*structpb.Struct, error) {
	fields, err := requestFields(req)
	if err != nil {
		return nil, err
	}
	from, err := stringField(fields, "fromMemberId")
	if err != nil {
		return nil, err
	}
	to, err := stringField(fields, "toMemberId")
	if err != nil {
		return nil, err
	}
	rawKind, err := stringField(fields, "relationshipKind")
	if err != nil {
		return nil, err
	}
	siblingType, err := stringField(fields, "siblingType")
	if err != nil {
		return nil, err
	}

	kind, err := entities.ParseRelationKind(rawKind)
	if err != nil {
		return errorResponse(err)
	}

	var opts []relationship.CreateOption
	if siblingType = strings.ToLower(strings.TrimSpace(siblingType)); siblingType != "" {
		opts = append(opts, relationship.WithSiblingType(entities.SiblingType(siblingType)))
	}

	res, err := create(ctx, from, to, kind, opts...)
	if err != nil {
		h.logFailure("create relationship failed", err)
		return errorResponse(err)
	}

	return okResponse(map[string]interface{}{
		"relationship": createResultToMap(res),
	})
}

// Delete handles the Delete RPC
func (h *RelationshipHandler) Delete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, err := requestFields(req)
	if err != nil {
		return nil, err
	}
	id, err := stringField(fields, "relationshipId")
	if err != nil {
		return nil, err
	}

	res, err := h.store.Delete(ctx, id)
	if err != nil {
		h.logFailure("delete relationship failed", err)
		return errorResponse(err)
	}

	body := map[string]interface{}{
		"relationshipId": res.RelationshipID,
		"removed":        edgesToList(res.Removed),
		"partial":        res.Partial,
	}
	if res.Warning != nil {
		body["warning"] = errorToMap(res.Warning)
	}
	return okResponse(body)
}

// GetAll handles the GetAll RPC. An optional memberId narrows the listing
// to edges starting at that member.
func (h *RelationshipHandler) GetAll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, err := requestFields(req)
	if err != nil {
		return nil, err
	}
	memberID, err := stringField(fields, "memberId")
	if err != nil {
		return nil, err
	}

	var records []*entities.RelationshipRecord
	if memberID != "" {
		records, err = h.store.ListForMember(ctx, memberID)
	} else {
		records, err = h.store.GetAll(ctx)
	}
	if err != nil {
		h.logFailure("list relationships failed", err)
		return errorResponse(err)
	}

	return okResponse(map[string]interface{}{
		"relationships": recordsToList(records),
	})
}

// AddBothParents handles the AddBothParents RPC.
// success is true when at least one parent was recorded; complete and
// partial tell the two cases apart.
func (h *RelationshipHandler) AddBothParents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, err := requestFields(req)
	if err != nil {
		return nil, err
	}
	childID, err := stringField(fields, "childId")
	if err != nil {
		return nil, err
	}
	parentIDs, err := stringListField(fields, "parentIds")
	if err != nil {
		return nil, err
	}
	if len(parentIDs) != 2 {
		return errorResponse(entities.NewValidationError("add_both_parents",
			fmt.Sprintf("exactly two parent IDs are required, got %d", len(parentIDs))))
	}

	res := h.store.AddBothParents(ctx, childID, [2]string{parentIDs[0], parentIDs[1]})

	outcomes := make([]interface{}, 0, len(res.Outcomes))
	var firstErr error
	for _, o := range res.Outcomes {
		outcome := map[string]interface{}{
			"parentId": o.ParentID,
			"success":  o.Err == nil,
		}
		if o.Err != nil {
			outcome["error"] = errorToMap(o.Err)
			if firstErr == nil {
				firstErr = o.Err
			}
		} else {
			outcome["relationship"] = createResultToMap(o.Result)
		}
		outcomes = append(outcomes, outcome)
	}

	body := map[string]interface{}{
		"success":  res.Succeeded() > 0,
		"childId":  res.ChildID,
		"complete": res.Complete(),
		"partial":  res.Partial(),
		"outcomes": outcomes,
	}
	if res.Succeeded() == 0 {
		body["error"] = errorToMap(firstErr)
	}
	return newBody(body)
}

func (h *RelationshipHandler) logFailure(msg string, err error) {
	if entities.CodeOf(err) == entities.CodeTransport {
		h.logger.Error(msg, zap.Error(err))
		return
	}
	h.logger.Debug(msg, zap.Error(err))
}

var _ RelationshipServiceServer = (*RelationshipHandler)(nil)
