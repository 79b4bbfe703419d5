package handlers

import (
	"time"

	"github.com/asakaida/kazoku/internal/entities"
	"github.com/asakaida/kazoku/internal/services/relationship"
	"github.com/asakaida/kazoku/internal/services/transfer"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// === Shared Helper Functions for all handlers ===

// requestFields returns the top-level fields of a request body
func requestFields(req *structpb.Struct) (map[string]*structpb.Value, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request body is required")
	}
	return req.GetFields(), nil
}

// stringField reads an optional string field. Absent and null read as "".
func stringField(fields map[string]*structpb.Value, name string) (string, error) {
	v, ok := fields[name]
	if !ok || v == nil {
		return "", nil
	}
	switch v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return "", nil
	case *structpb.Value_StringValue:
		return v.GetStringValue(), nil
	default:
		return "", status.Errorf(codes.InvalidArgument, "field %q must be a string", name)
	}
}

// stringListField reads an optional list of strings
func stringListField(fields map[string]*structpb.Value, name string) ([]string, error) {
	v, ok := fields[name]
	if !ok || v == nil {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	list, isList := v.GetKind().(*structpb.Value_ListValue)
	if !isList {
		return nil, status.Errorf(codes.InvalidArgument, "field %q must be a list of strings", name)
	}

	values := list.ListValue.GetValues()
	out := make([]string, 0, len(values))
	for i, item := range values {
		s, isString := item.GetKind().(*structpb.Value_StringValue)
		if !isString {
			return nil, status.Errorf(codes.InvalidArgument, "field %q: item %d must be a string", name, i)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

// okResponse builds a successful response body
func okResponse(fields map[string]interface{}) (*structpb.Struct, error) {
	body := map[string]interface{}{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	return newBody(body)
}

// errorResponse builds the uniform failure body for an engine error.
// Expected failures travel in the body; the RPC itself still succeeds.
func errorResponse(err error) (*structpb.Struct, error) {
	return newBody(map[string]interface{}{
		"success": false,
		"error":   errorToMap(err),
	})
}

func newBody(m map[string]interface{}) (*structpb.Struct, error) {
	body, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return body, nil
}

func errorToMap(err error) map[string]interface{} {
	return map[string]interface{}{
		"code":    string(entities.CodeOf(err)),
		"message": err.Error(),
	}
}

func edgeToMap(e *entities.Edge) map[string]interface{} {
	if e == nil {
		return nil
	}
	m := map[string]interface{}{
		"id":               e.ID,
		"fromMemberId":     e.FromMemberID,
		"toMemberId":       e.ToMemberID,
		"relationshipKind": e.Kind.String(),
	}
	if e.SiblingType != entities.SiblingUnspecified {
		m["siblingType"] = string(e.SiblingType)
	}
	if !e.CreatedAt.IsZero() {
		m["createdAt"] = e.CreatedAt.UTC().Format(time.RFC3339)
	}
	return m
}

func edgesToList(edges []*entities.Edge) []interface{} {
	out := make([]interface{}, 0, len(edges))
	for _, e := range edges {
		if e != nil {
			out = append(out, edgeToMap(e))
		}
	}
	return out
}

func recordToMap(r *entities.RelationshipRecord) map[string]interface{} {
	m := edgeToMap(&r.Edge)
	m["fromMemberName"] = r.FromMemberName
	m["toMemberName"] = r.ToMemberName
	return m
}

func recordsToList(records []*entities.RelationshipRecord) []interface{} {
	out := make([]interface{}, 0, len(records))
	for _, r := range records {
		out = append(out, recordToMap(r))
	}
	return out
}

func createResultToMap(res *relationship.CreateResult) map[string]interface{} {
	return map[string]interface{}{
		"relationshipId": res.RelationshipID,
		"corrected":      res.Corrected,
		"actualKind":     res.ActualKind.String(),
		"edges":          edgesToList(res.Edges[:]),
	}
}

func issuesToList(issues []transfer.ImportIssue) []interface{} {
	out := make([]interface{}, 0, len(issues))
	for _, issue := range issues {
		out = append(out, map[string]interface{}{
			"category": issue.Category,
			"index":    issue.Index,
			"code":     string(issue.Code),
			"message":  issue.Message,
		})
	}
	return out
}

func reportToMap(r *transfer.ImportReport) map[string]interface{} {
	return map[string]interface{}{
		"membersImported": r.MembersImported,
		"importedCount":   r.ImportedCount,
		"skippedCount":    r.SkippedCount,
		"errors":          issuesToList(r.Errors),
		"warnings":        issuesToList(r.Warnings),
	}
}
