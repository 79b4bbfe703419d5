package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/asakaida/kazoku/internal/services/transfer"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// === Bulk Transfer ===

// Import handles the Import RPC. The body is either a transfer document
// itself ({members, relationships}) or a serialized file in "document"
// with its "format" (yaml by default).
func (h *RelationshipHandler) Import(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, err := requestFields(req)
	if err != nil {
		return nil, err
	}
	raw, err := stringField(fields, "document")
	if err != nil {
		return nil, err
	}

	var doc *transfer.Document
	if raw != "" {
		formatName, err := stringField(fields, "format")
		if err != nil {
			return nil, err
		}
		if formatName == "" {
			formatName = string(transfer.FormatYAML)
		}
		format, err := transfer.ParseFormat(formatName)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%v", err)
		}
		doc, err = transfer.Decode(strings.NewReader(raw), format)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid document: %v", err)
		}
	} else {
		data, err := json.Marshal(req.AsMap())
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid document: %v", err)
		}
		doc, err = transfer.Decode(bytes.NewReader(data), transfer.FormatJSON)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid document: %v", err)
		}
	}

	report := h.transfer.Import(ctx, doc.Bundle())
	h.logger.Info("import finished",
		zap.Int("members_imported", report.MembersImported),
		zap.Int("imported", report.ImportedCount),
		zap.Int("skipped", report.SkippedCount),
		zap.Int("errors", len(report.Errors)),
		zap.Int("warnings", len(report.Warnings)),
	)

	return okResponse(map[string]interface{}{
		"report": reportToMap(report),
	})
}

// Export handles the Export RPC. When "format" is given the serialized
// file is returned in "document" as well.
func (h *RelationshipHandler) Export(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, err := requestFields(req)
	if err != nil {
		return nil, err
	}
	formatName, err := stringField(fields, "format")
	if err != nil {
		return nil, err
	}
	var format transfer.Format
	if formatName != "" {
		if format, err = transfer.ParseFormat(formatName); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%v", err)
		}
	}

	records, err := h.transfer.Export(ctx)
	if err != nil {
		h.logFailure("export failed", err)
		return errorResponse(err)
	}
	doc := transfer.NewExportDocument(records)

	var buf bytes.Buffer
	if err := transfer.Encode(&buf, transfer.FormatJSON, doc); err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &body); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}

	if format != "" {
		buf.Reset()
		if err := transfer.Encode(&buf, format, doc); err != nil {
			return nil, status.Errorf(codes.Internal, "%v", err)
		}
		body["document"] = buf.String()
		body["format"] = string(format)
	}

	return okResponse(body)
}
