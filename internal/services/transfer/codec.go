package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a transfer file encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat validates a user-supplied format name
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want yaml or json)", s)
	}
}

// FormatFromPath guesses the format from a file extension, defaulting to YAML
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Document is the on-disk shape of a transfer file
type Document struct {
	Members       []MemberRecord       `yaml:"members,omitempty" json:"members,omitempty"`
	Relationships []RelationshipRecord `yaml:"relationships" json:"relationships"`
}

// MemberRecord is a member row on disk
type MemberRecord struct {
	Ref       string `yaml:"ref,omitempty" json:"ref,omitempty"`
	FirstName string `yaml:"firstName" json:"firstName"`
	LastName  string `yaml:"lastName" json:"lastName"`
	BirthDate string `yaml:"birthDate,omitempty" json:"birthDate,omitempty"`
	DeathDate string `yaml:"deathDate,omitempty" json:"deathDate,omitempty"`
}

// NameRecord is a by-name member reference on disk
type NameRecord struct {
	FirstName string `yaml:"firstName" json:"firstName"`
	LastName  string `yaml:"lastName" json:"lastName"`
}

// RelationshipRecord is a relationship row on disk. Each end is given either
// as an ID (fromMemberId) or as a name (fromMember); the ID wins when both are set.
type RelationshipRecord struct {
	FromMemberID     string      `yaml:"fromMemberId,omitempty" json:"fromMemberId,omitempty"`
	ToMemberID       string      `yaml:"toMemberId,omitempty" json:"toMemberId,omitempty"`
	FromMember       *NameRecord `yaml:"fromMember,omitempty" json:"fromMember,omitempty"`
	ToMember         *NameRecord `yaml:"toMember,omitempty" json:"toMember,omitempty"`
	RelationshipKind string      `yaml:"relationshipKind" json:"relationshipKind"`
	SiblingType      string      `yaml:"siblingType,omitempty" json:"siblingType,omitempty"`
	FromMemberName   string      `yaml:"fromMemberName,omitempty" json:"fromMemberName,omitempty"`
	ToMemberName     string      `yaml:"toMemberName,omitempty" json:"toMemberName,omitempty"`
}

// Decode reads a transfer document
func Decode(r io.Reader, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return &doc, nil
}

// Encode writes a transfer document
func Encode(w io.Writer, format Format, doc *Document) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	return nil
}

// Bundle converts the document into import descriptors. Each reference is
// resolved to a tagged MemberRef here; a row with no usable reference keeps
// a nil ref and fails on its own during import.
func (d *Document) Bundle() *Bundle {
	b := &Bundle{
		Members:       make([]MemberDescriptor, 0, len(d.Members)),
		Relationships: make([]RelationshipDescriptor, 0, len(d.Relationships)),
	}
	for _, m := range d.Members {
		b.Members = append(b.Members, MemberDescriptor{
			Ref:       m.Ref,
			FirstName: m.FirstName,
			LastName:  m.LastName,
			BirthDate: m.BirthDate,
			DeathDate: m.DeathDate,
		})
	}
	for _, r := range d.Relationships {
		b.Relationships = append(b.Relationships, RelationshipDescriptor{
			From:        refFromRecord(r.FromMemberID, r.FromMember),
			To:          refFromRecord(r.ToMemberID, r.ToMember),
			Kind:        r.RelationshipKind,
			SiblingType: r.SiblingType,
		})
	}
	return b
}

func refFromRecord(id string, name *NameRecord) MemberRef {
	if id = strings.TrimSpace(id); id != "" {
		return ByID(id)
	}
	if name != nil && (name.FirstName != "" || name.LastName != "") {
		return ByName(name.FirstName, name.LastName)
	}
	return nil
}

// NewExportDocument builds a document from exported relationships
func NewExportDocument(records []ExportRecord) *Document {
	doc := &Document{Relationships: make([]RelationshipRecord, 0, len(records))}
	for _, r := range records {
		doc.Relationships = append(doc.Relationships, RelationshipRecord{
			FromMemberID:     r.FromMemberID,
			ToMemberID:       r.ToMemberID,
			RelationshipKind: r.RelationshipKind.String(),
			SiblingType:      string(r.SiblingType),
			FromMemberName:   r.FromMemberName,
			ToMemberName:     r.ToMemberName,
		})
	}
	return doc
}
