// Package domain contains core business types and interfaces.
//
// This file defines document-processing pipelines: their input fields, the
// editor form those fields round-trip through, and the synced draft.
package domain

import (
	"encoding/hex"
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline is a document-processing workflow attached to a dataset.
type Pipeline struct {
	ID        uuid.UUID
	DatasetID uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// Input Fields
// =============================================================================

// InputFieldType is the kind of value a pipeline input field collects.
type InputFieldType string

const (
	InputFieldTextInput InputFieldType = "text-input"
	InputFieldParagraph InputFieldType = "paragraph"
	InputFieldNumber    InputFieldType = "number"
	InputFieldSelect    InputFieldType = "select"
	InputFieldFile      InputFieldType = "file"
	InputFieldFileList  InputFieldType = "file-list"
	InputFieldCheckbox  InputFieldType = "checkbox"
)

// IsValid returns true if the type is one of the defined values.
func (t InputFieldType) IsValid() bool {
	switch t {
	case InputFieldTextInput, InputFieldParagraph, InputFieldNumber, InputFieldSelect,
		InputFieldFile, InputFieldFileList, InputFieldCheckbox:
		return true
	}
	return false
}

// HasMaxLength reports whether max_length applies to the type.
func (t InputFieldType) HasMaxLength() bool {
	return t == InputFieldTextInput || t == InputFieldParagraph || t == InputFieldFileList
}

const (
	// TextMaxLength bounds max_length for text-input and paragraph fields.
	TextMaxLength = 256
	// DefaultTextMaxLength is max_length for a new text field.
	DefaultTextMaxLength = 48
	// MaxFileUploadLimit bounds max_length for file-list fields.
	MaxFileUploadLimit = 10
	// MaxVariableLength bounds the variable name.
	MaxVariableLength = 30
)

var variablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// InputField is one user-supplied value a pipeline run requires.
type InputField struct {
	Type                     InputFieldType `json:"type" yaml:"type"`
	Label                    string         `json:"label" yaml:"label"`
	Variable                 string         `json:"variable" yaml:"variable"`
	MaxLength                int            `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	DefaultValue             *string        `json:"default_value,omitempty" yaml:"default_value,omitempty"`
	Required                 bool           `json:"required" yaml:"required"`
	Tooltips                 string         `json:"tooltips,omitempty" yaml:"tooltips,omitempty"`
	Options                  []string       `json:"options,omitempty" yaml:"options,omitempty"`
	Placeholder              string         `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Unit                     string         `json:"unit,omitempty" yaml:"unit,omitempty"`
	AllowedFileUploadMethods []string       `json:"allowed_file_upload_methods,omitempty" yaml:"allowed_file_upload_methods,omitempty"`
	AllowedFileTypes         []string       `json:"allowed_file_types,omitempty" yaml:"allowed_file_types,omitempty"`
	AllowedFileExtensions    []string       `json:"allowed_file_extensions,omitempty" yaml:"allowed_file_extensions,omitempty"`
}

// Validate checks a single field in isolation.
func (f InputField) Validate() error {
	ve := &ValidationError{Op: "input_field.validate"}

	switch {
	case f.Variable == "":
		ve.Add("variable", "variable name is required")
	case utf8.RuneCountInString(f.Variable) > MaxVariableLength:
		ve.Add("variable", "variable name must be at most "+strconv.Itoa(MaxVariableLength)+" characters")
	case !variablePattern.MatchString(f.Variable):
		ve.Add("variable", "variable name must start with a letter or underscore and contain only letters, digits and underscores")
	}

	if strings.TrimSpace(f.Label) == "" {
		ve.Add("label", "label is required")
	}

	switch f.Type {
	case InputFieldTextInput, InputFieldParagraph:
		if f.MaxLength < 1 || f.MaxLength > TextMaxLength {
			ve.Add("max_length", "max length must be between 1 and "+strconv.Itoa(TextMaxLength))
		}
	case InputFieldFileList:
		if f.MaxLength < 1 || f.MaxLength > MaxFileUploadLimit {
			ve.Add("max_length", "max number of uploads must be between 1 and "+strconv.Itoa(MaxFileUploadLimit))
		}
	case InputFieldSelect:
		if len(f.Options) == 0 {
			ve.Add("options", "at least one option is required")
		}
		seen := make(map[string]bool, len(f.Options))
		for _, opt := range f.Options {
			if seen[opt] {
				ve.Add("options", "options must be unique")
				break
			}
			seen[opt] = true
		}
	case InputFieldNumber, InputFieldFile, InputFieldCheckbox:
	default:
		ve.Add("type", "unknown field type")
	}

	return ve.OrNil()
}

// ValidateInputFields validates every field and requires unique variables.
func ValidateInputFields(fields []InputField) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if err := f.Validate(); err != nil {
			return err
		}
		if seen[f.Variable] {
			return NewValidationError("input_field.validate", "variable", "variable name "+strconv.Quote(f.Variable)+" is already in use")
		}
		seen[f.Variable] = true
	}
	return nil
}

// UpsertInputField replaces the field whose variable is replacing (or
// f.Variable when replacing is empty) or appends f. The input slice is not
// modified.
func UpsertInputField(fields []InputField, replacing string, f InputField) []InputField {
	if replacing == "" {
		replacing = f.Variable
	}
	out := make([]InputField, 0, len(fields)+1)
	replaced := false
	for _, existing := range fields {
		if existing.Variable == replacing {
			out = append(out, f)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, f)
	}
	return out
}

// RemoveInputField drops the field with the given variable. The second
// result is false when no field matched.
func RemoveInputField(fields []InputField, variable string) ([]InputField, bool) {
	out := make([]InputField, 0, len(fields))
	found := false
	for _, f := range fields {
		if f.Variable == variable {
			found = true
			continue
		}
		out = append(out, f)
	}
	return out, found
}

// =============================================================================
// Input Field Editor Form
// =============================================================================

// InputFieldForm is the editor's view of an InputField.
type InputFieldForm struct {
	Type                     InputFieldType
	Label                    string
	Variable                 string
	MaxLength                int
	Default                  *string
	Required                 bool
	Tooltips                 string
	Options                  []string
	Placeholder              string
	Unit                     string
	AllowedFileUploadMethods []string
	AllowedFileTypes         []string
	AllowedFileExtensions    []string

	// OriginalVariable is the variable being edited; empty when adding.
	OriginalVariable string
}

// VariableRenamed reports whether an edit changed the variable name.
func (f InputFieldForm) VariableRenamed() bool {
	return f.OriginalVariable != "" && f.OriginalVariable != f.Variable
}

// FormFromInputField maps a field onto the editor form. A nil field yields
// the template for a new field.
func FormFromInputField(f *InputField) InputFieldForm {
	if f == nil {
		return InputFieldForm{
			Type:      InputFieldTextInput,
			MaxLength: DefaultTextMaxLength,
			Required:  true,
		}
	}
	return InputFieldForm{
		Type:                     f.Type,
		Label:                    f.Label,
		Variable:                 f.Variable,
		MaxLength:                f.MaxLength,
		Default:                  f.DefaultValue,
		Required:                 f.Required,
		Tooltips:                 f.Tooltips,
		Options:                  append([]string(nil), f.Options...),
		Placeholder:              f.Placeholder,
		Unit:                     f.Unit,
		AllowedFileUploadMethods: append([]string(nil), f.AllowedFileUploadMethods...),
		AllowedFileTypes:         append([]string(nil), f.AllowedFileTypes...),
		AllowedFileExtensions:    append([]string(nil), f.AllowedFileExtensions...),
		OriginalVariable:         f.Variable,
	}
}

// InputFieldFromForm maps the editor form back onto a field.
func InputFieldFromForm(form InputFieldForm) InputField {
	return InputField{
		Type:                     form.Type,
		Label:                    form.Label,
		Variable:                 form.Variable,
		MaxLength:                form.MaxLength,
		DefaultValue:             form.Default,
		Required:                 form.Required,
		Tooltips:                 form.Tooltips,
		Options:                  form.Options,
		Placeholder:              form.Placeholder,
		Unit:                     form.Unit,
		AllowedFileUploadMethods: form.AllowedFileUploadMethods,
		AllowedFileTypes:         form.AllowedFileTypes,
		AllowedFileExtensions:    form.AllowedFileExtensions,
	}
}

// ParseInputFieldForm reads submitted form values. An empty label takes the
// variable name. Parse failures are reported as field errors.
func ParseInputFieldForm(values url.Values) (InputFieldForm, error) {
	form := InputFieldForm{
		Type:                     InputFieldType(strings.TrimSpace(values.Get("type"))),
		Label:                    strings.TrimSpace(values.Get("label")),
		Variable:                 strings.TrimSpace(values.Get("variable")),
		Required:                 parseCheckbox(values.Get("required")),
		Tooltips:                 strings.TrimSpace(values.Get("tooltips")),
		Placeholder:              strings.TrimSpace(values.Get("placeholder")),
		Unit:                     strings.TrimSpace(values.Get("unit")),
		Options:                  nonEmpty(values["options"]),
		AllowedFileUploadMethods: nonEmpty(values["allowed_file_upload_methods"]),
		AllowedFileTypes:         nonEmpty(values["allowed_file_types"]),
		AllowedFileExtensions:    nonEmpty(values["allowed_file_extensions"]),
		OriginalVariable:         strings.TrimSpace(values.Get("original_variable")),
	}
	if form.Type == "" {
		form.Type = InputFieldTextInput
	}
	if form.Label == "" {
		form.Label = form.Variable
	}
	if values.Has("default_value") {
		v := values.Get("default_value")
		form.Default = &v
	}

	if raw := strings.TrimSpace(values.Get("max_length")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return form, NewValidationError("input_field.parse", "max_length", "max length must be a number")
		}
		form.MaxLength = n
	}

	return form, nil
}

func parseCheckbox(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// =============================================================================
// Draft
// =============================================================================

// DraftNotSyncMessage is returned when a draft save is based on a stale hash.
const DraftNotSyncMessage = "draft_workflow_not_sync"

// PipelineDraft is the editable, unpublished state of a pipeline.
type PipelineDraft struct {
	PipelineID  uuid.UUID       `json:"pipeline_id"`
	Graph       json.RawMessage `json:"graph"`
	InputFields []InputField    `json:"input_fields"`
	Hash        string          `json:"hash"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of the draft.
func (d PipelineDraft) Clone() PipelineDraft {
	c := d
	c.Graph = append(json.RawMessage(nil), d.Graph...)
	if d.InputFields != nil {
		c.InputFields = make([]InputField, len(d.InputFields))
		for i, f := range d.InputFields {
			f.Options = append([]string(nil), f.Options...)
			f.AllowedFileUploadMethods = append([]string(nil), f.AllowedFileUploadMethods...)
			f.AllowedFileTypes = append([]string(nil), f.AllowedFileTypes...)
			f.AllowedFileExtensions = append([]string(nil), f.AllowedFileExtensions...)
			if f.DefaultValue != nil {
				v := *f.DefaultValue
				f.DefaultValue = &v
			}
			c.InputFields[i] = f
		}
	}
	return c
}

// DecodedGraph returns the graph as generic JSON values. An empty graph
// decodes to an empty object.
func (d PipelineDraft) DecodedGraph() (any, error) {
	if len(d.Graph) == 0 {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal(d.Graph, &v); err != nil {
		return nil, Wrap(err, EINVALID, "draft.graph", "graph is not valid JSON")
	}
	return v, nil
}

// ComputeHash returns the hex BLAKE2b-256 digest of the draft's canonical
// JSON (graph with sorted keys plus input fields). Whitespace and key order in
// the stored graph do not affect the hash.
func (d PipelineDraft) ComputeHash() (string, error) {
	graph, err := d.DecodedGraph()
	if err != nil {
		return "", err
	}
	fields := d.InputFields
	if fields == nil {
		fields = []InputField{}
	}
	canonical, err := json.Marshal(struct {
		Graph       any          `json:"graph"`
		InputFields []InputField `json:"input_fields"`
	}{graph, fields})
	if err != nil {
		return "", Internal(err, "draft.hash", "failed to encode draft")
	}
	sum := blake2b.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// SyncDraftParams contains parameters for saving a draft.
type SyncDraftParams struct {
	PipelineID  uuid.UUID
	Graph       json.RawMessage
	InputFields []InputField
	// BaseHash is the hash the client last saw. Empty skips the check.
	BaseHash string
}

// =============================================================================
// DSL Export
// =============================================================================

// DSLVersion is the version written into exported pipeline DSL.
const DSLVersion = "0.1.0"

// PipelineDSL is the portable export format of a pipeline draft.
type PipelineDSL struct {
	Version  string      `yaml:"version"`
	Kind     string      `yaml:"kind"`
	Pipeline DSLPipeline `yaml:"pipeline"`
	Workflow DSLWorkflow `yaml:"workflow"`
}

type DSLPipeline struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type DSLWorkflow struct {
	Hash        string       `yaml:"hash"`
	Graph       any          `yaml:"graph"`
	InputFields []InputField `yaml:"input_fields"`
}

// NewPipelineDSL assembles the export document for a pipeline and its draft.
func NewPipelineDSL(p Pipeline, d PipelineDraft) (PipelineDSL, error) {
	graph, err := d.DecodedGraph()
	if err != nil {
		return PipelineDSL{}, err
	}
	fields := d.InputFields
	if fields == nil {
		fields = []InputField{}
	}
	return PipelineDSL{
		Version: DSLVersion,
		Kind:    "rag_pipeline",
		Pipeline: DSLPipeline{
			ID:   p.ID.String(),
			Name: p.Name,
		},
		Workflow: DSLWorkflow{
			Hash:        d.Hash,
			Graph:       graph,
			InputFields: fields,
		},
	}, nil
}
