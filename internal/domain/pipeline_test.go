package domain

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func validField() InputField {
	return InputField{
		Type:      InputFieldTextInput,
		Label:     "Test",
		Variable:  "test_var",
		MaxLength: 48,
		Required:  true,
	}
}

func TestInputField_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(f *InputField)
		wantField string
	}{
		{"valid", func(f *InputField) {}, ""},
		{"empty variable", func(f *InputField) { f.Variable = "" }, "variable"},
		{"variable too long", func(f *InputField) { f.Variable = strings.Repeat("a", 31) }, "variable"},
		{"variable at limit", func(f *InputField) { f.Variable = strings.Repeat("a", 30) }, ""},
		{"variable starts with digit", func(f *InputField) { f.Variable = "123var" }, "variable"},
		{"variable with dash", func(f *InputField) { f.Variable = "var-name" }, "variable"},
		{"variable with leading underscore", func(f *InputField) { f.Variable = "_valid_123" }, ""},
		{"empty label", func(f *InputField) { f.Label = "" }, "label"},
		{"max length zero", func(f *InputField) { f.MaxLength = 0 }, "max_length"},
		{"max length over limit", func(f *InputField) { f.MaxLength = TextMaxLength + 1 }, "max_length"},
		{"paragraph within limit", func(f *InputField) { f.Type = InputFieldParagraph; f.MaxLength = 100 }, ""},
		{"number ignores max length", func(f *InputField) { f.Type = InputFieldNumber; f.MaxLength = 0; f.Unit = "kg" }, ""},
		{"select without options", func(f *InputField) { f.Type = InputFieldSelect }, "options"},
		{"select with duplicate options", func(f *InputField) { f.Type = InputFieldSelect; f.Options = []string{"a", "a"} }, "options"},
		{"select with options", func(f *InputField) { f.Type = InputFieldSelect; f.Options = []string{"a", "b"} }, ""},
		{"file", func(f *InputField) { f.Type = InputFieldFile; f.MaxLength = 0 }, ""},
		{"file list over limit", func(f *InputField) { f.Type = InputFieldFileList; f.MaxLength = 11 }, "max_length"},
		{"file list at limit", func(f *InputField) { f.Type = InputFieldFileList; f.MaxLength = 10 }, ""},
		{"unknown type", func(f *InputField) { f.Type = "slider" }, "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validField()
			tt.mutate(&f)

			err := f.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.wantField)
			assert.Equal(t, EINVALID, ErrorCode(err))
		})
	}
}

func TestValidateInputFields_UniqueVariables(t *testing.T) {
	a := validField()
	b := validField()
	b.Label = "Other"

	err := ValidateInputFields([]InputField{a, b})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields["variable"], "already in use")

	b.Variable = "other_var"
	assert.NoError(t, ValidateInputFields([]InputField{a, b}))
}

func TestUpsertAndRemoveInputField(t *testing.T) {
	a := validField()
	b := validField()
	b.Variable = "b"
	fields := []InputField{a, b}

	renamed := a
	renamed.Variable = "renamed"
	got := UpsertInputField(fields, "test_var", renamed)
	require.Len(t, got, 2)
	assert.Equal(t, "renamed", got[0].Variable)
	assert.Equal(t, "test_var", fields[0].Variable, "input slice untouched")

	c := validField()
	c.Variable = "c"
	got = UpsertInputField(fields, "", c)
	assert.Len(t, got, 3)

	got, ok := RemoveInputField(fields, "b")
	assert.True(t, ok)
	assert.Len(t, got, 1)

	_, ok = RemoveInputField(fields, "missing")
	assert.False(t, ok)
}

func TestFormFromInputField(t *testing.T) {
	t.Run("nil yields template", func(t *testing.T) {
		form := FormFromInputField(nil)

		assert.Equal(t, InputFieldTextInput, form.Type)
		assert.Empty(t, form.Variable)
		assert.Empty(t, form.Label)
		assert.True(t, form.Required)
		assert.Nil(t, form.Default)
	})

	t.Run("copies all fields", func(t *testing.T) {
		f := InputField{
			Type:                     InputFieldFileList,
			Label:                    "Files",
			Variable:                 "files",
			MaxLength:                5,
			DefaultValue:             strPtr(""),
			Tooltips:                 "tooltip",
			Placeholder:              "placeholder",
			Unit:                     "kg",
			Options:                  []string{"a", "b"},
			AllowedFileUploadMethods: []string{"local_file", "remote_url"},
			AllowedFileTypes:         []string{"image", "document"},
			AllowedFileExtensions:    []string{".jpg", ".pdf"},
		}

		form := FormFromInputField(&f)

		assert.Equal(t, 5, form.MaxLength)
		require.NotNil(t, form.Default)
		assert.Equal(t, "", *form.Default, "empty default is kept")
		assert.Equal(t, []string{"image", "document"}, form.AllowedFileTypes)
		assert.Equal(t, "files", form.OriginalVariable)
		assert.False(t, form.VariableRenamed())

		back := InputFieldFromForm(form)
		assert.Equal(t, f, back)
	})
}

func TestParseInputFieldForm(t *testing.T) {
	values := url.Values{
		"type":              {"select"},
		"variable":          {" colour "},
		"label":             {""},
		"required":          {"on"},
		"options":           {"red", " ", "green"},
		"max_length":        {"12"},
		"original_variable": {"color"},
	}

	form, err := ParseInputFieldForm(values)
	require.NoError(t, err)

	assert.Equal(t, InputFieldSelect, form.Type)
	assert.Equal(t, "colour", form.Variable)
	assert.Equal(t, "colour", form.Label, "label falls back to variable")
	assert.True(t, form.Required)
	assert.Equal(t, []string{"red", "green"}, form.Options)
	assert.Equal(t, 12, form.MaxLength)
	assert.Nil(t, form.Default)
	assert.True(t, form.VariableRenamed())

	_, err = ParseInputFieldForm(url.Values{"max_length": {"lots"}})
	assert.Equal(t, EINVALID, ErrorCode(err))
}

func TestPipelineDraft_ComputeHash(t *testing.T) {
	a := PipelineDraft{Graph: json.RawMessage(`{"nodes":[1,2],"edges":[]}`)}
	b := PipelineDraft{Graph: json.RawMessage("{ \"edges\": [],\n \"nodes\": [1, 2] }")}

	ha, err := a.ComputeHash()
	require.NoError(t, err)
	hb, err := b.ComputeHash()
	require.NoError(t, err)

	assert.Len(t, ha, 64)
	assert.Equal(t, ha, hb, "formatting and key order do not change the hash")

	c := a
	c.InputFields = []InputField{validField()}
	hc, err := c.ComputeHash()
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)

	empty, err := PipelineDraft{}.ComputeHash()
	require.NoError(t, err)
	braces, err := PipelineDraft{Graph: json.RawMessage(`{}`)}.ComputeHash()
	require.NoError(t, err)
	assert.Equal(t, empty, braces)

	_, err = PipelineDraft{Graph: json.RawMessage(`{nope`)}.ComputeHash()
	assert.Equal(t, EINVALID, ErrorCode(err))
}

func TestPipelineDraft_Clone(t *testing.T) {
	f := validField()
	f.Options = []string{"x"}
	f.DefaultValue = strPtr("d")
	d := PipelineDraft{Graph: json.RawMessage(`{}`), InputFields: []InputField{f}}

	c := d.Clone()
	c.Graph[0] = '['
	c.InputFields[0].Options[0] = "y"
	*c.InputFields[0].DefaultValue = "changed"

	assert.Equal(t, "{}", string(d.Graph))
	assert.Equal(t, "x", d.InputFields[0].Options[0])
	assert.Equal(t, "d", *d.InputFields[0].DefaultValue)
}

func TestNewPipelineDSL(t *testing.T) {
	p := Pipeline{ID: uuid.New(), Name: "Ingest"}
	d := PipelineDraft{Graph: json.RawMessage(`{"nodes":[]}`), Hash: "abc"}

	dsl, err := NewPipelineDSL(p, d)
	require.NoError(t, err)

	assert.Equal(t, DSLVersion, dsl.Version)
	assert.Equal(t, "rag_pipeline", dsl.Kind)
	assert.Equal(t, p.ID.String(), dsl.Pipeline.ID)
	assert.Equal(t, "abc", dsl.Workflow.Hash)
	assert.NotNil(t, dsl.Workflow.InputFields)
}
