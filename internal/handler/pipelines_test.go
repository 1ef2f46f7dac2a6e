package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/DukeRupert/datadeck/internal/domain"
	"github.com/DukeRupert/datadeck/internal/workflow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipelineHandler(t *testing.T) (*PipelineHandler, *fakePipelineService, *workflow.Store) {
	t.Helper()
	svc := &fakePipelineService{pipelineID: uuid.New()}
	svc.stored = domain.PipelineDraft{
		PipelineID: svc.pipelineID,
		Graph:      json.RawMessage(`{"nodes":[]}`),
		InputFields: []domain.InputField{
			{Type: domain.InputFieldTextInput, Label: "Question", Variable: "question", MaxLength: 48},
			{Type: domain.InputFieldNumber, Label: "Top K", Variable: "top_k"},
		},
	}
	hash, err := svc.stored.ComputeHash()
	require.NoError(t, err)
	svc.stored.Hash = hash

	store := newTestStore(svc)
	t.Cleanup(func() { store.Forget(svc.pipelineID) })
	return NewPipelineHandler(svc, store, testLogger()), svc, store
}

func pipelineRequest(method, target string, id uuid.UUID, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.SetPathValue("id", id.String())
	return req
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) workflow.State {
	t.Helper()
	var st workflow.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

// =============================================================================
// Draft
// =============================================================================

func TestPipelineGetDraft(t *testing.T) {
	h, svc, _ := newPipelineHandler(t)

	rec := httptest.NewRecorder()
	h.GetDraft(rec, pipelineRequest(http.MethodGet, "/pipelines/x/draft", svc.pipelineID, ""))

	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeState(t, rec)
	assert.Equal(t, svc.stored.Hash, st.Draft.Hash)
	assert.Len(t, st.Draft.InputFields, 2)
	assert.False(t, st.Dirty)
}

func TestPipelineGetDraft_UnknownPipeline(t *testing.T) {
	h, _, _ := newPipelineHandler(t)

	rec := httptest.NewRecorder()
	h.GetDraft(rec, pipelineRequest(http.MethodGet, "/pipelines/x/draft", uuid.New(), ""))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPipelineSyncDraft(t *testing.T) {
	h, svc, store := newPipelineHandler(t)
	body := `{"graph":{"nodes":[{"id":"start"}]},"input_fields":[],"hash":"` + svc.stored.Hash + `"}`

	rec := httptest.NewRecorder()
	h.SyncDraft(rec, pipelineRequest(http.MethodPost, "/pipelines/x/draft", svc.pipelineID, body))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Result string `json:"result"`
		Hash   string `json:"hash"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Result)
	assert.Equal(t, svc.stored.Hash, resp.Hash)

	st, ok := store.Get(svc.pipelineID)
	require.True(t, ok)
	assert.Equal(t, resp.Hash, st.Draft.Hash)
	assert.False(t, st.Dirty)
}

func TestPipelineSyncDraft_StaleHash(t *testing.T) {
	h, svc, _ := newPipelineHandler(t)
	body := `{"graph":{},"input_fields":[],"hash":"stale"}`

	req := pipelineRequest(http.MethodPost, "/pipelines/x/draft", svc.pipelineID, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.SyncDraft(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp JSONError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.ECONFLICT, resp.Error.Code)
	assert.Equal(t, domain.DraftNotSyncMessage, resp.Error.Message)
}

func TestPipelineSyncDraft_UnknownField(t *testing.T) {
	h, svc, _ := newPipelineHandler(t)

	rec := httptest.NewRecorder()
	h.SyncDraft(rec, pipelineRequest(http.MethodPost, "/pipelines/x/draft", svc.pipelineID, `{"graph":{},"environment":{}}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.synced)
}

// =============================================================================
// Editor State
// =============================================================================

func TestPipelineUpdateState(t *testing.T) {
	h, svc, _ := newPipelineHandler(t)
	body := `{"panel":"preview","selected_node_id":"llm-1","graph":{"nodes":[{"id":"llm-1"}]}}`

	rec := httptest.NewRecorder()
	h.UpdateState(rec, pipelineRequest(http.MethodPatch, "/pipelines/x/state", svc.pipelineID, body))

	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeState(t, rec)
	assert.Equal(t, workflow.PanelPreview, st.Panel)
	assert.Equal(t, "llm-1", st.SelectedNodeID)
	assert.JSONEq(t, `{"nodes":[{"id":"llm-1"}]}`, string(st.Draft.Graph))
	assert.True(t, st.Dirty)
}

func TestPipelineUpdateState_OnlyPanel(t *testing.T) {
	h, svc, _ := newPipelineHandler(t)

	rec := httptest.NewRecorder()
	h.UpdateState(rec, pipelineRequest(http.MethodPatch, "/pipelines/x/state", svc.pipelineID, `{"panel":"test-run"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeState(t, rec)
	assert.Equal(t, workflow.PanelTestRun, st.Panel)
	assert.False(t, st.Dirty)
}

func TestPipelineUpdateState_UnknownPanel(t *testing.T) {
	h, svc, _ := newPipelineHandler(t)

	rec := httptest.NewRecorder()
	h.UpdateState(rec, pipelineRequest(http.MethodPatch, "/pipelines/x/state", svc.pipelineID, `{"panel":"settings"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// Input Fields
// =============================================================================

func inputFieldRequest(id uuid.UUID, form url.Values) *http.Request {
	req := pipelineRequest(http.MethodPost, "/pipelines/x/input-fields", id, form.Encode())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestPipelineSaveInputField_Adds(t *testing.T) {
	h, svc, _ := newPipelineHandler(t)

	rec := httptest.NewRecorder()
	h.SaveInputField(rec, inputFieldRequest(svc.pipelineID, url.Values{
		"type":       {"text-input"},
		"variable":   {"customer_name"},
		"label":      {"Customer name"},
		"max_length": {"48"},
		"required":   {"on"},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeState(t, rec)
	require.Len(t, st.Draft.InputFields, 3)
	added := st.Draft.InputFields[2]
	assert.Equal(t, "customer_name", added.Variable)
	assert.True(t, added.Required)
	assert.Equal(t, workflow.PanelNone, st.Panel)
	assert.True(t, st.Dirty)
}

func TestPipelineSaveInputField_RenameOntoExisting(t *testing.T) {
	h, svc, store := newPipelineHandler(t)

	rec := httptest.NewRecorder()
	h.SaveInputField(rec, inputFieldRequest(svc.pipelineID, url.Values{
		"type":              {"text-input"},
		"variable":          {"top_k"},
		"original_variable": {"question"},
		"max_length":        {"48"},
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already in use")

	st, ok := store.Get(svc.pipelineID)
	require.True(t, ok)
	assert.Equal(t, "question", st.Draft.InputFields[0].Variable)
	assert.False(t, st.Dirty)
}

func TestPipelineSaveInputField_Invalid(t *testing.T) {
	h, svc, _ := newPipelineHandler(t)

	rec := httptest.NewRecorder()
	h.SaveInputField(rec, inputFieldRequest(svc.pipelineID, url.Values{
		"type":       {"text-input"},
		"variable":   {"9lives"},
		"max_length": {"48"},
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPipelineDeleteInputField(t *testing.T) {
	h, svc, _ := newPipelineHandler(t)

	req := pipelineRequest(http.MethodDelete, "/pipelines/x/input-fields/question", svc.pipelineID, "")
	req.SetPathValue("variable", "question")
	rec := httptest.NewRecorder()
	h.DeleteInputField(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeState(t, rec)
	require.Len(t, st.Draft.InputFields, 1)
	assert.Equal(t, "top_k", st.Draft.InputFields[0].Variable)
}

func TestPipelineDeleteInputField_Missing(t *testing.T) {
	h, svc, _ := newPipelineHandler(t)

	req := pipelineRequest(http.MethodDelete, "/pipelines/x/input-fields/nope", svc.pipelineID, "")
	req.SetPathValue("variable", "nope")
	rec := httptest.NewRecorder()
	h.DeleteInputField(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// DSL Export
// =============================================================================

func TestPipelineExportDSL(t *testing.T) {
	h, svc, _ := newPipelineHandler(t)
	svc.dsl = []byte("version: 0.1.0\nkind: pipeline\n")

	rec := httptest.NewRecorder()
	h.ExportDSL(rec, pipelineRequest(http.MethodGet, "/pipelines/x/dsl", svc.pipelineID, ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-yaml; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="pipeline-`+svc.pipelineID.String()+`.yml"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, string(svc.dsl), rec.Body.String())
}
