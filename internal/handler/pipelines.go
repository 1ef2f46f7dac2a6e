package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/datadeck/internal/domain"
	"github.com/DukeRupert/datadeck/internal/service"
	"github.com/DukeRupert/datadeck/internal/workflow"
	"github.com/google/uuid"
)

// maxDraftBytes bounds a draft sync request body.
const maxDraftBytes = 4 << 20

// PipelineHandler serves the pipeline editor API: draft sync, editor state,
// input fields and DSL export.
type PipelineHandler struct {
	pipelines service.PipelineService
	store     *workflow.Store
	logger    *slog.Logger
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(pipelines service.PipelineService, store *workflow.Store, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{
		pipelines: pipelines,
		store:     store,
		logger:    logger,
	}
}

// RegisterRoutes registers the pipeline routes. protect is the CSRF
// middleware.
//
// Routes:
// - GET    /pipelines/{id}/draft                   -> GetDraft
// - POST   /pipelines/{id}/draft                   -> SyncDraft
// - PATCH  /pipelines/{id}/state                   -> UpdateState
// - POST   /pipelines/{id}/input-fields            -> SaveInputField
// - DELETE /pipelines/{id}/input-fields/{variable} -> DeleteInputField
// - GET    /pipelines/{id}/dsl                     -> ExportDSL
func (h *PipelineHandler) RegisterRoutes(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	mux.Handle("GET /pipelines/{id}/draft", protect(http.HandlerFunc(h.GetDraft)))
	mux.Handle("POST /pipelines/{id}/draft", protect(http.HandlerFunc(h.SyncDraft)))
	mux.Handle("PATCH /pipelines/{id}/state", protect(http.HandlerFunc(h.UpdateState)))
	mux.Handle("POST /pipelines/{id}/input-fields", protect(http.HandlerFunc(h.SaveInputField)))
	mux.Handle("DELETE /pipelines/{id}/input-fields/{variable}", protect(http.HandlerFunc(h.DeleteInputField)))
	mux.HandleFunc("GET /pipelines/{id}/dsl", h.ExportDSL)
}

// load returns the editor state of the pipeline in the path.
func (h *PipelineHandler) load(w http.ResponseWriter, r *http.Request) (uuid.UUID, workflow.State, bool) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return uuid.Nil, workflow.State{}, false
	}
	st, err := h.store.Load(r.Context(), id, h.pipelines.GetDraft)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return uuid.Nil, workflow.State{}, false
	}
	return id, st, true
}

// =============================================================================
// Draft
// =============================================================================

// GetDraft returns the draft together with the editor state.
func (h *PipelineHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	_, st, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// syncDraftRequest is the body of a draft sync.
type syncDraftRequest struct {
	Graph       json.RawMessage     `json:"graph"`
	InputFields []domain.InputField `json:"input_fields"`
	Hash        string              `json:"hash"`
}

// SyncDraft stores the submitted draft. A hash that no longer matches the
// stored draft is answered with 409 and draft_workflow_not_sync.
func (h *PipelineHandler) SyncDraft(w http.ResponseWriter, r *http.Request) {
	const op = "pipeline.sync_draft"

	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req syncDraftRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDraftBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid draft body"))
		return
	}

	draft, err := h.pipelines.SyncDraft(r.Context(), domain.SyncDraftParams{
		PipelineID:  id,
		Graph:       req.Graph,
		InputFields: req.InputFields,
		BaseHash:    req.Hash,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.store.Update(id, func(s workflow.State) workflow.State {
		return s.WithDraft(draft)
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"result":     "success",
		"hash":       draft.Hash,
		"updated_at": draft.UpdatedAt,
	})
}

// =============================================================================
// Editor State
// =============================================================================

// stateRequest changes the editor state. Absent fields are left alone; an
// empty selected_node_id clears the selection.
type stateRequest struct {
	Panel          *string         `json:"panel"`
	SelectedNodeID *string         `json:"selected_node_id"`
	Graph          json.RawMessage `json:"graph"`
}

// UpdateState applies panel, selection and graph changes. Graph changes mark
// the draft dirty and schedule an autosave.
func (h *PipelineHandler) UpdateState(w http.ResponseWriter, r *http.Request) {
	const op = "pipeline.update_state"

	id, _, ok := h.load(w, r)
	if !ok {
		return
	}

	var req stateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDraftBytes)).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid state body"))
		return
	}

	var panel workflow.Panel
	if req.Panel != nil {
		p, valid := workflow.ParsePanel(*req.Panel)
		if !valid {
			ErrorResponse(w, r, h.logger, domain.Invalid(op, fmt.Sprintf("unknown panel %q", *req.Panel)))
			return
		}
		panel = p
	}
	if len(req.Graph) > 0 && !json.Valid(req.Graph) {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "graph is not valid JSON"))
		return
	}

	st := h.store.Update(id, func(s workflow.State) workflow.State {
		if req.Panel != nil {
			s = s.OpenPanel(panel)
		}
		if req.SelectedNodeID != nil {
			s = s.SelectNode(*req.SelectedNodeID)
		}
		if len(req.Graph) > 0 {
			s = s.WithGraph(req.Graph)
		}
		return s
	})

	writeJSON(w, http.StatusOK, st)
}

// =============================================================================
// Input Fields
// =============================================================================

// SaveInputField adds or replaces an input field from the editor form.
// original_variable names the field being edited; renaming is allowed as long
// as the new variable is not taken.
func (h *PipelineHandler) SaveInputField(w http.ResponseWriter, r *http.Request) {
	const op = "pipeline.save_input_field"

	id, _, ok := h.load(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid form submission"))
		return
	}

	form, err := domain.ParseInputFieldForm(r.PostForm)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	field := domain.InputFieldFromForm(form)
	if err := field.Validate(); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var validateErr error
	st := h.store.Update(id, func(s workflow.State) workflow.State {
		fields := domain.UpsertInputField(s.Draft.InputFields, form.OriginalVariable, field)
		if validateErr = domain.ValidateInputFields(fields); validateErr != nil {
			return s
		}
		return s.WithInputFields(fields).OpenPanel(workflow.PanelNone)
	})
	if validateErr != nil {
		ErrorResponse(w, r, h.logger, validateErr)
		return
	}

	h.logger.Debug("input field saved", "pipeline_id", id, "variable", field.Variable)
	writeJSON(w, http.StatusOK, st)
}

// DeleteInputField removes the input field with the variable in the path.
func (h *PipelineHandler) DeleteInputField(w http.ResponseWriter, r *http.Request) {
	const op = "pipeline.delete_input_field"

	id, _, ok := h.load(w, r)
	if !ok {
		return
	}
	variable := r.PathValue("variable")

	found := false
	st := h.store.Update(id, func(s workflow.State) workflow.State {
		var fields []domain.InputField
		fields, found = domain.RemoveInputField(s.Draft.InputFields, variable)
		if !found {
			return s
		}
		return s.WithInputFields(fields)
	})
	if !found {
		ErrorResponse(w, r, h.logger, domain.NotFound(op, "input field", variable))
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// =============================================================================
// DSL Export
// =============================================================================

// ExportDSL downloads the stored pipeline as YAML.
func (h *PipelineHandler) ExportDSL(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out, err := h.pipelines.ExportDSL(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="pipeline-%s.yml"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
