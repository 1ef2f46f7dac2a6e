// Package workflow holds the per-pipeline editor state: which panel is open,
// which node is selected, and the draft being edited.
//
// State values are immutable; transitions return a new State. The Store owns
// one State per pipeline and autosaves dirty drafts after a quiet period.
package workflow

import (
	"encoding/json"

	"github.com/DukeRupert/datadeck/internal/domain"
)

// Panel is the side panel shown next to the pipeline canvas.
type Panel string

const (
	PanelNone           Panel = ""
	PanelInputField     Panel = "input-field"
	PanelTestRun        Panel = "test-run"
	PanelPreview        Panel = "preview"
	PanelVersionHistory Panel = "version-history"
)

// ParsePanel validates a panel name from a request.
func ParsePanel(s string) (Panel, bool) {
	switch p := Panel(s); p {
	case PanelNone, PanelInputField, PanelTestRun, PanelPreview, PanelVersionHistory:
		return p, true
	}
	return PanelNone, false
}

// State is the editor state of one pipeline.
type State struct {
	Panel          Panel                `json:"panel"`
	SelectedNodeID string               `json:"selected_node_id"`
	Draft          domain.PipelineDraft `json:"draft"`
	Dirty          bool                 `json:"dirty"`
}

// OpenPanel shows p. Only one panel is open at a time.
func (s State) OpenPanel(p Panel) State {
	s.Draft = s.Draft.Clone()
	s.Panel = p
	return s
}

// ClosePanel hides the open panel.
func (s State) ClosePanel() State {
	return s.OpenPanel(PanelNone)
}

// SelectNode marks a canvas node as selected.
func (s State) SelectNode(id string) State {
	s.Draft = s.Draft.Clone()
	s.SelectedNodeID = id
	return s
}

// ClearSelection deselects any node.
func (s State) ClearSelection() State {
	return s.SelectNode("")
}

// WithDraft replaces the draft with one known to match storage.
func (s State) WithDraft(d domain.PipelineDraft) State {
	s.Draft = d.Clone()
	s.Dirty = false
	return s
}

// WithGraph replaces the graph and marks the draft dirty.
func (s State) WithGraph(graph json.RawMessage) State {
	s.Draft = s.Draft.Clone()
	s.Draft.Graph = append(json.RawMessage(nil), graph...)
	s.Dirty = true
	return s
}

// WithInputFields replaces the input fields and marks the draft dirty.
func (s State) WithInputFields(fields []domain.InputField) State {
	s.Draft = s.Draft.Clone()
	s.Draft.InputFields = domain.PipelineDraft{InputFields: fields}.Clone().InputFields
	s.Dirty = true
	return s
}

// MarkSaved records the hash storage returned and clears Dirty.
func (s State) MarkSaved(hash string) State {
	s.Draft = s.Draft.Clone()
	s.Draft.Hash = hash
	s.Dirty = false
	return s
}
