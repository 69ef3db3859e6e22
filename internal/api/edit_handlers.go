// Package api provides HTTP handlers for the draft-edit lifecycle.
package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/personabolt/personabolt/internal/edit"
	"github.com/personabolt/personabolt/internal/models"
)

// editorRegistry holds the open edit sessions, one per entity. Sessions are
// discarded wholesale when the entities they refer to are regenerated or reset.
type editorRegistry struct {
	mu         sync.Mutex
	personas   map[string]*edit.Editor[models.Persona]
	strategies map[int]*edit.Editor[models.StrategyRecommendation]
}

func newEditorRegistry() *editorRegistry {
	return &editorRegistry{
		personas:   make(map[string]*edit.Editor[models.Persona]),
		strategies: make(map[int]*edit.Editor[models.StrategyRecommendation]),
	}
}

func (reg *editorRegistry) persona(id string) *edit.Editor[models.Persona] {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	e, ok := reg.personas[id]
	if !ok {
		e = &edit.Editor[models.Persona]{}
		reg.personas[id] = e
	}
	return e
}

func (reg *editorRegistry) strategy(index int) *edit.Editor[models.StrategyRecommendation] {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	e, ok := reg.strategies[index]
	if !ok {
		e = &edit.Editor[models.StrategyRecommendation]{}
		reg.strategies[index] = e
	}
	return e
}

func (reg *editorRegistry) reset() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.personas = make(map[string]*edit.Editor[models.Persona])
	reg.strategies = make(map[int]*edit.Editor[models.StrategyRecommendation])
}

func (reg *editorRegistry) resetStrategies() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.strategies = make(map[int]*edit.Editor[models.StrategyRecommendation])
}

// entityPatch converts an entity into the map form the patch layer consumes.
func entityPatch(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal entity: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("entity is not an object: %w", err)
	}
	return out, nil
}

// listField extracts a string-list field from an entity by its JSON name.
func listField(v any, field string) ([]string, error) {
	m, err := entityPatch(v)
	if err != nil {
		return nil, err
	}
	raw, ok := m[field]
	if !ok {
		return nil, fmt.Errorf("no field named %q", field)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q is not a list", field)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("field %q is not a string list", field)
		}
		out = append(out, s)
	}
	return out, nil
}

// listRequest is the wire shape of a list sub-operation on a draft. Either a
// single indexed replacement or a wholesale newline-delimited re-entry.
type listRequest struct {
	Field string  `json:"field" validate:"required"`
	Index *int    `json:"index"`
	Value string  `json:"value"`
	Text  *string `json:"text"`
}

// writeDraft returns the open draft of an edit session.
func writeDraft[T any](w http.ResponseWriter, editor *edit.Editor[T]) {
	draft, err := editor.Draft()
	if err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(draft))
}

// mutateDraft merges a partial patch into an open draft.
func mutateDraft[T any](w http.ResponseWriter, r *http.Request, editor *edit.Editor[T]) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := editor.Mutate(patch); err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeDraft(w, editor)
}

// listOp applies a list sub-operation to an open draft: one indexed
// replacement, or a wholesale re-entry from newline-delimited text.
func listOp[T any](s *Server, w http.ResponseWriter, r *http.Request, editor *edit.Editor[T]) {
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("A list field name is required"))
		return
	}
	var err error
	switch {
	case req.Text != nil:
		err = editor.SetListFromText(req.Field, *req.Text)
	case req.Index != nil:
		var fieldErr error
		err = editor.SetListItem(req.Field, *req.Index, req.Value, func(draft T) []string {
			list, ferr := listField(draft, req.Field)
			if ferr != nil {
				fieldErr = ferr
			}
			return list
		})
		if err == nil {
			err = fieldErr
		}
	default:
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Either an index or replacement text is required"))
		return
	}
	if err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeDraft(w, editor)
}

// personaEditRouter dispatches /personas/{id}/edit and its sub-resources.
func (s *Server) personaEditRouter(w http.ResponseWriter, r *http.Request, id string, rest []string) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	editor := s.editors.persona(id)
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodPost:
			s.beginPersonaEdit(w, editor, id)
		case http.MethodGet:
			writeDraft(w, editor)
		case http.MethodPatch:
			mutateDraft(w, r, editor)
		default:
			w.Header().Set("Allow", "GET, POST, PATCH")
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	switch rest[0] {
	case "commit":
		s.commitPersonaEdit(w, editor, id)
	case "cancel":
		editor.Cancel()
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Edit discarded", nil))
	case "list":
		listOp(s, w, r, editor)
	case "moodboard":
		s.moodBoardHandler(w, r, editor)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) beginPersonaEdit(w http.ResponseWriter, editor *edit.Editor[models.Persona], id string) {
	var current *models.Persona
	for _, p := range s.session.Snapshot().Personas {
		if p.ID == id {
			current = &p
			break
		}
	}
	if current == nil {
		slog.Warn("Server.beginPersonaEdit: persona not found", "id", id)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Persona not found"))
		return
	}
	if err := editor.Begin(*current); err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	slog.Debug("Server.beginPersonaEdit: edit session opened", "id", id)
	writeJSONResponse(w, http.StatusOK, models.Success(*current))
}

func (s *Server) commitPersonaEdit(w http.ResponseWriter, editor *edit.Editor[models.Persona], id string) {
	var applied bool
	err := editor.Commit(func(draft models.Persona) error {
		patch, err := entityPatch(draft)
		if err != nil {
			return err
		}
		applied, err = s.session.UpdatePersona(id, patch)
		return err
	})
	if err != nil {
		slog.Warn("Server.commitPersonaEdit: commit rejected", "id", id, "error", err)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	if !applied {
		// The persona was removed while the edit was open; committing is a no-op.
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Persona no longer exists, edit discarded", s.session.Snapshot()))
		return
	}
	slog.Info("Server.commitPersonaEdit: edit committed", "id", id)
	writeJSONResponse(w, http.StatusOK, models.Success(s.session.Snapshot()))
}

// moodBoardHandler attaches an uploaded image to the draft's mood board
// (POST /personas/{id}/edit/moodboard). The payload is raw base64; content
// sniffing rejects non-images, and the board is capped.
func (s *Server) moodBoardHandler(w http.ResponseWriter, r *http.Request, editor *edit.Editor[models.Persona]) {
	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	raw, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Image payload is not valid base64"))
		return
	}
	dataURL, err := edit.DataURL(raw)
	if err != nil {
		slog.Warn("Server.moodBoardHandler: attachment rejected", "error", err)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	draft, err := editor.Draft()
	if err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	if len(draft.MoodBoard) >= models.MaxMoodBoardImages {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(fmt.Sprintf("Mood board is limited to %d images", models.MaxMoodBoardImages)))
		return
	}
	if err := editor.Mutate(map[string]any{"moodBoard": append(draft.MoodBoard, dataURL)}); err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeDraft(w, editor)
}

// strategyEditRouter dispatches /strategies/{index}/edit and its sub-resources.
func (s *Server) strategyEditRouter(w http.ResponseWriter, r *http.Request, index int, rest []string) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	editor := s.editors.strategy(index)
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodPost:
			s.beginStrategyEdit(w, editor, index)
		case http.MethodGet:
			writeDraft(w, editor)
		case http.MethodPatch:
			mutateDraft(w, r, editor)
		default:
			w.Header().Set("Allow", "GET, POST, PATCH")
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	switch rest[0] {
	case "commit":
		s.commitStrategyEdit(w, editor, index)
	case "cancel":
		editor.Cancel()
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Edit discarded", nil))
	case "list":
		listOp(s, w, r, editor)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) beginStrategyEdit(w http.ResponseWriter, editor *edit.Editor[models.StrategyRecommendation], index int) {
	strategies := s.session.Snapshot().Strategies
	if index < 0 || index >= len(strategies) {
		slog.Warn("Server.beginStrategyEdit: index out of range", "index", index)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Strategy not found"))
		return
	}
	if err := editor.Begin(strategies[index]); err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	slog.Debug("Server.beginStrategyEdit: edit session opened", "index", index)
	writeJSONResponse(w, http.StatusOK, models.Success(strategies[index]))
}

func (s *Server) commitStrategyEdit(w http.ResponseWriter, editor *edit.Editor[models.StrategyRecommendation], index int) {
	var applied bool
	err := editor.Commit(func(draft models.StrategyRecommendation) error {
		patch, err := entityPatch(draft)
		if err != nil {
			return err
		}
		applied, err = s.session.UpdateStrategy(index, patch)
		return err
	})
	if err != nil {
		slog.Warn("Server.commitStrategyEdit: commit rejected", "index", index, "error", err)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	if !applied {
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Strategy no longer exists, edit discarded", s.session.Snapshot()))
		return
	}
	slog.Info("Server.commitStrategyEdit: edit committed", "index", index)
	writeJSONResponse(w, http.StatusOK, models.Success(s.session.Snapshot()))
}
