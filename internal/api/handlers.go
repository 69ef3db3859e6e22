// Package api provides HTTP handlers for PersonaBolt endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/personabolt/personabolt/internal/i18n"
	"github.com/personabolt/personabolt/internal/models"
)

// productRequest is the wire shape of a product brief submission.
type productRequest struct {
	Name           string            `json:"name" validate:"required"`
	Category       string            `json:"category"`
	Description    string            `json:"description" validate:"required"`
	TargetAudience string            `json:"targetAudience" validate:"required"`
	KeyFeatures    string            `json:"keyFeatures"`
	PainPoints     string            `json:"painPoints"`
	Documents      []models.Document `json:"documents" validate:"omitempty,dive"`
	Links          []string          `json:"links" validate:"omitempty,dive,url"`
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	slog.Warn("Server.requireMethod: method not allowed", "method", r.Method, "path", r.URL.Path)
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}

// sessionHandler returns the full session snapshot (GET /session).
func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.sessionHandler: processing session request", "method", r.Method)
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.session.Snapshot()))
}

// languageHandler switches the display language (POST /session/language).
func (s *Server) languageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Language models.Language `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.languageHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := s.session.SetLanguage(req.Language); err != nil {
		slog.Warn("Server.languageHandler: language rejected", "language", req.Language)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.session.Snapshot()))
}

// i18nHandler returns the string table for the active language (GET /i18n).
func (s *Server) i18nHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(i18n.Table(s.session.Language())))
}

// generatePersonasHandler submits the product brief and generates the persona
// set (POST /personas/generate).
func (s *Server) generatePersonasHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.generatePersonasHandler: processing generation request", "method", r.Method)
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.generatePersonasHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		slog.Warn("Server.generatePersonasHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	input := models.ProductInput{
		Name:           req.Name,
		Category:       req.Category,
		Description:    req.Description,
		TargetAudience: req.TargetAudience,
		KeyFeatures:    req.KeyFeatures,
		PainPoints:     req.PainPoints,
		Documents:      req.Documents,
		Links:          req.Links,
	}
	if err := s.session.SubmitProduct(r.Context(), input); err != nil {
		s.writeGenerationError(w, err, "Persona generation failed")
		return
	}
	// Any open edit sessions refer to discarded entities now.
	s.editors.reset()
	writeJSONResponse(w, http.StatusOK, models.Success(s.session.Snapshot()))
}

// generateStrategiesHandler generates recommendations from the selected
// personas (POST /strategies/generate).
func (s *Server) generateStrategiesHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.generateStrategiesHandler: processing generation request", "method", r.Method)
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := s.session.ProceedToStrategy(r.Context()); err != nil {
		s.writeGenerationError(w, err, "Strategy generation failed")
		return
	}
	s.editors.resetStrategies()
	writeJSONResponse(w, http.StatusOK, models.Success(s.session.Snapshot()))
}

// writeGenerationError distinguishes precondition violations, malformed
// provider output and plain provider failures.
func (s *Server) writeGenerationError(w http.ResponseWriter, err error, fallback string) {
	status := statusForError(err)
	switch {
	case status == http.StatusConflict:
		slog.Warn("Server.writeGenerationError: generation already in progress")
		writeJSONResponse(w, status, models.Error("A generation request is already in progress"))
	case status == http.StatusBadRequest:
		slog.Warn("Server.writeGenerationError: precondition failed", "error", err)
		writeJSONResponse(w, status, models.Error(err.Error()))
	case errors.Is(err, models.ErrMalformedResponse):
		slog.Error("Server.writeGenerationError: provider returned malformed output", "error", err)
		writeJSONResponse(w, http.StatusBadGateway, models.Error("Generation service returned an unusable response, please try again"))
	default:
		slog.Error("Server.writeGenerationError: generation failed", "error", err)
		writeJSONResponse(w, http.StatusBadGateway, models.Error(fallback))
	}
}

// personaRouter dispatches /personas/{id} and its sub-resources.
func (s *Server) personaRouter(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/personas/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]
	switch {
	case len(parts) == 1:
		s.patchPersonaHandler(w, r, id)
	case len(parts) == 2 && parts[1] == "selection":
		s.toggleSelectionHandler(w, r, id)
	case parts[1] == "edit":
		s.personaEditRouter(w, r, id, parts[2:])
	default:
		http.NotFound(w, r)
	}
}

// patchPersonaHandler applies a direct partial patch (PATCH /personas/{id}).
func (s *Server) patchPersonaHandler(w http.ResponseWriter, r *http.Request, id string) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPatch) {
		return
	}
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		slog.Warn("Server.patchPersonaHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	applied, err := s.session.UpdatePersona(id, patch)
	if err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	if !applied {
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Persona no longer exists, update ignored", s.session.Snapshot()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.session.Snapshot()))
}

// toggleSelectionHandler toggles persona selection (POST /personas/{id}/selection).
func (s *Server) toggleSelectionHandler(w http.ResponseWriter, r *http.Request, id string) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	selected, err := s.session.ToggleSelection(id)
	if err != nil {
		slog.Warn("Server.toggleSelectionHandler: toggle rejected", "id", id, "error", err)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	slog.Debug("Server.toggleSelectionHandler: selection toggled", "id", id, "selected", selected)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]any{
		"id":       id,
		"selected": selected,
	}))
}

// strategyRouter dispatches /strategies/{index} and its sub-resources.
func (s *Server) strategyRouter(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/strategies/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	index, err := strconv.Atoi(parts[0])
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid strategy index"))
		return
	}
	switch {
	case len(parts) == 1:
		s.patchStrategyHandler(w, r, index)
	case parts[1] == "edit":
		s.strategyEditRouter(w, r, index, parts[2:])
	default:
		http.NotFound(w, r)
	}
}

// patchStrategyHandler applies a direct partial patch (PATCH /strategies/{index}).
func (s *Server) patchStrategyHandler(w http.ResponseWriter, r *http.Request, index int) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPatch) {
		return
	}
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		slog.Warn("Server.patchStrategyHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	applied, err := s.session.UpdateStrategy(index, patch)
	if err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	if !applied {
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Strategy no longer exists, update ignored", s.session.Snapshot()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.session.Snapshot()))
}

// navigateHandler routes a step-indicator click (POST /session/navigate).
func (s *Server) navigateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Step models.Step `json:"step"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if !models.IsValidStep(req.Step) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Unknown step"))
		return
	}
	if err := s.session.NavigateTo(req.Step); err != nil {
		slog.Warn("Server.navigateHandler: navigation rejected", "step", req.Step, "error", err)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.session.Snapshot()))
}

// resetRequestHandler raises the reset confirmation gate (POST /session/reset/request).
func (s *Server) resetRequestHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := s.session.RequestReturnToInput(); err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.session.Snapshot()))
}

// resetCancelHandler dismisses the confirmation gate (POST /session/reset/cancel).
func (s *Server) resetCancelHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	s.session.CancelReturnToInput()
	writeJSONResponse(w, http.StatusOK, models.Success(s.session.Snapshot()))
}

// resetConfirmHandler performs the confirmed reset (POST /session/reset/confirm).
func (s *Server) resetConfirmHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := s.session.ConfirmReturnToInput(); err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	s.editors.reset()
	slog.Info("Server.resetConfirmHandler: session reset confirmed")
	writeJSONResponse(w, http.StatusOK, models.Success(s.session.Snapshot()))
}

// addLinkHandler attaches a reference link to the brief (POST /product/links).
func (s *Server) addLinkHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		URL string `json:"url" validate:"required,url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		slog.Warn("Server.addLinkHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("A valid URL is required"))
		return
	}
	if err := s.session.AddLink(req.URL); err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.session.Snapshot()))
}

// removeLinkHandler removes a reference link (DELETE /product/links/{index}).
func (s *Server) removeLinkHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodDelete) {
		return
	}
	index, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/product/links/"))
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid link index"))
		return
	}
	if err := s.session.RemoveLink(index); err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.session.Snapshot()))
}

// addDocumentHandler attaches document metadata to the brief (POST /product/documents).
func (s *Server) addDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var doc models.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if doc.Name == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Document name is required"))
		return
	}
	if err := s.session.AddDocument(doc); err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.session.Snapshot()))
}

// removeDocumentHandler removes an attachment (DELETE /product/documents/{index}).
func (s *Server) removeDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodDelete) {
		return
	}
	index, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/product/documents/"))
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid document index"))
		return
	}
	if err := s.session.RemoveDocument(index); err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.session.Snapshot()))
}
