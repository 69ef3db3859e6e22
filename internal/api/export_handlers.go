// Package api provides HTTP handlers for report export.
package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"

	"github.com/personabolt/personabolt/internal/export"
	"github.com/personabolt/personabolt/internal/models"
)

// exportReportHandler renders the full report as a PDF download (GET /export).
func (s *Server) exportReportHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.exportReportHandler: processing export request", "method", r.Method)
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	snap := s.session.Snapshot()
	if snap.Input == nil || len(snap.Personas) == 0 {
		slog.Warn("Server.exportReportHandler: nothing to export yet")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Nothing to export yet, generate personas first"))
		return
	}

	// Render into a buffer first so a failure never produces a broken download.
	var buf bytes.Buffer
	if err := export.WriteReport(&buf, *snap.Input, snap.Personas, snap.Strategies, snap.Language); err != nil {
		slog.Error("Server.exportReportHandler: report rendering failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Report rendering failed"))
		return
	}

	filename := export.ReportFilename(snap.Input.Name)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Server.exportReportHandler: failed to write PDF response", "error", err)
	}
	slog.Info("Server.exportReportHandler: report exported", "filename", filename, "bytes", buf.Len())
}

// exportPersonaHandler renders a single persona profile as a PDF download
// (GET /export/personas/{id}).
func (s *Server) exportPersonaHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/export/personas/"), "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	snap := s.session.Snapshot()
	var persona *models.Persona
	for _, p := range snap.Personas {
		if p.ID == id {
			persona = &p
			break
		}
	}
	if persona == nil {
		slog.Warn("Server.exportPersonaHandler: persona not found", "id", id)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Persona not found"))
		return
	}

	var buf bytes.Buffer
	if err := export.WritePersonaProfile(&buf, *persona, snap.Language); err != nil {
		slog.Error("Server.exportPersonaHandler: profile rendering failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Profile rendering failed"))
		return
	}

	filename := export.PersonaFilename(persona.Name)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Server.exportPersonaHandler: failed to write PDF response", "error", err)
	}
}
