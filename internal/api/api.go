// Package api provides HTTP handlers and the main API server logic for
// PersonaBolt.
//
// It exposes RESTful endpoints for the wizard session: submitting the product
// brief, reviewing and editing generated personas, generating and editing
// strategy recommendations, and exporting the report as a PDF. The API
// integrates the flow, generation, edit and export modules.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/personabolt/personabolt/internal/edit"
	"github.com/personabolt/personabolt/internal/flow"
	"github.com/personabolt/personabolt/internal/genai"
	"github.com/personabolt/personabolt/internal/generation"
	"github.com/personabolt/personabolt/internal/images"
	"github.com/personabolt/personabolt/internal/models"
)

// DefaultAddr is the default listen address for the API server.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server hosts the wizard session and its edit sessions behind HTTP handlers.
type Server struct {
	session  *flow.Session
	validate *validator.Validate
	addr     string

	editors *editorRegistry
}

// NewServer creates an API server around an existing wizard session.
func NewServer(session *flow.Session, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{
		session:  session,
		validate: validator.New(),
		addr:     cfg.Addr,
		editors:  newEditorRegistry(),
	}
}

// Handler returns the route table as an http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/session", s.sessionHandler)
	mux.HandleFunc("/session/language", s.languageHandler)
	mux.HandleFunc("/session/reset/request", s.resetRequestHandler)
	mux.HandleFunc("/session/reset/cancel", s.resetCancelHandler)
	mux.HandleFunc("/session/reset/confirm", s.resetConfirmHandler)
	mux.HandleFunc("/session/navigate", s.navigateHandler)
	mux.HandleFunc("/i18n", s.i18nHandler)
	mux.HandleFunc("/personas/generate", s.generatePersonasHandler)
	mux.HandleFunc("/personas/", s.personaRouter)
	mux.HandleFunc("/strategies/generate", s.generateStrategiesHandler)
	mux.HandleFunc("/strategies/", s.strategyRouter)
	mux.HandleFunc("/product/links", s.addLinkHandler)
	mux.HandleFunc("/product/links/", s.removeLinkHandler)
	mux.HandleFunc("/product/documents", s.addDocumentHandler)
	mux.HandleFunc("/product/documents/", s.removeDocumentHandler)
	mux.HandleFunc("/export", s.exportReportHandler)
	mux.HandleFunc("/export/personas/", s.exportPersonaHandler)
	return mux
}

// ListenAndServe starts serving on the configured address. Blocks until the
// listener fails.
func (s *Server) ListenAndServe() error {
	slog.Info("Server.ListenAndServe: API server starting", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

// Run wires the full stack (text generation, image search, session, server)
// and serves until the listener fails.
func Run(genaiOpts []genai.Option, imageOpts []images.Option, apiOpts []Option) error {
	textClient, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to create generation client: %w", err)
	}
	imageClient := images.NewClient(imageOpts...)
	gen := generation.NewClient(textClient, imageClient)
	session := flow.NewSession(gen)
	server := NewServer(session, apiOpts...)
	return server.ListenAndServe()
}

// statusForError maps a domain error to the HTTP status its handler reports.
// Precondition violations are client errors, concurrent generation is a
// conflict, and provider failures surface as bad gateway.
func statusForError(err error) int {
	switch {
	case errors.Is(err, flow.ErrGenerationInProgress):
		return http.StatusConflict
	case errors.Is(err, flow.ErrInvalidTransition),
		errors.Is(err, flow.ErrNoProductInput),
		errors.Is(err, flow.ErrEmptySelection),
		errors.Is(err, flow.ErrStepDataMissing),
		errors.Is(err, flow.ErrResetNotRequested),
		errors.Is(err, flow.ErrUnknownPersona),
		errors.Is(err, models.ErrDuplicateLink),
		errors.Is(err, models.ErrMissingProductName),
		errors.Is(err, models.ErrMissingDescription),
		errors.Is(err, models.ErrMissingTargetAudience),
		errors.Is(err, models.ErrMissingPersonaName),
		errors.Is(err, models.ErrNegativePersonaAge),
		errors.Is(err, models.ErrMissingStrategyTitle),
		errors.Is(err, models.ErrInvalidPriority),
		errors.Is(err, edit.ErrNotEditing),
		errors.Is(err, edit.ErrAlreadyEditing),
		errors.Is(err, edit.ErrNotAnImage):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
