// Package flow owns the wizard session state machine.
//
// A Session moves through the steps input → personas → strategy. Forward
// movement happens only through generation calls; backward movement is a pure
// transition, except returning to the input step, which discards generated
// data and is gated behind an explicit confirmation. All session state is
// mutated exclusively through the named transition methods here, and each
// transition either fully applies or, on failure, applies nothing.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/personabolt/personabolt/internal/models"
)

// Generator is the generation client boundary the session depends on.
type Generator interface {
	// GeneratePersonas produces the persona set for a product brief.
	GeneratePersonas(ctx context.Context, input models.ProductInput) ([]models.Persona, error)

	// GenerateStrategies produces recommendations from the brief and the
	// selected persona subset.
	GenerateStrategies(ctx context.Context, input models.ProductInput, personas []models.Persona) ([]models.StrategyRecommendation, error)
}

// Error variables for transition preconditions.
var (
	ErrGenerationInProgress = errors.New("a generation call is already in progress")
	ErrInvalidTransition    = errors.New("transition not legal from current step")
	ErrNoProductInput       = errors.New("no product brief available")
	ErrEmptySelection       = errors.New("no personas selected")
	ErrStepDataMissing      = errors.New("target step has no backing data")
	ErrResetNotRequested    = errors.New("no reset confirmation is pending")
	ErrUnknownPersona       = errors.New("persona not in session")
)

// Session is the aggregate wizard state. It is safe for concurrent use; the
// generation calls run outside the lock with the loading flag acting as the
// single-writer guard.
type Session struct {
	mu           sync.Mutex
	step         models.Step
	input        *models.ProductInput
	personas     []models.Persona
	selected     map[string]struct{}
	strategies   []models.StrategyRecommendation
	loading      bool
	pendingReset bool
	language     models.Language

	gen Generator
}

// NewSession creates a session at the input step with no generated data.
func NewSession(gen Generator) *Session {
	return &Session{
		step:     models.StepInput,
		selected: make(map[string]struct{}),
		language: models.LanguageEnglish,
		gen:      gen,
	}
}

// Snapshot is a read-only copy of the session state handed to the UI surface
// and the report exporter.
type Snapshot struct {
	Step         models.Step                     `json:"currentStep"`
	Input        *models.ProductInput            `json:"productInput"`
	Personas     []models.Persona                `json:"generatedPersonas"`
	Selected     []string                        `json:"selectedPersonas"`
	Strategies   []models.StrategyRecommendation `json:"strategies"`
	Loading      bool                            `json:"isLoading"`
	PendingReset bool                            `json:"pendingReset"`
	Language     models.Language                 `json:"language"`
}

// Snapshot returns a consistent copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	// Slices are always non-nil so the snapshot marshals as [] rather than null.
	snap := Snapshot{
		Step:         s.step,
		Personas:     append(make([]models.Persona, 0, len(s.personas)), s.personas...),
		Selected:     s.selectedIDsLocked(),
		Strategies:   append(make([]models.StrategyRecommendation, 0, len(s.strategies)), s.strategies...),
		Loading:      s.loading,
		PendingReset: s.pendingReset,
		Language:     s.language,
	}
	if s.input != nil {
		input := *s.input
		input.Documents = append([]models.Document(nil), s.input.Documents...)
		input.Links = append([]string(nil), s.input.Links...)
		snap.Input = &input
	}
	return snap
}

func (s *Session) selectedIDsLocked() []string {
	ids := make([]string, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SubmitProduct stores the product brief and generates the persona set.
// Legal only from the input step. On generation failure the brief is kept for
// re-submission but no generated state changes and the step stays at input.
func (s *Session) SubmitProduct(ctx context.Context, input models.ProductInput) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrGenerationInProgress
	}
	if s.step != models.StepInput {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	if err := input.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	// A brief submitted without attachments inherits any already staged on
	// the session, so attaching and then submitting the form fields works.
	if s.input != nil {
		if input.Documents == nil {
			input.Documents = s.input.Documents
		}
		if input.Links == nil {
			input.Links = s.input.Links
		}
	}
	s.input = &input
	s.loading = true
	s.mu.Unlock()

	slog.Debug("Session.SubmitProduct: generating personas", "product", input.Name)
	personas, err := s.gen.GeneratePersonas(ctx, input)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		if errors.Is(err, models.ErrMalformedResponse) {
			slog.Error("Session.SubmitProduct: provider returned malformed personas", "error", err)
		} else {
			slog.Error("Session.SubmitProduct: persona generation failed", "error", err)
		}
		return err
	}

	s.personas = personas
	s.selected = make(map[string]struct{})
	s.step = models.StepPersonas
	slog.Info("Session.SubmitProduct: personas ready", "count", len(personas), "product", input.Name)
	return nil
}

// ProceedToStrategy generates strategy recommendations from the selected
// persona subset. Legal only from the personas step with a non-empty
// selection; the generator is never invoked when preconditions fail.
func (s *Session) ProceedToStrategy(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrGenerationInProgress
	}
	if s.step != models.StepPersonas {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	if s.input == nil {
		s.mu.Unlock()
		return ErrNoProductInput
	}
	if len(s.selected) == 0 {
		s.mu.Unlock()
		return ErrEmptySelection
	}
	input := *s.input
	subset := make([]models.Persona, 0, len(s.selected))
	for _, p := range s.personas {
		if _, ok := s.selected[p.ID]; ok {
			subset = append(subset, p)
		}
	}
	s.loading = true
	s.mu.Unlock()

	slog.Debug("Session.ProceedToStrategy: generating strategies", "personas", len(subset))
	strategies, err := s.gen.GenerateStrategies(ctx, input, subset)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		if errors.Is(err, models.ErrMalformedResponse) {
			slog.Error("Session.ProceedToStrategy: provider returned malformed strategies", "error", err)
		} else {
			slog.Error("Session.ProceedToStrategy: strategy generation failed", "error", err)
		}
		return err
	}

	s.strategies = strategies
	s.step = models.StepStrategy
	slog.Info("Session.ProceedToStrategy: strategies ready", "count", len(strategies))
	return nil
}

// BackToPersonas returns from the strategy step to the persona step. Pure
// transition: generated data is untouched, so the strategy step stays
// reachable through NavigateTo.
func (s *Session) BackToPersonas() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return ErrGenerationInProgress
	}
	if s.step != models.StepStrategy {
		return ErrInvalidTransition
	}
	s.step = models.StepPersonas
	return nil
}

// NavigateTo routes a direct step-indicator click through the transition
// rules: input raises the reset confirmation gate, other steps are reachable
// only when their backing data exists.
func (s *Session) NavigateTo(step models.Step) error {
	switch step {
	case models.StepInput:
		return s.RequestReturnToInput()
	case models.StepPersonas:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.loading {
			return ErrGenerationInProgress
		}
		if len(s.personas) == 0 {
			return ErrStepDataMissing
		}
		s.step = models.StepPersonas
		return nil
	case models.StepStrategy:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.loading {
			return ErrGenerationInProgress
		}
		if len(s.strategies) == 0 {
			return ErrStepDataMissing
		}
		s.step = models.StepStrategy
		return nil
	default:
		return ErrInvalidTransition
	}
}

// RequestReturnToInput raises the confirmation gate for the destructive
// return to the input step. A no-op when already there.
func (s *Session) RequestReturnToInput() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return ErrGenerationInProgress
	}
	if s.step == models.StepInput {
		return nil
	}
	s.pendingReset = true
	return nil
}

// CancelReturnToInput dismisses the confirmation gate; all data and the
// current step are untouched.
func (s *Session) CancelReturnToInput() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingReset = false
}

// ConfirmReturnToInput performs the confirmed reset: generated personas, the
// selection set and strategies are discarded and the step returns to input.
// The product brief and language survive so the user can re-edit and resubmit.
func (s *Session) ConfirmReturnToInput() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pendingReset {
		return ErrResetNotRequested
	}
	s.personas = nil
	s.selected = make(map[string]struct{})
	s.strategies = nil
	s.step = models.StepInput
	s.pendingReset = false
	slog.Info("Session.ConfirmReturnToInput: session reset to input step")
	return nil
}

// SetLanguage switches the display language. Always legal; never affects the step.
func (s *Session) SetLanguage(lang models.Language) error {
	if !models.IsValidLanguage(lang) {
		return errors.New("unsupported language: " + string(lang))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
	return nil
}

// Language returns the active display language.
func (s *Session) Language() models.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// ToggleSelection adds the persona id to the selection set if absent and
// removes it if present. Reports whether the persona is selected afterwards.
func (s *Session) ToggleSelection(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return false, ErrGenerationInProgress
	}
	if !s.hasPersonaLocked(id) {
		return false, ErrUnknownPersona
	}
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return false, nil
	}
	s.selected[id] = struct{}{}
	return true, nil
}

func (s *Session) hasPersonaLocked(id string) bool {
	for _, p := range s.personas {
		if p.ID == id {
			return true
		}
	}
	return false
}
