package flow

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/personabolt/personabolt/internal/models"
)

// mockGenerator counts calls and returns canned results or errors.
type mockGenerator struct {
	personas      []models.Persona
	personaErr    error
	strategies    []models.StrategyRecommendation
	strategyErr   error
	personaCalls  int
	strategyCalls int
	lastSubset    []models.Persona
}

func (m *mockGenerator) GeneratePersonas(ctx context.Context, input models.ProductInput) ([]models.Persona, error) {
	m.personaCalls++
	if m.personaErr != nil {
		return nil, m.personaErr
	}
	return append([]models.Persona(nil), m.personas...), nil
}

func (m *mockGenerator) GenerateStrategies(ctx context.Context, input models.ProductInput, personas []models.Persona) ([]models.StrategyRecommendation, error) {
	m.strategyCalls++
	m.lastSubset = personas
	if m.strategyErr != nil {
		return nil, m.strategyErr
	}
	return append([]models.StrategyRecommendation(nil), m.strategies...), nil
}

func testPersonas() []models.Persona {
	out := make([]models.Persona, 3)
	for i := range out {
		out[i] = models.Persona{
			ID:         fmt.Sprintf("%d", i+1),
			Name:       fmt.Sprintf("Persona %d", i+1),
			Age:        30 + i,
			ImageURL:   "https://images.example/p.jpg",
			Demographics: models.Demographics{
				Gender: "Female", Education: "BSc", FamilyStatus: "Single", Income: "$50,000 - $70,000",
			},
			Psychographics: models.Psychographics{
				Personality: []string{"curious"},
				Values:      []string{"honesty"},
				Interests:   []string{"cycling", "pottery", "podcasts"},
				Lifestyle:   "Urban",
			},
			Goals: []string{"ship faster", "learn more"},
		}
	}
	return out
}

func testStrategies() []models.StrategyRecommendation {
	priorities := []models.Priority{
		models.PriorityHigh, models.PriorityHigh,
		models.PriorityMedium, models.PriorityMedium, models.PriorityLow,
	}
	out := make([]models.StrategyRecommendation, len(priorities))
	for i, p := range priorities {
		out[i] = models.StrategyRecommendation{
			Category:    models.StrategyCategoryOnboarding,
			Title:       fmt.Sprintf("Strategy %d", i+1),
			Description: "Do the thing.",
			ActionItems: []string{"step one", "step two"},
			Priority:    p,
		}
	}
	return out
}

func testBrief() models.ProductInput {
	return models.ProductInput{
		Name:           "TaskFlow",
		Description:    "Project management for small teams",
		TargetAudience: "Team leads at startups",
	}
}

func submittedSession(t *testing.T, gen *mockGenerator) *Session {
	t.Helper()
	s := NewSession(gen)
	if err := s.SubmitProduct(context.Background(), testBrief()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	return s
}

func TestSubmitProductSuccess(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas()}
	s := submittedSession(t, gen)

	snap := s.Snapshot()
	if snap.Step != models.StepPersonas {
		t.Errorf("expected personas step, got %q", snap.Step)
	}
	if snap.Loading {
		t.Error("loading flag should be cleared")
	}
	if len(snap.Personas) != models.PersonaCount {
		t.Fatalf("expected %d personas, got %d", models.PersonaCount, len(snap.Personas))
	}
	seen := map[string]bool{}
	for _, p := range snap.Personas {
		if seen[p.ID] {
			t.Errorf("duplicate persona id %q", p.ID)
		}
		seen[p.ID] = true
	}
	if len(snap.Selected) != 0 {
		t.Errorf("selection should start empty, got %v", snap.Selected)
	}
}

func TestSubmitProductGenerationFailure(t *testing.T) {
	gen := &mockGenerator{personaErr: errors.New("service unreachable")}
	s := NewSession(gen)

	err := s.SubmitProduct(context.Background(), testBrief())
	if err == nil {
		t.Fatal("expected error")
	}
	snap := s.Snapshot()
	if snap.Step != models.StepInput {
		t.Errorf("step should stay at input, got %q", snap.Step)
	}
	if snap.Loading {
		t.Error("loading flag should be cleared after failure")
	}
	if len(snap.Personas) != 0 {
		t.Errorf("no personas should be stored, got %d", len(snap.Personas))
	}
	// The brief survives the failure for re-submission.
	if snap.Input == nil || snap.Input.Name != "TaskFlow" {
		t.Errorf("brief should be retrievable after failure, got %+v", snap.Input)
	}
}

func TestSubmitProductMalformedResponse(t *testing.T) {
	gen := &mockGenerator{personaErr: fmt.Errorf("%w: not a persona array", models.ErrMalformedResponse)}
	s := NewSession(gen)

	err := s.SubmitProduct(context.Background(), testBrief())
	if !errors.Is(err, models.ErrMalformedResponse) {
		t.Fatalf("malformed error should surface distinguishably, got %v", err)
	}
	snap := s.Snapshot()
	if snap.Step != models.StepInput || snap.Loading {
		t.Errorf("machine should stay at input with loading cleared: %+v", snap)
	}
	if snap.Input == nil {
		t.Error("brief should remain retrievable for re-submission")
	}
}

func TestSubmitProductInvalidBrief(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas()}
	s := NewSession(gen)
	err := s.SubmitProduct(context.Background(), models.ProductInput{Name: "X"})
	if !errors.Is(err, models.ErrMissingDescription) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if gen.personaCalls != 0 {
		t.Error("generator must not be invoked for an invalid brief")
	}
}

func TestSubmitProductWrongStep(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas()}
	s := submittedSession(t, gen)
	err := s.SubmitProduct(context.Background(), testBrief())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if gen.personaCalls != 1 {
		t.Errorf("generator called %d times, expected 1", gen.personaCalls)
	}
}

func TestToggleSelectionRoundTrip(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas()}
	s := submittedSession(t, gen)

	before := s.Snapshot().Selected
	if _, err := s.ToggleSelection("2"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if got := s.Snapshot().Selected; !reflect.DeepEqual(got, []string{"2"}) {
		t.Errorf("expected selection {2}, got %v", got)
	}
	if _, err := s.ToggleSelection("2"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if got := s.Snapshot().Selected; !reflect.DeepEqual(got, before) {
		t.Errorf("double toggle should restore membership, got %v", got)
	}
}

func TestToggleSelectionOrderInsensitive(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas()}
	a := submittedSession(t, gen)
	b := submittedSession(t, gen)

	for _, id := range []string{"1", "3"} {
		if _, err := a.ToggleSelection(id); err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}
	for _, id := range []string{"3", "1"} {
		if _, err := b.ToggleSelection(id); err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}
	if !reflect.DeepEqual(a.Snapshot().Selected, b.Snapshot().Selected) {
		t.Errorf("selection differs by call order: %v vs %v", a.Snapshot().Selected, b.Snapshot().Selected)
	}
}

func TestToggleSelectionUnknownPersona(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas()}
	s := submittedSession(t, gen)
	if _, err := s.ToggleSelection("99"); !errors.Is(err, ErrUnknownPersona) {
		t.Fatalf("expected ErrUnknownPersona, got %v", err)
	}
}

func TestProceedToStrategyEmptySelection(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas(), strategies: testStrategies()}
	s := submittedSession(t, gen)

	err := s.ProceedToStrategy(context.Background())
	if !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
	if gen.strategyCalls != 0 {
		t.Error("generator must not be invoked with an empty selection")
	}
	snap := s.Snapshot()
	if snap.Step != models.StepPersonas || snap.Loading {
		t.Errorf("rejected precondition must not change step or loading: %+v", snap)
	}
}

func TestEndToEndScenario(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas(), strategies: testStrategies()}
	s := NewSession(gen)

	if err := s.SubmitProduct(context.Background(), testBrief()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	for _, id := range []string{"1", "3"} {
		if _, err := s.ToggleSelection(id); err != nil {
			t.Fatalf("toggle %s: %v", id, err)
		}
	}
	if err := s.ProceedToStrategy(context.Background()); err != nil {
		t.Fatalf("proceed: %v", err)
	}

	snap := s.Snapshot()
	if snap.Step != models.StepStrategy {
		t.Errorf("expected strategy step, got %q", snap.Step)
	}
	if len(snap.Strategies) != 5 {
		t.Errorf("expected 5 strategies, got %d", len(snap.Strategies))
	}
	if !reflect.DeepEqual(snap.Selected, []string{"1", "3"}) {
		t.Errorf("selection should be unchanged, got %v", snap.Selected)
	}
	wantPriorities := []models.Priority{
		models.PriorityHigh, models.PriorityHigh,
		models.PriorityMedium, models.PriorityMedium, models.PriorityLow,
	}
	for i, want := range wantPriorities {
		if snap.Strategies[i].Priority != want {
			t.Errorf("strategy %d priority %q, want %q", i, snap.Strategies[i].Priority, want)
		}
	}
	// Only the selected subset reaches the generator, in persona-list order.
	if len(gen.lastSubset) != 2 || gen.lastSubset[0].ID != "1" || gen.lastSubset[1].ID != "3" {
		t.Errorf("unexpected persona subset: %+v", gen.lastSubset)
	}
}

func TestProceedToStrategyFailureKeepsState(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas(), strategyErr: errors.New("boom")}
	s := submittedSession(t, gen)
	if _, err := s.ToggleSelection("1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	if err := s.ProceedToStrategy(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	snap := s.Snapshot()
	if snap.Step != models.StepPersonas || snap.Loading {
		t.Errorf("failure must leave machine at personas with loading cleared: %+v", snap)
	}
	if len(snap.Personas) != 3 || len(snap.Strategies) != 0 {
		t.Errorf("prior results must survive, new data must not appear: %d personas, %d strategies",
			len(snap.Personas), len(snap.Strategies))
	}
	if !reflect.DeepEqual(snap.Selected, []string{"1"}) {
		t.Errorf("selection must survive failure, got %v", snap.Selected)
	}
}

func TestBackToPersonas(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas(), strategies: testStrategies()}
	s := submittedSession(t, gen)
	s.ToggleSelection("1")
	if err := s.ProceedToStrategy(context.Background()); err != nil {
		t.Fatalf("proceed: %v", err)
	}

	if err := s.BackToPersonas(); err != nil {
		t.Fatalf("back: %v", err)
	}
	snap := s.Snapshot()
	if snap.Step != models.StepPersonas {
		t.Errorf("expected personas step, got %q", snap.Step)
	}
	if len(snap.Strategies) != 5 {
		t.Errorf("back navigation must not mutate data, strategies now %d", len(snap.Strategies))
	}

	// And the strategy step stays reachable with its data intact.
	if err := s.NavigateTo(models.StepStrategy); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if got := s.Snapshot().Step; got != models.StepStrategy {
		t.Errorf("expected strategy step, got %q", got)
	}
}

func TestBackToPersonasWrongStep(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas()}
	s := submittedSession(t, gen)
	if err := s.BackToPersonas(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestNavigateToMissingData(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas()}
	s := NewSession(gen)
	if err := s.NavigateTo(models.StepPersonas); !errors.Is(err, ErrStepDataMissing) {
		t.Fatalf("expected ErrStepDataMissing, got %v", err)
	}
	s = submittedSession(t, gen)
	if err := s.NavigateTo(models.StepStrategy); !errors.Is(err, ErrStepDataMissing) {
		t.Fatalf("expected ErrStepDataMissing, got %v", err)
	}
	if got := s.Snapshot().Step; got != models.StepPersonas {
		t.Errorf("failed navigation must not change step, got %q", got)
	}
}

func TestNavigateToInputRaisesConfirmation(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas()}
	s := submittedSession(t, gen)

	if err := s.NavigateTo(models.StepInput); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	snap := s.Snapshot()
	if !snap.PendingReset {
		t.Error("navigating to input must raise the confirmation gate")
	}
	if snap.Step != models.StepPersonas {
		t.Errorf("confirmation gate must not transition yet, step is %q", snap.Step)
	}
}

func TestResetConfirmAndCancel(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas(), strategies: testStrategies()}
	s := submittedSession(t, gen)
	s.ToggleSelection("1")
	if err := s.ProceedToStrategy(context.Background()); err != nil {
		t.Fatalf("proceed: %v", err)
	}

	// Cancel leaves everything untouched.
	if err := s.RequestReturnToInput(); err != nil {
		t.Fatalf("request: %v", err)
	}
	s.CancelReturnToInput()
	snap := s.Snapshot()
	if snap.PendingReset || snap.Step != models.StepStrategy || len(snap.Personas) != 3 || len(snap.Strategies) != 5 {
		t.Errorf("cancel must leave state unchanged: %+v", snap)
	}

	// Confirm without a pending request is rejected.
	if err := s.ConfirmReturnToInput(); !errors.Is(err, ErrResetNotRequested) {
		t.Fatalf("expected ErrResetNotRequested, got %v", err)
	}

	// Confirmed reset clears generated data but keeps the brief and language.
	s.SetLanguage(models.LanguageGerman)
	if err := s.RequestReturnToInput(); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := s.ConfirmReturnToInput(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	snap = s.Snapshot()
	if snap.Step != models.StepInput {
		t.Errorf("expected input step, got %q", snap.Step)
	}
	if len(snap.Personas) != 0 || len(snap.Selected) != 0 || len(snap.Strategies) != 0 {
		t.Errorf("reset must clear generated data: %+v", snap)
	}
	if snap.Input == nil || snap.Input.Name != "TaskFlow" {
		t.Errorf("brief must survive reset, got %+v", snap.Input)
	}
	if snap.Language != models.LanguageGerman {
		t.Errorf("language must survive reset, got %q", snap.Language)
	}
}

func TestRequestReturnToInputAtInputIsNoop(t *testing.T) {
	s := NewSession(&mockGenerator{})
	if err := s.RequestReturnToInput(); err != nil {
		t.Fatalf("request: %v", err)
	}
	if s.Snapshot().PendingReset {
		t.Error("no confirmation gate needed when already at input")
	}
}

func TestUpdatePersonaNestedMerge(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas()}
	s := submittedSession(t, gen)

	ok, err := s.UpdatePersona("2", map[string]any{
		"name": "Renamed",
		"demographics": map[string]any{"income": "$90,000 - $110,000"},
	})
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}

	snap := s.Snapshot()
	p := snap.Personas[1]
	if p.ID != "2" {
		t.Errorf("persona must keep its array position and id, got %q", p.ID)
	}
	if p.Name != "Renamed" {
		t.Errorf("patched scalar not applied: %q", p.Name)
	}
	if p.Demographics.Income != "$90,000 - $110,000" {
		t.Errorf("nested patch not applied: %q", p.Demographics.Income)
	}
	if p.Demographics.Gender != "Female" || p.Demographics.Education != "BSc" {
		t.Errorf("nested merge dropped siblings: %+v", p.Demographics)
	}
	if p.Age != 31 || len(p.Goals) != 2 {
		t.Errorf("unpatched fields changed: age=%d goals=%v", p.Age, p.Goals)
	}
}

func TestUpdatePersonaMissingIsNoop(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas()}
	s := submittedSession(t, gen)
	ok, err := s.UpdatePersona("gone", map[string]any{"name": "X"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if ok {
		t.Error("update against a missing persona must be a no-op")
	}
}

func TestUpdateStrategyByIndex(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas(), strategies: testStrategies()}
	s := submittedSession(t, gen)
	s.ToggleSelection("1")
	if err := s.ProceedToStrategy(context.Background()); err != nil {
		t.Fatalf("proceed: %v", err)
	}

	ok, err := s.UpdateStrategy(2, map[string]any{"priority": "High", "title": "Retitled"})
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	snap := s.Snapshot()
	if snap.Strategies[2].Title != "Retitled" || snap.Strategies[2].Priority != models.PriorityHigh {
		t.Errorf("patch not applied: %+v", snap.Strategies[2])
	}
	if snap.Strategies[1].Title != "Strategy 2" {
		t.Errorf("neighboring strategy changed: %+v", snap.Strategies[1])
	}

	if ok, err := s.UpdateStrategy(99, map[string]any{"title": "X"}); err != nil || ok {
		t.Errorf("out-of-range update must be a no-op: ok=%v err=%v", ok, err)
	}

	// An edit cannot smuggle in an invalid priority.
	if _, err := s.UpdateStrategy(0, map[string]any{"priority": "Urgent"}); !errors.Is(err, models.ErrInvalidPriority) {
		t.Errorf("expected ErrInvalidPriority, got %v", err)
	}
}

func TestBriefAttachments(t *testing.T) {
	gen := &mockGenerator{personas: testPersonas()}
	s := NewSession(gen)

	if err := s.AddLink("https://example.com/research"); err != nil {
		t.Fatalf("add link: %v", err)
	}
	if err := s.AddLink("https://example.com/research"); !errors.Is(err, models.ErrDuplicateLink) {
		t.Fatalf("expected ErrDuplicateLink, got %v", err)
	}
	if err := s.AddLink("https://example.com/other"); err != nil {
		t.Fatalf("add link: %v", err)
	}
	if err := s.RemoveLink(0); err != nil {
		t.Fatalf("remove link: %v", err)
	}
	if err := s.AddDocument(models.Document{Name: "notes.pdf", Size: 2048}); err != nil {
		t.Fatalf("add document: %v", err)
	}

	// Submitting the form fields inherits the staged attachments.
	if err := s.SubmitProduct(context.Background(), testBrief()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	snap := s.Snapshot()
	if !reflect.DeepEqual(snap.Input.Links, []string{"https://example.com/other"}) {
		t.Errorf("unexpected links: %v", snap.Input.Links)
	}
	if len(snap.Input.Documents) != 1 || snap.Input.Documents[0].Name != "notes.pdf" {
		t.Errorf("unexpected documents: %v", snap.Input.Documents)
	}

	// The brief is immutable outside the input step.
	if err := s.AddLink("https://example.com/late"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestSetLanguage(t *testing.T) {
	s := NewSession(&mockGenerator{})
	if err := s.SetLanguage(models.LanguageChinese); err != nil {
		t.Fatalf("set language: %v", err)
	}
	if got := s.Language(); got != models.LanguageChinese {
		t.Errorf("expected zh, got %q", got)
	}
	if err := s.SetLanguage("fr"); err == nil {
		t.Error("unsupported language accepted")
	}
	if got := s.Snapshot().Step; got != models.StepInput {
		t.Errorf("language change must not affect step, got %q", got)
	}
}

// blockingGenerator parks persona generation until released, to exercise the
// loading guard.
type blockingGenerator struct {
	release  chan struct{}
	personas []models.Persona
}

func (b *blockingGenerator) GeneratePersonas(ctx context.Context, input models.ProductInput) ([]models.Persona, error) {
	<-b.release
	return b.personas, nil
}

func (b *blockingGenerator) GenerateStrategies(ctx context.Context, input models.ProductInput, personas []models.Persona) ([]models.StrategyRecommendation, error) {
	return nil, errors.New("not used")
}

func TestReentrantSubmissionRejectedWhileLoading(t *testing.T) {
	gen := &blockingGenerator{release: make(chan struct{}), personas: testPersonas()}
	s := NewSession(gen)

	done := make(chan error, 1)
	go func() { done <- s.SubmitProduct(context.Background(), testBrief()) }()

	// Wait until the first submission holds the loading flag.
	for !s.Snapshot().Loading {
		time.Sleep(time.Millisecond)
	}

	if err := s.SubmitProduct(context.Background(), testBrief()); !errors.Is(err, ErrGenerationInProgress) {
		t.Errorf("expected ErrGenerationInProgress, got %v", err)
	}
	if err := s.RequestReturnToInput(); !errors.Is(err, ErrGenerationInProgress) {
		t.Errorf("reset request during load should be rejected, got %v", err)
	}

	close(gen.release)
	if err := <-done; err != nil {
		t.Fatalf("original submission failed: %v", err)
	}
	if got := s.Snapshot().Step; got != models.StepPersonas {
		t.Errorf("expected personas step after release, got %q", got)
	}
}
