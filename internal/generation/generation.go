// Package generation implements the generation client: it turns a product
// brief into persona drafts and strategy recommendations via a text generator,
// and resolves each persona's portrait through an image search pipeline.
//
// Persona generation tolerates partial failure: a broken image sub-step for
// one persona substitutes the fallback portrait for that persona only. Text
// generation failures and structurally malformed output abort the whole
// operation; the two are distinguishable via models.ErrMalformedResponse.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/personabolt/personabolt/internal/images"
	"github.com/personabolt/personabolt/internal/models"
)

// TextGenerator produces a completion for a system and user prompt pair.
// Satisfied by genai.Client.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ImageSearcher resolves a search keyword to a portrait photo URL.
// Satisfied by images.Client.
type ImageSearcher interface {
	SearchPortrait(ctx context.Context, keyword string) (string, error)
}

// Client generates personas and strategies for the step-flow controller.
type Client struct {
	text   TextGenerator
	images ImageSearcher
}

// NewClient creates a generation client from its two provider boundaries.
func NewClient(text TextGenerator, imgs ImageSearcher) *Client {
	return &Client{text: text, images: imgs}
}

// personaDraft is the persona shape the text provider returns: everything but
// id, imageUrl, moodBoard and voiceNote, which this package fills in.
type personaDraft struct {
	Name                string                `json:"name"`
	Age                 int                   `json:"age"`
	Occupation          string                `json:"occupation"`
	Location            string                `json:"location"`
	Bio                 string                `json:"bio"`
	Demographics        models.Demographics   `json:"demographics"`
	Psychographics      models.Psychographics `json:"psychographics"`
	Goals               []string              `json:"goals"`
	Frustrations        []string              `json:"frustrations"`
	Behaviors           []string              `json:"behaviors"`
	Quote               string                `json:"quote"`
	Scenario            string                `json:"scenario"`
	JobToBeDone         string                `json:"jobToBeDone"`
	SuccessCriteria     string                `json:"successCriteria"`
	PreviousExperiences []string              `json:"previousExperiences"`
}

// GeneratePersonas produces the full persona set for a product brief. The
// returned slice always has models.PersonaCount entries with unique ids; each
// entry's portrait resolution may independently fall back.
func (c *Client) GeneratePersonas(ctx context.Context, input models.ProductInput) ([]models.Persona, error) {
	slog.Debug("generation.GeneratePersonas: requesting persona drafts", "product", input.Name)

	raw, err := c.text.Generate(ctx, personaSystemPrompt, personaPrompt(input))
	if err != nil {
		return nil, fmt.Errorf("persona generation failed: %w", err)
	}

	drafts, err := parsePersonaDrafts(raw)
	if err != nil {
		slog.Error("generation.GeneratePersonas: malformed provider output", "error", err)
		return nil, err
	}

	personas := make([]models.Persona, len(drafts))
	g, gctx := errgroup.WithContext(ctx)
	for i, draft := range drafts {
		g.Go(func() error {
			personas[i] = c.completePersona(gctx, draft)
			return nil
		})
	}
	// Image sub-pipelines never surface errors; the join only awaits settlement.
	_ = g.Wait()

	slog.Info("generation.GeneratePersonas: persona set complete", "count", len(personas), "product", input.Name)
	return personas, nil
}

// completePersona runs the per-persona image pipeline (keyword derivation,
// then portrait search) and assembles the final persona. Any sub-step failure
// substitutes the fallback portrait for this persona only.
func (c *Client) completePersona(ctx context.Context, draft personaDraft) models.Persona {
	keyword, err := c.text.Generate(ctx, keywordSystemPrompt, keywordPrompt(draft))
	if err != nil || strings.TrimSpace(keyword) == "" {
		slog.Warn("generation.completePersona: keyword derivation failed, using fallback keyword",
			"persona", draft.Name, "error", err)
		keyword = fallbackKeyword(draft)
	}
	keyword = strings.Trim(strings.TrimSpace(keyword), `"`)

	imageURL, err := c.images.SearchPortrait(ctx, keyword)
	if err != nil {
		slog.Warn("generation.completePersona: portrait resolution failed, using fallback portrait",
			"persona", draft.Name, "keyword", keyword, "error", err)
		imageURL = images.FallbackPortraitURL
	}

	return models.Persona{
		ID:                  "persona-" + uuid.NewString(),
		Name:                draft.Name,
		Age:                 draft.Age,
		Occupation:          draft.Occupation,
		Location:            draft.Location,
		ImageURL:            imageURL,
		Bio:                 draft.Bio,
		Quote:               draft.Quote,
		Demographics:        draft.Demographics,
		Psychographics:      draft.Psychographics,
		Goals:               draft.Goals,
		Frustrations:        draft.Frustrations,
		Behaviors:           draft.Behaviors,
		PreviousExperiences: draft.PreviousExperiences,
		Scenario:            draft.Scenario,
		JobToBeDone:         draft.JobToBeDone,
		SuccessCriteria:     draft.SuccessCriteria,
		MoodBoard:           []string{},
		VoiceNote:           "",
	}
}

// GenerateStrategies produces strategy recommendations from the brief and the
// selected persona subset. The operation succeeds or fails as a whole.
func (c *Client) GenerateStrategies(ctx context.Context, input models.ProductInput, personas []models.Persona) ([]models.StrategyRecommendation, error) {
	slog.Debug("generation.GenerateStrategies: requesting recommendations",
		"product", input.Name, "personas", len(personas))

	raw, err := c.text.Generate(ctx, strategySystemPrompt, strategyPrompt(input, personas))
	if err != nil {
		return nil, fmt.Errorf("strategy generation failed: %w", err)
	}

	strategies, err := parseStrategies(raw)
	if err != nil {
		slog.Error("generation.GenerateStrategies: malformed provider output", "error", err)
		return nil, err
	}

	slog.Info("generation.GenerateStrategies: recommendations complete", "count", len(strategies))
	return strategies, nil
}

// stripCodeFences removes markdown code fences providers sometimes wrap JSON in.
func stripCodeFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

func parsePersonaDrafts(raw string) ([]personaDraft, error) {
	var drafts []personaDraft
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &drafts); err != nil {
		return nil, fmt.Errorf("%w: not a persona array: %v", models.ErrMalformedResponse, err)
	}
	if len(drafts) != models.PersonaCount {
		return nil, fmt.Errorf("%w: expected %d personas, got %d", models.ErrMalformedResponse, models.PersonaCount, len(drafts))
	}
	for i, d := range drafts {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: persona %d has no name", models.ErrMalformedResponse, i)
		}
		if d.Age < 0 {
			return nil, fmt.Errorf("%w: persona %d has negative age", models.ErrMalformedResponse, i)
		}
	}
	return drafts, nil
}

func parseStrategies(raw string) ([]models.StrategyRecommendation, error) {
	var strategies []models.StrategyRecommendation
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &strategies); err != nil {
		return nil, fmt.Errorf("%w: not a strategy array: %v", models.ErrMalformedResponse, err)
	}
	if len(strategies) == 0 {
		return nil, fmt.Errorf("%w: empty strategy list", models.ErrMalformedResponse)
	}
	for i := range strategies {
		if err := strategies[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: strategy %d: %v", models.ErrMalformedResponse, i, err)
		}
	}
	if len(strategies) != models.StrategyCount {
		slog.Warn("generation.parseStrategies: unexpected recommendation count",
			"expected", models.StrategyCount, "got", len(strategies))
	}
	return strategies, nil
}
