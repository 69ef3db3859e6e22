// Package testutil provides common test utilities and helpers for PersonaBolt tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/personabolt/personabolt/internal/api"
	"github.com/personabolt/personabolt/internal/flow"
	"github.com/personabolt/personabolt/internal/models"
)

// StubGenerator is a canned flow.Generator for tests. The zero value serves
// sample data; set the error fields to exercise failure paths.
type StubGenerator struct {
	Personas    []models.Persona
	PersonaErr  error
	Strategies  []models.StrategyRecommendation
	StrategyErr error
}

func (g *StubGenerator) GeneratePersonas(ctx context.Context, input models.ProductInput) ([]models.Persona, error) {
	if g.PersonaErr != nil {
		return nil, g.PersonaErr
	}
	if g.Personas != nil {
		return append([]models.Persona(nil), g.Personas...), nil
	}
	return SamplePersonas(), nil
}

func (g *StubGenerator) GenerateStrategies(ctx context.Context, input models.ProductInput, personas []models.Persona) ([]models.StrategyRecommendation, error) {
	if g.StrategyErr != nil {
		return nil, g.StrategyErr
	}
	if g.Strategies != nil {
		return append([]models.StrategyRecommendation(nil), g.Strategies...), nil
	}
	return SampleStrategies(), nil
}

// SamplePersonas returns a full persona set with stable ids.
func SamplePersonas() []models.Persona {
	out := make([]models.Persona, models.PersonaCount)
	for i := range out {
		out[i] = models.Persona{
			ID:         fmt.Sprintf("persona-%d", i+1),
			Name:       fmt.Sprintf("Test Persona %d", i+1),
			Age:        28 + i,
			Occupation: "Product Manager",
			Location:   "Berlin, Germany",
			ImageURL:   "https://images.example/portrait.jpg",
			Bio:        "Sample bio.",
			Demographics: models.Demographics{
				Gender: "Female", Education: "MSc", FamilyStatus: "Single", Income: "$50,000 - $70,000",
			},
			Psychographics: models.Psychographics{
				Personality: []string{"curious"},
				Values:      []string{"honesty"},
				Interests:   []string{"cycling"},
				Lifestyle:   "Urban",
			},
			Goals:     []string{"ship faster"},
			MoodBoard: []string{},
		}
	}
	return out
}

// SampleStrategies returns a full recommendation set.
func SampleStrategies() []models.StrategyRecommendation {
	priorities := []models.Priority{
		models.PriorityHigh, models.PriorityHigh,
		models.PriorityMedium, models.PriorityMedium, models.PriorityLow,
	}
	out := make([]models.StrategyRecommendation, len(priorities))
	for i, p := range priorities {
		out[i] = models.StrategyRecommendation{
			Category:    models.StrategyCategoryOnboarding,
			Title:       fmt.Sprintf("Test Strategy %d", i+1),
			Description: "Sample description.",
			ActionItems: []string{"do the thing"},
			Priority:    p,
		}
	}
	return out
}

// SampleProduct returns a valid product brief.
func SampleProduct() models.ProductInput {
	return models.ProductInput{
		Name:           "TaskFlow",
		Description:    "Project management for small teams",
		TargetAudience: "Team leads at startups",
	}
}

// NewTestServer creates a test API server backed by a stub generator.
// This centralizes the test server creation logic used across multiple test files.
func NewTestServer() *api.Server {
	session := flow.NewSession(&StubGenerator{})
	return api.NewServer(session)
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t *testing.T, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
