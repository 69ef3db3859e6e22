package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/personabolt/personabolt/internal/models"
)

func TestNewTestServer(t *testing.T) {
	server := NewTestServer()
	if server == nil {
		t.Fatal("NewTestServer returned nil")
	}

	req := CreateHTTPRequest(t, http.MethodGet, "/session", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	AssertHTTPStatus(t, http.StatusOK, rr.Code, "GET /session")
	AssertJSONResponse(t, rr, "ok")
}

func TestStubGeneratorDefaults(t *testing.T) {
	gen := &StubGenerator{}
	personas, err := gen.GeneratePersonas(context.Background(), SampleProduct())
	if err != nil {
		t.Fatalf("generate personas: %v", err)
	}
	if len(personas) != models.PersonaCount {
		t.Errorf("expected %d personas, got %d", models.PersonaCount, len(personas))
	}
	strategies, err := gen.GenerateStrategies(context.Background(), SampleProduct(), personas)
	if err != nil {
		t.Fatalf("generate strategies: %v", err)
	}
	if len(strategies) != models.StrategyCount {
		t.Errorf("expected %d strategies, got %d", models.StrategyCount, len(strategies))
	}
	for _, s := range strategies {
		if err := s.Validate(); err != nil {
			t.Errorf("sample strategy invalid: %v", err)
		}
	}
	for _, p := range personas {
		if err := p.Validate(); err != nil {
			t.Errorf("sample persona invalid: %v", err)
		}
	}
}

func TestCreateHTTPRequestWithBody(t *testing.T) {
	req := CreateHTTPRequest(t, http.MethodPost, "/personas/generate", SampleProduct())
	if req.Method != http.MethodPost {
		t.Errorf("unexpected method %s", req.Method)
	}
	var decoded models.ProductInput
	MustUnmarshalJSON(t, MustMarshalJSON(t, SampleProduct()), &decoded)
	if decoded.Name != "TaskFlow" {
		t.Errorf("round trip lost data: %+v", decoded)
	}
}
