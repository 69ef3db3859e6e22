// Package models defines the core data structures for PersonaBolt.
//
// It includes the product brief, generated persona and strategy types, and the
// session-level enums shared across modules.
package models

import (
	"errors"
	"fmt"
)

// Step identifies a stage of the persona wizard.
type Step string

const (
	// StepInput is the product description stage.
	StepInput Step = "input"
	// StepPersonas is the generated persona review stage.
	StepPersonas Step = "personas"
	// StepStrategy is the strategy recommendation review stage.
	StepStrategy Step = "strategy"
)

// IsValidStep checks if the given step is one of the wizard stages.
func IsValidStep(s Step) bool {
	switch s {
	case StepInput, StepPersonas, StepStrategy:
		return true
	default:
		return false
	}
}

// Language identifies a supported display language.
type Language string

const (
	// LanguageEnglish is the default display language.
	LanguageEnglish Language = "en"
	// LanguageGerman is the German display language.
	LanguageGerman Language = "de"
	// LanguageChinese is the Simplified Chinese display language.
	LanguageChinese Language = "zh"
)

// IsValidLanguage checks if the given language is supported.
func IsValidLanguage(l Language) bool {
	switch l {
	case LanguageEnglish, LanguageGerman, LanguageChinese:
		return true
	default:
		return false
	}
}

// Validation constants shared across modules.
const (
	// PersonaCount is the number of personas a generation run must produce.
	PersonaCount = 3
	// StrategyCount is the number of recommendations a generation run is asked for.
	StrategyCount = 5
	// MaxMoodBoardImages caps how many mood board image URLs are displayed or exported.
	MaxMoodBoardImages = 9
)

// Error variables for better error handling and testability.
var (
	ErrMissingProductName    = errors.New("product name is required")
	ErrMissingDescription    = errors.New("product description is required")
	ErrMissingTargetAudience = errors.New("target audience is required")
	ErrDuplicateLink         = errors.New("link already attached")
	ErrMissingPersonaID      = errors.New("persona id cannot be empty")
	ErrMissingPersonaName    = errors.New("persona name cannot be empty")
	ErrNegativePersonaAge    = errors.New("persona age cannot be negative")
	ErrMissingStrategyTitle  = errors.New("strategy title cannot be empty")
	ErrInvalidPriority       = errors.New("priority must be High, Medium or Low")

	// ErrMalformedResponse marks generation output that does not parse into the
	// expected structural shape, as opposed to a transport failure reaching the
	// provider at all. Both abort the operation; operators need to tell them apart.
	ErrMalformedResponse = errors.New("generation returned malformed content")
)

// Document is metadata for a user-supplied attachment on the product brief.
// Only name and byte size are consumed; contents never reach the generator.
type Document struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ProductInput is the user-authored product brief that seeds persona generation.
// Once a generation session starts it is treated as read-only until the session
// is reset back to the input step.
type ProductInput struct {
	Name           string     `json:"name"`
	Category       string     `json:"category"`
	Description    string     `json:"description"`
	TargetAudience string     `json:"targetAudience"`
	KeyFeatures    string     `json:"keyFeatures"`
	PainPoints     string     `json:"painPoints"`
	Documents      []Document `json:"documents,omitempty"`
	Links          []string   `json:"links,omitempty"`
}

// Validate checks the brief carries the fields generation depends on.
func (p *ProductInput) Validate() error {
	if p.Name == "" {
		return ErrMissingProductName
	}
	if p.Description == "" {
		return ErrMissingDescription
	}
	if p.TargetAudience == "" {
		return ErrMissingTargetAudience
	}
	return nil
}

// Demographics holds the demographic profile of a persona.
type Demographics struct {
	Gender       string `json:"gender"`
	Education    string `json:"education"`
	FamilyStatus string `json:"familyStatus"`
	Income       string `json:"income"` // conventionally a range, e.g. "$50,000 - $70,000"
}

// Psychographics holds the psychological profile of a persona.
type Psychographics struct {
	Personality []string `json:"personality"`
	Values      []string `json:"values"`
	Interests   []string `json:"interests"`
	Lifestyle   string   `json:"lifestyle"`
}

// Persona is a synthesized user archetype generated from a product brief.
type Persona struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Age                 int            `json:"age"`
	Occupation          string         `json:"occupation"`
	Location            string         `json:"location"`
	Category            string         `json:"category,omitempty"`
	ImageURL            string         `json:"imageUrl"`
	Bio                 string         `json:"bio"`
	Quote               string         `json:"quote"`
	Demographics        Demographics   `json:"demographics"`
	Psychographics      Psychographics `json:"psychographics"`
	Goals               []string       `json:"goals"`
	Frustrations        []string       `json:"frustrations"`
	Behaviors           []string       `json:"behaviors"`
	PreviousExperiences []string       `json:"previousExperiences"`
	Scenario            string         `json:"scenario"`
	JobToBeDone         string         `json:"jobToBeDone"`
	SuccessCriteria     string         `json:"successCriteria"`
	MoodBoard           []string       `json:"moodBoard"`
	VoiceNote           string         `json:"voiceNote"`
}

// Validate performs structural validation on a persona.
func (p *Persona) Validate() error {
	if p.ID == "" {
		return ErrMissingPersonaID
	}
	if p.Name == "" {
		return ErrMissingPersonaName
	}
	if p.Age < 0 {
		return ErrNegativePersonaAge
	}
	return nil
}

// Priority ranks a strategy recommendation by severity.
type Priority string

const (
	// PriorityHigh marks recommendations to act on first.
	PriorityHigh Priority = "High"
	// PriorityMedium marks recommendations of moderate urgency.
	PriorityMedium Priority = "Medium"
	// PriorityLow marks nice-to-have recommendations.
	PriorityLow Priority = "Low"
)

// IsValidPriority checks if the given priority is one of the three literals.
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Rank orders priorities for display, High first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Strategy category labels. Used only for icon and display mapping; the
// category field itself is free-form and not enforced structurally.
const (
	StrategyCategoryOnboarding = "Onboarding"
	StrategyCategoryFeatures   = "Feature Prioritization"
	StrategyCategoryUIUX       = "UI/UX Design"
	StrategyCategoryMarketing  = "Marketing & Communication"
	StrategyCategoryKPIs       = "KPIs & Metrics"
)

// KnownStrategyCategories lists the labels strategy generation is asked to use.
func KnownStrategyCategories() []string {
	return []string{
		StrategyCategoryOnboarding,
		StrategyCategoryFeatures,
		StrategyCategoryUIUX,
		StrategyCategoryMarketing,
		StrategyCategoryKPIs,
	}
}

// StrategyRecommendation is a single categorized, prioritized actionable
// suggestion derived from the product brief and the selected personas.
type StrategyRecommendation struct {
	Category    string   `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ActionItems []string `json:"actionItems"`
	Priority    Priority `json:"priority"`
}

// Validate performs structural validation on a recommendation. An unrecognized
// priority is a contract violation by the generation provider.
func (s *StrategyRecommendation) Validate() error {
	if s.Title == "" {
		return ErrMissingStrategyTitle
	}
	if !IsValidPriority(s.Priority) {
		return fmt.Errorf("%w: got %q", ErrInvalidPriority, s.Priority)
	}
	return nil
}
