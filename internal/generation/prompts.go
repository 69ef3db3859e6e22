package generation

import (
	"fmt"
	"strings"

	"github.com/personabolt/personabolt/internal/models"
)

const (
	personaSystemPrompt  = "You are an expert UX researcher who creates detailed, realistic user personas from product briefs."
	keywordSystemPrompt  = "You derive concise stock-photo search keywords from user persona descriptions."
	strategySystemPrompt = "You are a senior product strategist who turns product briefs and user personas into actionable recommendations."
)

// personaPrompt asks for a strict JSON array of persona drafts. Attachments on
// the brief are deliberately excluded; they are display and export material only.
func personaPrompt(input models.ProductInput) string {
	var b strings.Builder
	b.WriteString("Your output MUST be a valid JSON array of ")
	fmt.Fprintf(&b, "%d persona objects. ", models.PersonaCount)
	b.WriteString("Do not include any surrounding text, explanations, or markdown formatting like ```json.\n\n")
	b.WriteString(`**JSON Structure for each persona object:**
{
  "name": "string",
  "age": "number",
  "occupation": "string",
  "location": "string (City, Country)",
  "bio": "string (2-3 sentences)",
  "demographics": {
    "gender": "string",
    "education": "string",
    "familyStatus": "string",
    "income": "string (e.g., '$50,000 - $70,000')"
  },
  "psychographics": {
    "personality": ["string", "string", "string"],
    "values": ["string", "string", "string"],
    "interests": ["string", "string", "string"],
    "lifestyle": "string"
  },
  "goals": ["string", "string", "string"],
  "frustrations": ["string", "string", "string"],
  "behaviors": ["string (e.g., 'Prefers online shopping')", "string"],
  "quote": "string",
  "scenario": "A short story of how this persona might interact with the product.",
  "jobToBeDone": "What job is this persona 'hiring' the product to do?",
  "successCriteria": "What does success look like for this persona when using the product?",
  "previousExperiences": ["string of previous experiences with similar products"]
}
`)
	fmt.Fprintf(&b, "\nBased on the following product information, generate the %d user personas:\n\n", models.PersonaCount)
	b.WriteString("**Product Information:**\n")
	fmt.Fprintf(&b, "- Name: %s\n", input.Name)
	fmt.Fprintf(&b, "- Category: %s\n", input.Category)
	fmt.Fprintf(&b, "- Description: %s\n", input.Description)
	fmt.Fprintf(&b, "- Target Audience: %s\n", input.TargetAudience)
	fmt.Fprintf(&b, "- Key Features: %s\n", input.KeyFeatures)
	fmt.Fprintf(&b, "- User Pain Points: %s\n", input.PainPoints)
	return b.String()
}

// keywordPrompt asks for a single portrait search keyword for one persona draft.
func keywordPrompt(draft personaDraft) string {
	var b strings.Builder
	b.WriteString("Based on the following user persona, generate a single, concise, effective search keyword (2-4 words) for a portrait photo on an image API like Unsplash. Only return the keyword itself, without quotes or explanations.\n\n")
	b.WriteString("Persona:\n")
	fmt.Fprintf(&b, "- Name: %s\n", draft.Name)
	fmt.Fprintf(&b, "- Age: %d\n", draft.Age)
	fmt.Fprintf(&b, "- Occupation: %s\n", draft.Occupation)
	fmt.Fprintf(&b, "- Bio: %s\n", draft.Bio)
	fmt.Fprintf(&b, "- Lifestyle: %s\n", draft.Psychographics.Lifestyle)
	fmt.Fprintf(&b, "- Interests: %s\n", strings.Join(draft.Psychographics.Interests, ", "))
	b.WriteString("\nKeyword:")
	return b.String()
}

// fallbackKeyword is used when keyword derivation fails for a draft.
func fallbackKeyword(draft personaDraft) string {
	return fmt.Sprintf("%d year old %s %s", draft.Age, draft.Demographics.Gender, draft.Occupation)
}

// strategyPrompt asks for a strict JSON array of strategy recommendations
// derived from the brief and the selected persona subset.
func strategyPrompt(input models.ProductInput, personas []models.Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your output MUST be a valid JSON array of %d distinct strategy recommendation objects. ", models.StrategyCount)
	b.WriteString("Do not include any surrounding text, explanations, or markdown formatting like ```json.\n\n")
	fmt.Fprintf(&b, "Categories should include %s.\n\n", quotedList(models.KnownStrategyCategories()))
	b.WriteString(`**JSON Structure for each object:**
{
  "category": "string",
  "title": "string",
  "description": "string",
  "actionItems": ["string", "string", "string"],
  "priority": "'High' | 'Medium' | 'Low'"
}
`)
	fmt.Fprintf(&b, "\nBased on the following product summary and user personas, generate the %d strategic recommendations.\n\n", models.StrategyCount)
	b.WriteString("**Product Summary:**\n")
	fmt.Fprintf(&b, "- Name: %s\n", input.Name)
	fmt.Fprintf(&b, "- Description: %s\n", input.Description)
	fmt.Fprintf(&b, "- Key Features: %s\n", input.KeyFeatures)
	b.WriteString("\n**Selected User Personas:**\n")
	for _, p := range personas {
		fmt.Fprintf(&b, "- **%s (%s)**:\n", p.Name, p.Occupation)
		fmt.Fprintf(&b, "  - Bio: %s\n", p.Bio)
		fmt.Fprintf(&b, "  - Goals: %s\n", strings.Join(p.Goals, ", "))
		fmt.Fprintf(&b, "  - Frustrations: %s\n", strings.Join(p.Frustrations, ", "))
	}
	return b.String()
}

func quotedList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + item + "'"
	}
	if len(quoted) <= 1 {
		return strings.Join(quoted, "")
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " and " + quoted[len(quoted)-1]
}
