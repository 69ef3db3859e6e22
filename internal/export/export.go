// Package export renders the persona and strategy report as a PDF.
//
// The report opens with the project summary and any supporting materials,
// follows with one section per persona, and closes with the strategy
// recommendations. Headings are localized; the built-in fonts cover Latin
// scripts only, so Chinese sessions get English headings in the exported
// document.
package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/personabolt/personabolt/internal/i18n"
	"github.com/personabolt/personabolt/internal/models"
)

const (
	pageMargin = 15.0
	bodyLine   = 5.0
	sectionGap = 4.0
	accentR    = 79
	accentG    = 70
	accentB    = 229
	moodTileMM = 34.0
	moodPerRow = 4
)

// ReportFilename derives the download filename from the product name.
func ReportFilename(productName string) string {
	name := strings.TrimSpace(productName)
	if name == "" {
		name = "Product"
	}
	return strings.ReplaceAll(name, " ", "_") + "_Personas_Strategy_Report.pdf"
}

// PersonaFilename derives the download filename for a single persona profile.
func PersonaFilename(personaName string) string {
	name := strings.TrimSpace(personaName)
	if name == "" {
		name = "Persona"
	}
	return strings.ReplaceAll(name, " ", "_") + "_Profile.pdf"
}

// pdfLanguage maps the session language to one the built-in fonts can render.
func pdfLanguage(lang models.Language) models.Language {
	if lang == models.LanguageChinese {
		return models.LanguageEnglish
	}
	return lang
}

type reportWriter struct {
	pdf  *fpdf.Fpdf
	tr   func(string) string
	lang models.Language
}

func newReportWriter(lang models.Language) *reportWriter {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	return &reportWriter{
		pdf:  pdf,
		tr:   pdf.UnicodeTranslatorFromDescriptor(""),
		lang: pdfLanguage(lang),
	}
}

func (r *reportWriter) label(key string) string {
	return i18n.Lookup(r.lang, key)
}

// WriteReport renders the full report to w.
func WriteReport(w io.Writer, input models.ProductInput, personas []models.Persona, strategies []models.StrategyRecommendation, lang models.Language) error {
	r := newReportWriter(lang)
	r.titlePage(input)
	for _, p := range personas {
		r.personaSection(p)
	}
	if len(strategies) > 0 {
		r.strategySection(strategies)
	}
	if err := r.pdf.Output(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	slog.Info("export.WriteReport: report rendered",
		"product", input.Name, "personas", len(personas), "strategies", len(strategies))
	return nil
}

// WritePersonaProfile renders a single persona's profile to w.
func WritePersonaProfile(w io.Writer, persona models.Persona, lang models.Language) error {
	r := newReportWriter(lang)
	r.personaSection(persona)
	if err := r.pdf.Output(w); err != nil {
		return fmt.Errorf("render persona profile: %w", err)
	}
	return nil
}

func (r *reportWriter) titlePage(input models.ProductInput) {
	pdf := r.pdf
	pdf.AddPage()

	pdf.SetTextColor(accentR, accentG, accentB)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 12, r.tr(r.label("reportTitle")), "", 1, "L", false, 0, "")

	pdf.SetTextColor(100, 100, 100)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, r.tr(r.label("generatedOn")+": "+time.Now().Format("2006-01-02")), "", 1, "L", false, 0, "")
	pdf.Ln(sectionGap)

	r.heading(r.label("projectSummary"))
	r.keyValue(r.label("productName"), input.Name)
	r.keyValue(r.label("targetAudience"), input.TargetAudience)
	r.subLabel(r.label("productDescription"))
	r.body(input.Description)

	if len(input.Documents) > 0 || len(input.Links) > 0 {
		pdf.Ln(sectionGap)
		r.heading(r.label("supportingMaterials"))
		if len(input.Documents) > 0 {
			r.subLabel(r.label("documents"))
			for _, doc := range input.Documents {
				r.bullet(fmt.Sprintf("%s (%s)", doc.Name, formatSize(doc.Size)))
			}
		}
		if len(input.Links) > 0 {
			r.subLabel(r.label("links"))
			for _, link := range input.Links {
				r.bullet(link)
			}
		}
	}
}

func (r *reportWriter) personaSection(p models.Persona) {
	pdf := r.pdf
	pdf.AddPage()

	pdf.SetTextColor(accentR, accentG, accentB)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, r.tr(p.Name), "", 1, "L", false, 0, "")

	pdf.SetTextColor(100, 100, 100)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, r.tr(fmt.Sprintf("%d %s | %s | %s", p.Age, r.label("years"), p.Occupation, p.Location)), "", 1, "L", false, 0, "")

	if p.Quote != "" {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.SetTextColor(60, 60, 60)
		pdf.MultiCell(0, bodyLine+1, r.tr(`"`+p.Quote+`"`), "", "L", false)
	}
	pdf.Ln(2)
	r.body(p.Bio)
	pdf.Ln(sectionGap)

	r.heading(r.label("demographics"))
	r.keyValue("Gender", p.Demographics.Gender)
	r.keyValue("Education", p.Demographics.Education)
	r.keyValue("Family", p.Demographics.FamilyStatus)
	r.keyValue("Income", p.Demographics.Income)
	pdf.Ln(sectionGap)

	r.heading(r.label("psychographics"))
	r.keyValue("Personality", strings.Join(p.Psychographics.Personality, ", "))
	r.keyValue("Values", strings.Join(p.Psychographics.Values, ", "))
	r.keyValue("Interests", strings.Join(p.Psychographics.Interests, ", "))
	r.keyValue("Lifestyle", p.Psychographics.Lifestyle)
	pdf.Ln(sectionGap)

	r.bulletBlock(r.label("goals"), p.Goals)
	r.bulletBlock(r.label("frustrations"), p.Frustrations)
	r.bulletBlock(r.label("behaviors"), p.Behaviors)
	r.bulletBlock(r.label("previousExperiences"), p.PreviousExperiences)

	r.textBlock(r.label("scenario"), p.Scenario)
	r.textBlock(r.label("jobToBeDone"), p.JobToBeDone)
	r.textBlock(r.label("successCriteria"), p.SuccessCriteria)

	r.moodBoard(p)
}

func (r *reportWriter) strategySection(strategies []models.StrategyRecommendation) {
	pdf := r.pdf
	pdf.AddPage()

	pdf.SetTextColor(accentR, accentG, accentB)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, r.tr(r.label("strategiesHeading")), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	for i, s := range strategies {
		pdf.SetTextColor(30, 30, 30)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.MultiCell(0, 7, r.tr(fmt.Sprintf("%d. %s", i+1, s.Title)), "", "L", false)

		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(100, 100, 100)
		meta := string(s.Category)
		if s.Priority != "" {
			meta += " | " + r.label("priority") + ": " + string(s.Priority)
		}
		pdf.CellFormat(0, 5, r.tr(meta), "", 1, "L", false, 0, "")

		r.body(s.Description)
		if len(s.ActionItems) > 0 {
			r.subLabel(r.label("actionItems"))
			for _, item := range s.ActionItems {
				r.bullet(item)
			}
		}
		pdf.Ln(sectionGap)
	}
}

// moodBoard lays the persona's inline images out in a grid, capped at
// models.MaxMoodBoardImages. Only data URLs are embedded; remote URLs are
// skipped since rendering never performs network fetches.
func (r *reportWriter) moodBoard(p models.Persona) {
	var placed int
	for i, src := range p.MoodBoard {
		if placed >= models.MaxMoodBoardImages {
			break
		}
		data, imageType, err := decodeDataURL(src)
		if err != nil {
			slog.Warn("export.moodBoard: skipping image", "persona", p.Name, "index", i, "error", err)
			continue
		}
		if placed == 0 {
			r.pdf.Ln(sectionGap)
			r.heading("Mood Board")
		}
		name := fmt.Sprintf("mood-%s-%d", p.ID, i)
		opts := fpdf.ImageOptions{ImageType: imageType}
		r.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		col := placed % moodPerRow
		if col == 0 && placed > 0 {
			r.pdf.Ln(moodTileMM + 2)
		}
		x := pageMargin + float64(col)*(moodTileMM+4)
		r.pdf.ImageOptions(name, x, r.pdf.GetY(), moodTileMM, 0, false, opts, 0, "")
		placed++
	}
	if placed > 0 {
		r.pdf.Ln(moodTileMM + 2)
	}
}

func (r *reportWriter) heading(text string) {
	r.pdf.SetTextColor(accentR, accentG, accentB)
	r.pdf.SetFont("Helvetica", "B", 13)
	r.pdf.CellFormat(0, 8, r.tr(text), "", 1, "L", false, 0, "")
}

func (r *reportWriter) subLabel(text string) {
	r.pdf.SetTextColor(30, 30, 30)
	r.pdf.SetFont("Helvetica", "B", 10)
	r.pdf.CellFormat(0, 6, r.tr(text), "", 1, "L", false, 0, "")
}

func (r *reportWriter) keyValue(key, value string) {
	if value == "" {
		return
	}
	r.pdf.SetFont("Helvetica", "B", 10)
	r.pdf.SetTextColor(30, 30, 30)
	r.pdf.CellFormat(35, bodyLine, r.tr(key), "", 0, "L", false, 0, "")
	r.pdf.SetFont("Helvetica", "", 10)
	r.pdf.SetTextColor(60, 60, 60)
	r.pdf.MultiCell(0, bodyLine, r.tr(value), "", "L", false)
}

func (r *reportWriter) body(text string) {
	if text == "" {
		return
	}
	r.pdf.SetFont("Helvetica", "", 10)
	r.pdf.SetTextColor(60, 60, 60)
	r.pdf.MultiCell(0, bodyLine, r.tr(text), "", "L", false)
}

func (r *reportWriter) bullet(text string) {
	r.pdf.SetFont("Helvetica", "", 10)
	r.pdf.SetTextColor(60, 60, 60)
	r.pdf.MultiCell(0, bodyLine, r.tr("- "+text), "", "L", false)
}

func (r *reportWriter) bulletBlock(label string, items []string) {
	if len(items) == 0 {
		return
	}
	r.subLabel(label)
	for _, item := range items {
		r.bullet(item)
	}
	r.pdf.Ln(2)
}

func (r *reportWriter) textBlock(label, text string) {
	if text == "" {
		return
	}
	r.subLabel(label)
	r.body(text)
	r.pdf.Ln(2)
}

// decodeDataURL splits a base64 image data URL into raw bytes and the image
// type name the renderer expects.
func decodeDataURL(src string) ([]byte, string, error) {
	if !strings.HasPrefix(src, "data:image/") {
		return nil, "", fmt.Errorf("not an inline image: %.24s", src)
	}
	rest := strings.TrimPrefix(src, "data:image/")
	semi := strings.Index(rest, ";base64,")
	if semi < 0 {
		return nil, "", fmt.Errorf("not base64 encoded: %.24s", src)
	}
	var imageType string
	switch rest[:semi] {
	case "png":
		imageType = "PNG"
	case "jpeg", "jpg":
		imageType = "JPG"
	case "gif":
		imageType = "GIF"
	default:
		return nil, "", fmt.Errorf("unsupported image type %q", rest[:semi])
	}
	data, err := base64.StdEncoding.DecodeString(rest[semi+len(";base64,"):])
	if err != nil {
		return nil, "", fmt.Errorf("decode image payload: %w", err)
	}
	return data, imageType, nil
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
