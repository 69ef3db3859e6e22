// Package i18n holds the display-language string tables for the wizard
// surface and the exported report. Lookups fall back to English, then to the
// key itself, so a missing translation never breaks rendering.
package i18n

import (
	"log/slog"

	"github.com/personabolt/personabolt/internal/models"
)

var english = map[string]string{
	"appTitle":              "PersonaBolt",
	"appTagline":            "AI-generated personas and strategy for your product",
	"stepInput":             "Product Brief",
	"stepPersonas":          "Review Personas",
	"stepStrategy":          "Strategy",
	"confirmRestartTitle":   "Start over?",
	"confirmRestartMessage": "Returning to the product brief discards the generated personas and strategies. Your brief is kept.",
	"confirmRestartYes":     "Discard and restart",
	"confirmRestartNo":      "Keep working",
	"reportTitle":           "Personas & Strategy Report",
	"generatedOn":           "Generated on",
	"projectSummary":        "Project Summary",
	"productName":           "Product",
	"productDescription":    "Description",
	"targetAudience":        "Target Audience",
	"supportingMaterials":   "Supporting Materials",
	"documents":             "Documents",
	"links":                 "Links",
	"personasHeading":       "Personas",
	"goals":                 "Goals",
	"frustrations":          "Frustrations",
	"behaviors":             "Behaviors",
	"demographics":          "Demographics",
	"psychographics":        "Psychographics",
	"scenario":              "Scenario",
	"jobToBeDone":           "Job To Be Done",
	"successCriteria":       "Success Criteria",
	"previousExperiences":   "Previous Experiences",
	"strategiesHeading":     "Strategy Recommendations",
	"priority":              "Priority",
	"actionItems":           "Action Items",
	"years":                 "years",
}

var german = map[string]string{
	"appTitle":              "PersonaBolt",
	"appTagline":            "KI-generierte Personas und Strategie für Ihr Produkt",
	"stepInput":             "Produktbeschreibung",
	"stepPersonas":          "Personas prüfen",
	"stepStrategy":          "Strategie",
	"confirmRestartTitle":   "Neu beginnen?",
	"confirmRestartMessage": "Die Rückkehr zur Produktbeschreibung verwirft die generierten Personas und Strategien. Ihre Beschreibung bleibt erhalten.",
	"confirmRestartYes":     "Verwerfen und neu beginnen",
	"confirmRestartNo":      "Weiterarbeiten",
	"reportTitle":           "Personas- & Strategiebericht",
	"generatedOn":           "Erstellt am",
	"projectSummary":        "Projektübersicht",
	"productName":           "Produkt",
	"productDescription":    "Beschreibung",
	"targetAudience":        "Zielgruppe",
	"supportingMaterials":   "Begleitmaterial",
	"documents":             "Dokumente",
	"links":                 "Links",
	"personasHeading":       "Personas",
	"goals":                 "Ziele",
	"frustrations":          "Frustrationen",
	"behaviors":             "Verhaltensweisen",
	"demographics":          "Demografie",
	"psychographics":        "Psychografie",
	"scenario":              "Szenario",
	"jobToBeDone":           "Aufgabe",
	"successCriteria":       "Erfolgskriterien",
	"previousExperiences":   "Bisherige Erfahrungen",
	"strategiesHeading":     "Strategieempfehlungen",
	"priority":              "Priorität",
	"actionItems":           "Maßnahmen",
	"years":                 "Jahre",
}

var chinese = map[string]string{
	"appTitle":              "PersonaBolt",
	"appTagline":            "为您的产品生成 AI 用户画像与策略",
	"stepInput":             "产品简介",
	"stepPersonas":          "审阅画像",
	"stepStrategy":          "策略",
	"confirmRestartTitle":   "重新开始？",
	"confirmRestartMessage": "返回产品简介将丢弃已生成的画像和策略。您的简介会被保留。",
	"confirmRestartYes":     "丢弃并重新开始",
	"confirmRestartNo":      "继续编辑",
	"reportTitle":           "用户画像与策略报告",
	"generatedOn":           "生成日期",
	"projectSummary":        "项目概要",
	"productName":           "产品",
	"productDescription":    "描述",
	"targetAudience":        "目标用户",
	"supportingMaterials":   "支持材料",
	"documents":             "文档",
	"links":                 "链接",
	"personasHeading":       "用户画像",
	"goals":                 "目标",
	"frustrations":          "痛点",
	"behaviors":             "行为",
	"demographics":          "人口属性",
	"psychographics":        "心理属性",
	"scenario":              "使用场景",
	"jobToBeDone":           "核心任务",
	"successCriteria":       "成功标准",
	"previousExperiences":   "既往经历",
	"strategiesHeading":     "策略建议",
	"priority":              "优先级",
	"actionItems":           "行动项",
	"years":                 "岁",
}

var tables = map[models.Language]map[string]string{
	models.LanguageEnglish: english,
	models.LanguageGerman:  german,
	models.LanguageChinese: chinese,
}

// Lookup resolves a display string for the given language. Unknown keys fall
// back to the English table and finally to the key itself.
func Lookup(lang models.Language, key string) string {
	if table, ok := tables[lang]; ok {
		if s, ok := table[key]; ok {
			return s
		}
	}
	if s, ok := english[key]; ok {
		return s
	}
	slog.Warn("i18n.Lookup: unknown key", "key", key, "language", lang)
	return key
}

// Table returns the full string table for a language, merged over English so
// every key is present. Handed to the UI surface in one response.
func Table(lang models.Language) map[string]string {
	out := make(map[string]string, len(english))
	for k, v := range english {
		out[k] = v
	}
	if table, ok := tables[lang]; ok {
		for k, v := range table {
			out[k] = v
		}
	}
	return out
}
