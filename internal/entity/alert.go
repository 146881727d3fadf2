package entity

// AlertLevel distinguishes highlighted alerts from ordinary ones.
type AlertLevel string

const (
	AlertLevelGold AlertLevel = "gold"
	AlertLevelBlue AlertLevel = "blue"
)

// Alert pairs a filing with its analysis once it crosses the
// confidence threshold. Alerts are broadcast payloads only; nothing is
// persisted.
type Alert struct {
	Filing     Filing         `json:"filing"`
	AIAnalysis AnalysisResult `json:"aiAnalysis"`
	AlertLevel AlertLevel     `json:"alertLevel"`
}

// LevelFor derives the alert level from the analysis.
func LevelFor(analysis AnalysisResult) AlertLevel {
	if analysis.AlertHighlight {
		return AlertLevelGold
	}
	return AlertLevelBlue
}
