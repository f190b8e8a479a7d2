// Package models provides domain models for the trading journal.
package models

import "strings"

// Emotion is the trader's self-reported state when a trade was taken.
type Emotion string

const (
	EmotionConfident   Emotion = "Confident"
	EmotionNeutral     Emotion = "Neutral"
	EmotionAnxious     Emotion = "Anxious"
	EmotionExcited     Emotion = "Excited"
	EmotionFearful     Emotion = "Fearful"
	EmotionGreedy      Emotion = "Greedy"
	EmotionDisciplined Emotion = "Disciplined"
)

// Emotions lists the accepted emotion labels in display order.
var Emotions = []Emotion{
	EmotionConfident,
	EmotionNeutral,
	EmotionAnxious,
	EmotionExcited,
	EmotionFearful,
	EmotionGreedy,
	EmotionDisciplined,
}

// ParseEmotion matches a label case-insensitively. Unknown labels are
// returned unchanged with ok == false.
func ParseEmotion(s string) (Emotion, bool) {
	s = strings.TrimSpace(s)
	for _, e := range Emotions {
		if strings.EqualFold(string(e), s) {
			return e, true
		}
	}
	return Emotion(s), false
}

// StrategyStatus represents the lifecycle status of a strategy.
type StrategyStatus string

const (
	StrategyActive     StrategyStatus = "active"
	StrategyTesting    StrategyStatus = "testing"
	StrategyDeprecated StrategyStatus = "deprecated"
)

// ParseStrategyStatus normalizes a status string.
func ParseStrategyStatus(s string) (StrategyStatus, bool) {
	switch StrategyStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyActive:
		return StrategyActive, true
	case StrategyTesting:
		return StrategyTesting, true
	case StrategyDeprecated:
		return StrategyDeprecated, true
	}
	return StrategyStatus(s), false
}

// Sheet names used by the record stores.
const (
	SheetTrades     = "Trades"
	SheetStrategies = "Strategies"
	SheetPsychology = "Psychology"
)
