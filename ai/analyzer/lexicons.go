package analyzer

import (
	"strings"

	"github.com/aico-ai/aico/ai/thread"
)

// Heuristic lexicons. These are deliberately small English marker sets; the
// scores they produce are coarse signals, refined downstream by the weighted
// scorer rather than trusted on their own.
var (
	topicShiftMarkers = []string{
		"by the way", "speaking of", "anyway", "also", "another thing",
		"changing topics", "different subject", "new topic",
	}

	greetingOpeners = []string{
		"hi", "hello", "hey", "good morning", "good afternoon",
	}

	farewellClosers = []string{
		"bye", "goodbye", "see you", "thanks", "thank you",
	}

	contextPronouns = map[string]struct{}{
		"it": {}, "that": {}, "this": {}, "they": {},
		"them": {}, "what": {}, "which": {}, "where": {},
	}
)

const (
	topicShiftHit = 0.8
	greetingHit   = 0.8
	farewellHit   = 0.9

	// pronounSaturation is the pronoun count at which a message counts as
	// fully context-dependent.
	pronounSaturation = 5.0
)

const tokenPunctuation = ".,!?;:'\""

// topicShiftScore returns a fixed high score when the message carries an
// explicit topic-shift marker, zero otherwise.
func topicShiftScore(text string) float64 {
	lower := strings.ToLower(text)
	for _, marker := range topicShiftMarkers {
		if strings.Contains(lower, marker) {
			return topicShiftHit
		}
	}
	return 0.0
}

// boundaryScore detects conversation-boundary phrasing: a greeting opener
// scores 0.8, a farewell closer 0.9. Farewells win when both match.
func boundaryScore(text string) float64 {
	lower := strings.ToLower(strings.TrimSpace(text))
	trimmed := strings.TrimRight(lower, tokenPunctuation+" ")

	for _, closer := range farewellClosers {
		if strings.HasSuffix(trimmed, closer) {
			return farewellHit
		}
	}
	for _, opener := range greetingOpeners {
		if strings.HasPrefix(lower, opener) {
			return greetingHit
		}
	}
	return 0.0
}

// contextDependencyScore estimates how much the message leans on prior
// context, from the density of anaphoric pronouns and wh-words.
func contextDependencyScore(text string) float64 {
	count := 0
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, tokenPunctuation)
		if _, ok := contextPronouns[token]; ok {
			count++
		}
	}
	return thread.Clamp01(float64(count) / pronounSaturation)
}
