// Package scoring computes pronunciation similarity between a transcribed
// utterance and the text the learner was asked to read, and derives the
// improvement suggestions shown after a practice session.
package scoring

import "strings"

// Suggestion messages, tiered by score.
const (
	msgNoSpeech = "No speech detected. Please speak louder and clearer."

	msgExcellent = "Excellent pronunciation! Well done!"

	msgGoodMinor = "Good pronunciation! Minor improvements needed."
	msgEnunciate = "Try to enunciate each word clearly."

	msgPracticeNeeded = "Practice needed. Focus on pronunciation accuracy."
	msgListenRetry    = "Listen to the expected pronunciation and try again."

	msgSignificant    = "Significant improvement needed."
	msgPracticeSlowly = "Please practice the pronunciation slowly."
	msgNativeSpeakers = "Consider listening to native speakers."
)

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Levenshtein returns the edit distance between a and b with unit costs for
// insertion, deletion and substitution. Operates on runes, not bytes.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	matrix := make([][]int, len(ra)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(rb)+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len(rb); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			deletion := matrix[i-1][j] + 1
			insertion := matrix[i][j-1] + 1
			substitution := matrix[i-1][j-1] + cost
			matrix[i][j] = min(deletion, insertion, substitution)
		}
	}
	return matrix[len(ra)][len(rb)]
}

// Similarity scores how closely the transcribed text matches the expected
// text as 1 - distance/maxLen over the normalized (trimmed, lowercased)
// strings, clamped to [0,1]. Two empty strings compare as identical; one
// empty string against a non-empty one scores zero.
func Similarity(transcribed, expected string) float64 {
	a := normalize(transcribed)
	b := normalize(expected)

	la := len([]rune(a))
	lb := len([]rune(b))
	if la == 0 && lb == 0 {
		return 1.0
	}
	if la == 0 || lb == 0 {
		return 0.0
	}

	distance := Levenshtein(a, b)
	similarity := 1.0 - float64(distance)/float64(max(la, lb))
	return clamp01(similarity)
}

// Suggestions maps a similarity score to the feedback messages for that
// tier. Tier boundaries are inclusive on the lower bound: a score of
// exactly 0.9 earns the top tier.
func Suggestions(score float64, transcribedEmpty bool) []string {
	if transcribedEmpty {
		return []string{msgNoSpeech}
	}
	switch {
	case score >= 0.9:
		return []string{msgExcellent}
	case score >= 0.7:
		return []string{msgGoodMinor, msgEnunciate}
	case score >= 0.5:
		return []string{msgPracticeNeeded, msgListenRetry}
	default:
		return []string{msgSignificant, msgPracticeSlowly, msgNativeSpeakers}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
