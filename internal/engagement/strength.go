// Package engagement turns raw view durations into interaction strengths.
package engagement

import (
	"math"
	"strings"
)

const (
	// MinViewSeconds filters accidental opens and bounces.
	MinViewSeconds = 5.0
	// WordsPerMinute is the assumed reading speed.
	WordsPerMinute = 250.0

	MaxStrength = 1.2
)

// Strength scores a view of an article with wordCount words that lasted
// viewSeconds. The result is always within [0, MaxStrength].
func Strength(wordCount int, viewSeconds float64) float64 {
	if viewSeconds < MinViewSeconds {
		return 0
	}

	estimated := EstimatedReadSeconds(wordCount)

	ratio := 0.3
	if estimated > 0 {
		ratio = math.Min(1.0, 0.3+0.7*math.Log1p(viewSeconds)/math.Log1p(estimated))
	}

	switch {
	case estimated > 0 && viewSeconds > 1.2*estimated:
		return MaxStrength
	case ratio > 0.7:
		return 1.0
	case ratio > 0.4:
		return 0.8
	case ratio > 0.2:
		return 0.5
	default:
		return 0.3
	}
}

// EstimatedReadSeconds is the time an average reader needs for wordCount words.
func EstimatedReadSeconds(wordCount int) float64 {
	if wordCount <= 0 {
		return 0
	}
	return float64(wordCount) / WordsPerMinute * 60
}

func WordCount(content string) int {
	return len(strings.Fields(content))
}
