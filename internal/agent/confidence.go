package agent

import (
	"regexp"
	"strconv"
	"strings"
)

// defaultConfidence is used when a response carries no recognizable
// confidence signal.
const defaultConfidence = 0.6

var confidencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)confidence[：:]\s*(\d+(?:\.\d+)?)\s*%`),
	regexp.MustCompile(`(?i)confidence[：:]\s*(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)certainty[：:]\s*(\d+(?:\.\d+)?)`),
}

// confidenceKeywords maps hedging language onto coarse confidence levels,
// checked in order from strongest to weakest.
var confidenceKeywords = []struct {
	phrase string
	score  float64
}{
	{"definitive", 0.9},
	{"definite", 0.9},
	{"certain", 0.9},
	{"highly likely", 0.8},
	{"high suspicion", 0.75},
	{"most consistent with", 0.75},
	{"favors", 0.7},
	{"probable", 0.7},
	{"likely", 0.7},
	{"possible", 0.6},
	{"suspected", 0.5},
	{"cannot be determined", 0.25},
	{"indeterminate", 0.25},
	{"uncertain", 0.3},
	{"unclear", 0.2},
}

// ExtractConfidence pulls a confidence estimate in [0,1] out of a response.
// An explicit "Confidence: NN%" line wins; otherwise hedging keywords give a
// coarse estimate, and the default is 0.6.
func ExtractConfidence(response string) float64 {
	for _, re := range confidencePatterns {
		if m := re.FindStringSubmatch(response); m != nil {
			value, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			if value > 1 {
				value /= 100
			}
			return clamp01(value)
		}
	}

	lower := strings.ToLower(response)
	for _, kw := range confidenceKeywords {
		if strings.Contains(lower, kw.phrase) {
			return kw.score
		}
	}
	return defaultConfidence
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
