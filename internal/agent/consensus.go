package agent

import (
	"regexp"
	"strconv"
	"strings"
)

// LexicalConsensus measures agreement between responses as the share of
// vocabulary used by at least half of them. Fewer than two responses count as
// full consensus.
func LexicalConsensus(responses []string) float64 {
	if len(responses) < 2 {
		return 1.0
	}

	wordCounts := make(map[string]int)
	vocabulary := make(map[string]struct{})

	for _, response := range responses {
		seen := make(map[string]struct{})
		for _, word := range strings.Fields(strings.ToLower(response)) {
			if _, dup := seen[word]; dup {
				continue
			}
			seen[word] = struct{}{}
			vocabulary[word] = struct{}{}
			wordCounts[word]++
		}
	}
	if len(vocabulary) == 0 {
		return 0
	}

	threshold := float64(len(responses)) * 0.5
	common := 0
	for _, count := range wordCounts {
		if float64(count) >= threshold {
			common++
		}
	}

	score := float64(common) / float64(len(vocabulary))
	if score > 1 {
		score = 1
	}
	return score
}

var consensusScorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)consensus score[：:]\s*([0-9]*\.?[0-9]+)`),
	regexp.MustCompile(`(?i)overall score[：:]\s*([0-9]*\.?[0-9]+)`),
	regexp.MustCompile(`([0-9]*\.?[0-9]+)\s*/\s*1(?:\.0)?\b`),
	regexp.MustCompile(`(?i)\bscore[：:]\s*([0-9]*\.?[0-9]+)`),
}

// extractConsensusScore pulls the numeric consensus score out of the
// coordinator's evaluation text. The last match of the first matching pattern
// wins; unparseable responses default to 0.5.
func extractConsensusScore(response string) float64 {
	for _, re := range consensusScorePatterns {
		matches := re.FindAllStringSubmatch(response, -1)
		if len(matches) == 0 {
			continue
		}
		raw := matches[len(matches)-1][1]
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if score > 1 && score <= 100 {
			score /= 100
		}
		if score >= 0 && score <= 1 {
			return score
		}
	}
	return 0.5
}

// agreementPhrases short-circuit conflict detection: an explicit statement of
// agreement beats any conflict wording later in the response.
var agreementPhrases = []string{
	"no significant conflicts",
	"no significant conflict",
	"no material conflicts",
	"no conflicts",
	"opinions are consistent",
	"opinions align",
	"broad agreement",
	"general agreement",
	"consensus reached",
	"fully agree",
}

var conflictPhrases = []string{
	"significant conflicts exist",
	"significant conflict",
	"material conflict",
	"conflicting diagnoses",
	"incompatible recommendations",
	"opinions diverge",
	"clear disagreement",
	"directly opposed",
	"contradictory",
}

var conflictKeywords = []string{
	"conflict",
	"disagree",
	"divergen",
	"contradict",
	"dispute",
	"incompatible",
}

// parseConflictResponse decides whether the coordinator's conflict-detection
// text reports a material conflict. Explicit agreement phrases win, then
// explicit conflict phrases, then a count of conflict keywords.
func parseConflictResponse(response string) bool {
	lower := strings.ToLower(response)

	for _, phrase := range agreementPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	for _, phrase := range conflictPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	hits := 0
	for _, kw := range conflictKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits >= 2
}
