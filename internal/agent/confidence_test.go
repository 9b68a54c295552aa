package agent

import "testing"

func TestExtractConfidenceExplicitPercent(t *testing.T) {
	got := ExtractConfidence("The findings favor NSIP.\n\nConfidence: 85%")
	if got != 0.85 {
		t.Errorf("got %f, want 0.85", got)
	}
}

func TestExtractConfidenceExplicitDecimal(t *testing.T) {
	got := ExtractConfidence("confidence: 0.7")
	if got != 0.7 {
		t.Errorf("got %f, want 0.7", got)
	}
}

func TestExtractConfidencePercentWithoutSign(t *testing.T) {
	got := ExtractConfidence("Confidence: 90")
	if got != 0.9 {
		t.Errorf("got %f, want 0.9", got)
	}
}

func TestExtractConfidenceKeywords(t *testing.T) {
	cases := []struct {
		response string
		want     float64
	}{
		{"the imaging is most consistent with UIP", 0.75},
		{"a connective tissue disease is highly likely here", 0.8},
		{"organizing pneumonia is possible", 0.6},
		{"the etiology remains unclear", 0.2},
	}
	for _, tc := range cases {
		if got := ExtractConfidence(tc.response); got != tc.want {
			t.Errorf("ExtractConfidence(%q) = %f, want %f", tc.response, got, tc.want)
		}
	}
}

func TestExtractConfidenceDefault(t *testing.T) {
	got := ExtractConfidence("a response with no hedging signal at all")
	if got != defaultConfidence {
		t.Errorf("got %f, want %f", got, defaultConfidence)
	}
}

func TestExtractConfidenceClamped(t *testing.T) {
	// 150% would exceed 1 even after percent normalization
	got := ExtractConfidence("Confidence: 150%")
	if got != 1.0 {
		t.Errorf("got %f, want 1.0", got)
	}
}
