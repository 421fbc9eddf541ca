package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		answer string
		want   Outcome
	}{
		{
			name:   "plain object",
			answer: `{"is_organism": true, "confidence": 88, "reason": "clear side view", "characteristics_found": ["mane", "tawny coat"]}`,
			want:   Outcome{IsValid: true, Confidence: 88, Reason: "clear side view", Characteristics: []string{"mane", "tawny coat"}},
		},
		{
			name:   "wrapped in prose and fence",
			answer: "Here is my analysis:\n```json\n{\"is_organism\": false, \"confidence\": 12, \"reason\": \"this is a leopard\"}\n```\nThanks!",
			want:   Outcome{IsValid: false, Confidence: 12, Reason: "this is a leopard", Characteristics: []string{}},
		},
		{
			name:   "alternate keys",
			answer: `{"is_valid": true, "confidence": 71, "reason": "ok", "characteristics": ["stripes"]}`,
			want:   Outcome{IsValid: true, Confidence: 71, Reason: "ok", Characteristics: []string{"stripes"}},
		},
		{
			name:   "numeric string confidence with percent",
			answer: `{"is_organism": "true", "confidence": " 64.5% "}`,
			want:   Outcome{IsValid: true, Confidence: 65, Reason: ReasonUndetermined, Characteristics: []string{}},
		},
		{
			name:   "confidence clamped high",
			answer: `{"is_organism": true, "confidence": 180}`,
			want:   Outcome{IsValid: true, Confidence: 100, Reason: ReasonUndetermined, Characteristics: []string{}},
		},
		{
			name:   "confidence clamped low",
			answer: `{"is_organism": false, "confidence": -20, "reason": "  "}`,
			want:   Outcome{IsValid: false, Confidence: 0, Reason: ReasonUndetermined, Characteristics: []string{}},
		},
		{
			name:   "missing fields use defaults",
			answer: `{}`,
			want:   Outcome{IsValid: false, Confidence: DefaultAnswerConfidence, Reason: ReasonUndetermined, Characteristics: []string{}},
		},
		{
			name:   "non string characteristics skipped",
			answer: `{"is_organism": true, "confidence": 90, "characteristics_found": ["ears", 3, null, ""]}`,
			want:   Outcome{IsValid: true, Confidence: 90, Reason: ReasonUndetermined, Characteristics: []string{"ears"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseAnswer(tt.answer)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAnswer_Failures(t *testing.T) {
	t.Parallel()

	for _, answer := range []string{
		"",
		"no json here",
		"} backwards {",
		`{"is_organism": true, "confidence": 90`,
		`{"is_organism": true, "confidence": "very high"}`,
		`{"is_organism": true, "confidence": [1]}`,
	} {
		_, err := ParseAnswer(answer)
		require.Error(t, err, "answer %q", answer)
		assert.ErrorIs(t, err, ErrUnparsableAnswer)
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	p := BuildPrompt(" Bengal Tiger ", "")
	assert.Contains(t, p, "determine if it shows the organism: Bengal Tiger\n")
	assert.Contains(t, p, "Scientific name: N/A")
	assert.Contains(t, p, `"characteristics_found"`)
	assert.Contains(t, p, "100 is absolutely certain this is Bengal Tiger")

	p = BuildPrompt("Lion", "Panthera leo")
	assert.Contains(t, p, "Scientific name: Panthera leo")
}
