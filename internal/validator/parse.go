package validator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"
)

// ParseAnswer reads a classifier answer. The JSON object may be wrapped in
// prose or a code fence; the span from the first '{' to the last '}' is used.
func ParseAnswer(answer string) (Outcome, error) {
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start < 0 || end < start {
		return Outcome{}, fmt.Errorf("%w: no JSON object in answer", ErrUnparsableAnswer)
	}

	obj, err := jason.NewObjectFromBytes([]byte(answer[start : end+1]))
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrUnparsableAnswer, err)
	}

	out := Outcome{
		IsValid:         answerBool(obj, "is_organism", "is_valid"),
		Confidence:      DefaultAnswerConfidence,
		Reason:          ReasonUndetermined,
		Characteristics: answerStrings(obj, "characteristics_found", "characteristics"),
	}

	if v, err := obj.GetValue("confidence"); err == nil {
		c, err := answerNumber(v)
		if err != nil {
			return Outcome{}, fmt.Errorf("%w: confidence: %w", ErrUnparsableAnswer, err)
		}
		out.Confidence = clampConfidence(c)
	}

	if reason, err := obj.GetString("reason"); err == nil && strings.TrimSpace(reason) != "" {
		out.Reason = strings.TrimSpace(reason)
	}

	return out, nil
}

func answerBool(obj *jason.Object, keys ...string) bool {
	for _, key := range keys {
		v, err := obj.GetValue(key)
		if err != nil {
			continue
		}
		if b, err := v.Boolean(); err == nil {
			return b
		}
		if s, err := v.String(); err == nil {
			if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
				return b
			}
		}
	}
	return false
}

// answerNumber accepts 87, 87.5, "87" and "87%".
func answerNumber(v *jason.Value) (float64, error) {
	if f, err := v.Float64(); err == nil {
		return f, nil
	}
	s, err := v.String()
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	return strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
}

func answerStrings(obj *jason.Object, keys ...string) []string {
	items := []string{}
	for _, key := range keys {
		v, err := obj.GetValue(key)
		if err != nil {
			continue
		}
		if s, err := v.String(); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
			return items
		}
		arr, err := v.Array()
		if err != nil {
			continue
		}
		for _, elem := range arr {
			if s, err := elem.String(); err == nil && strings.TrimSpace(s) != "" {
				items = append(items, strings.TrimSpace(s))
			}
		}
		return items
	}
	return items
}

func clampConfidence(c float64) int {
	if math.IsNaN(c) {
		return 0
	}
	return int(math.Max(0, math.Min(100, math.Round(c))))
}
