package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/soaringjerry/modern360/internal/models"
)

// ParseAnswerKey accepts the key forms produced by older clients ("12",
// "question_12", "q12") and returns the question id.
func ParseAnswerKey(key string) (int64, error) {
	k := strings.TrimSpace(key)
	switch {
	case strings.HasPrefix(k, "question_"):
		k = strings.TrimPrefix(k, "question_")
	case strings.HasPrefix(k, "q"):
		k = strings.TrimPrefix(k, "q")
	}
	id, err := strconv.ParseInt(k, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid answer key %q", key)
	}
	return id, nil
}

// NormalizeAnswers converts a decoded JSON answer object into the canonical
// integer-keyed AnswerSet. Empty answers are dropped.
func NormalizeAnswers(raw map[string]any) (models.AnswerSet, error) {
	out := models.AnswerSet{}
	for key, val := range raw {
		id, err := ParseAnswerKey(key)
		if err != nil {
			return nil, NewInvalidError(err.Error())
		}
		text := answerText(val)
		if text == "" {
			continue
		}
		out[id] = text
	}
	return out, nil
}

func answerText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, el := range t {
			if s := answerText(el); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
