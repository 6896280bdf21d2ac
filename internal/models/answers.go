package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// AnswerSet maps question ids to the submitted answer text. It is stored as a
// JSON object whose keys are the decimal question ids.
type AnswerSet map[int64]string

// Get returns the answer for questionID and whether one was given.
func (a AnswerSet) Get(questionID int64) (string, bool) {
	v, ok := a[questionID]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (a AnswerSet) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[int64]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *AnswerSet) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = AnswerSet{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("answer set: unsupported column type %T", src)
	}
	out := map[int64]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("answer set: %w", err)
		}
	}
	*a = out
	return nil
}
