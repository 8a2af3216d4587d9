package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultMaxTextLength bounds the text field when no limit is configured.
const DefaultMaxTextLength = 4096

// ErrMalformedPayload is returned when the body is not a JSON object at all.
var ErrMalformedPayload = errors.New("payload must be a JSON object")

// FieldError describes a single violated field constraint.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every field constraint a payload violated.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// timestamp layouts accepted for ts; offset-less values are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// ErrTimestampRange is returned for instants whose UTC year has more or
// fewer than four digits.
var ErrTimestampRange = errors.New("timestamp out of range")

// ParseMessage decodes and validates a webhook payload. It either returns a
// fully populated Message or an error, never a partial value.
func ParseMessage(raw []byte, maxTextLength int) (*Message, error) {
	if maxTextLength <= 0 {
		maxTextLength = DefaultMaxTextLength
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, ErrMalformedPayload
	}

	verr := &ValidationError{}
	msg := &Message{}

	if s, ok := requiredString(obj, "message_id", verr); ok {
		if strings.TrimSpace(s) == "" {
			verr.add("message_id", "must not be empty")
		}
		msg.MessageID = s
	}

	if s, ok := requiredString(obj, "from", verr); ok {
		if strings.TrimSpace(s) == "" {
			verr.add("from", "must not be empty")
		}
		msg.From = s
	}

	if v, present := obj["to"]; present && !isNull(v) {
		if err := json.Unmarshal(v, &msg.To); err != nil {
			verr.add("to", "must be a string")
		} else if strings.ContainsRune(msg.To, 0) {
			verr.add("to", "must not contain NUL characters")
		}
	}

	if s, ok := requiredString(obj, "ts", verr); ok {
		ts, err := ParseTimestamp(s)
		if err != nil {
			verr.add("ts", "must be an ISO-8601 timestamp")
		}
		msg.Timestamp = ts
	}

	if s, ok := requiredString(obj, "text", verr); ok {
		if n := utf8.RuneCountInString(s); n > maxTextLength {
			verr.add("text", fmt.Sprintf("must be at most %d characters", maxTextLength))
		}
		msg.Text = s
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return msg, nil
}

// ParseTimestamp parses an ISO-8601 timestamp and normalizes it to UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			t = t.UTC()
			if y := t.Year(); y < 0 || y > 9999 {
				return time.Time{}, ErrTimestampRange
			}
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func requiredString(obj map[string]json.RawMessage, field string, verr *ValidationError) (string, bool) {
	v, present := obj[field]
	if !present || isNull(v) {
		verr.add(field, "is required")
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		verr.add(field, "must be a string")
		return "", false
	}
	// PostgreSQL text cannot hold NUL.
	if strings.ContainsRune(s, 0) {
		verr.add(field, "must not contain NUL characters")
		return "", false
	}
	return s, true
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
