package privacy

import (
	"encoding/json"
	"fmt"
)

// RedactedValue replaces every payload field that is not allow-listed for its
// event type.
const RedactedValue = "[ANONYMIZED]"

// ScrubText replaces free-text content with a length-preserving marker so
// that downstream analyses keep message-length signals without the words.
func ScrubText(content string) string {
	return fmt.Sprintf("[ANONYMIZED_%d_CHARS]", len([]rune(content)))
}

// eventAllowLists maps an event type to the payload keys that may survive
// anonymization. Redaction is allow-list based: any key not listed for its
// event type is replaced, including keys nested inside objects and arrays.
// Substring-matching denylists ("email", "name", ...) are inherently
// incomplete, so unknown keys are never trusted.
var eventAllowLists = map[string]map[string]bool{
	"phase_transition": {
		"old_phase": true,
		"new_phase": true,
	},
	"session_started": {
		"session_id": true,
		"condition":  true,
	},
	"session_ended": {
		"session_id": true,
		"reason":     true,
	},
	"chat_message": {
		"role":         true,
		"length":       true,
		"content_hash": true,
	},
	"pdf_page_view": {
		"page_number":        true,
		"time_spent_seconds": true,
		"visit_count":        true,
	},
	"quiz_answer": {
		"quiz_type":   true,
		"question_id": true,
		"is_correct":  true,
	},
}

// defaultAllowList applies to event types without a declared schema. It keeps
// only structural telemetry keys that can never carry identity.
var defaultAllowList = map[string]bool{
	"event_type": true,
	"timestamp":  true,
	"duration":   true,
	"page":       true,
	"x":          true,
	"y":          true,
}

// allowListFor returns the allow-list for an event type.
func allowListFor(eventType string) map[string]bool {
	if list, ok := eventAllowLists[eventType]; ok {
		return list
	}
	return defaultAllowList
}

// RedactPayload rewrites a JSON event payload, keeping only allow-listed
// keys for the given event type. The payload shape (keys, nesting, array
// lengths) is preserved; disallowed values become RedactedValue. A nil or
// empty payload is returned unchanged. Invalid JSON is replaced wholesale,
// since an unparseable payload cannot be proven free of PII.
func RedactPayload(eventType string, payload []byte) ([]byte, bool, error) {
	if len(payload) == 0 {
		return payload, false, nil
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		replaced, merr := json.Marshal(map[string]string{"redacted": RedactedValue})
		if merr != nil {
			return nil, false, merr
		}
		return replaced, true, nil
	}

	allow := allowListFor(eventType)
	redacted, changed := redactValue(doc, allow, false)
	if !changed {
		return payload, false, nil
	}

	out, err := json.Marshal(redacted)
	if err != nil {
		return nil, false, fmt.Errorf("marshal redacted payload: %w", err)
	}
	return out, true, nil
}

// redactValue walks a decoded JSON value. keyAllowed carries whether the
// value sits under an allow-listed key; scalar values under disallowed keys
// are replaced.
func redactValue(v any, allow map[string]bool, keyAllowed bool) (any, bool) {
	switch t := v.(type) {
	case map[string]any:
		changed := false
		out := make(map[string]any, len(t))
		for k, inner := range t {
			repl, ch := redactValue(inner, allow, allow[k])
			out[k] = repl
			changed = changed || ch
		}
		return out, changed
	case []any:
		changed := false
		out := make([]any, len(t))
		for i, inner := range t {
			repl, ch := redactValue(inner, allow, keyAllowed)
			out[i] = repl
			changed = changed || ch
		}
		return out, changed
	default:
		if keyAllowed {
			return v, false
		}
		return RedactedValue, true
	}
}
