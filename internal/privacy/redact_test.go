package privacy

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestScrubText(t *testing.T) {
	if got := ScrubText("hello world"); got != "[ANONYMIZED_11_CHARS]" {
		t.Errorf("ScrubText = %q", got)
	}
	// Rune count, not byte count.
	if got := ScrubText("héllo"); got != "[ANONYMIZED_5_CHARS]" {
		t.Errorf("ScrubText multibyte = %q", got)
	}
}

func TestRedactPayloadAllowList(t *testing.T) {
	payload := []byte(`{"old_phase":"consent","new_phase":"pre_quiz","participant_email":"p@example.com"}`)

	out, changed, err := RedactPayload("phase_transition", payload)
	if err != nil {
		t.Fatalf("RedactPayload: %v", err)
	}
	if !changed {
		t.Fatal("payload with a disallowed key must be reported changed")
	}

	var doc map[string]any
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("unmarshal redacted payload: %v", err)
	}
	if doc["old_phase"] != "consent" || doc["new_phase"] != "pre_quiz" {
		t.Errorf("allow-listed keys must survive: %v", doc)
	}
	if doc["participant_email"] != RedactedValue {
		t.Errorf("disallowed key must be replaced, got %v", doc["participant_email"])
	}
}

func TestRedactPayloadUnknownEventType(t *testing.T) {
	payload := []byte(`{"timestamp":"2026-03-01T10:00:00Z","free_text":"my name is Alice","x":10}`)

	out, changed, err := RedactPayload("mouse_move", payload)
	if err != nil {
		t.Fatalf("RedactPayload: %v", err)
	}
	if !changed {
		t.Fatal("unknown event type with unlisted keys must change")
	}

	var doc map[string]any
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc["timestamp"] != "2026-03-01T10:00:00Z" || doc["x"] != float64(10) {
		t.Errorf("default allow-list keys must survive: %v", doc)
	}
	if doc["free_text"] != RedactedValue {
		t.Errorf("unlisted key must be replaced, got %v", doc["free_text"])
	}
	if strings.Contains(string(out), "Alice") {
		t.Error("redacted payload still carries the original text")
	}
}

func TestRedactPayloadNested(t *testing.T) {
	payload := []byte(`{"role":"user","meta":{"ip":"10.0.0.1"},"tags":["a","b"]}`)

	out, changed, err := RedactPayload("chat_message", payload)
	if err != nil {
		t.Fatalf("RedactPayload: %v", err)
	}
	if !changed {
		t.Fatal("nested disallowed values must change the payload")
	}

	var doc struct {
		Role string            `json:"role"`
		Meta map[string]string `json:"meta"`
		Tags []string          `json:"tags"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Role != "user" {
		t.Errorf("role = %q", doc.Role)
	}
	if doc.Meta["ip"] != RedactedValue {
		t.Errorf("nested value must be replaced, got %q", doc.Meta["ip"])
	}
	if len(doc.Tags) != 2 || doc.Tags[0] != RedactedValue {
		t.Errorf("array elements must be replaced in place: %v", doc.Tags)
	}
}

func TestRedactPayloadEmptyAndInvalid(t *testing.T) {
	out, changed, err := RedactPayload("phase_transition", nil)
	if err != nil || changed || out != nil {
		t.Errorf("nil payload: out=%s changed=%t err=%v", out, changed, err)
	}

	out, changed, err = RedactPayload("phase_transition", []byte(`{"broken`))
	if err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if !changed {
		t.Error("invalid JSON must be replaced")
	}
	var doc map[string]string
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("replacement is not valid JSON: %v", err)
	}
	if doc["redacted"] != RedactedValue {
		t.Errorf("replacement = %v", doc)
	}
}

func TestRedactPayloadCleanPayloadUnchanged(t *testing.T) {
	payload := []byte(`{"old_phase":"consent","new_phase":"pre_quiz"}`)
	out, changed, err := RedactPayload("phase_transition", payload)
	if err != nil {
		t.Fatalf("RedactPayload: %v", err)
	}
	if changed {
		t.Error("fully allow-listed payload must be reported unchanged")
	}
	if string(out) != string(payload) {
		t.Error("unchanged payload must be returned as-is")
	}
}
