package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVs_RedactsContactDetails(t *testing.T) {
	out := sanitizeKVs([]interface{}{"phone", "+31600000000", "destination", "a@b.nl", "channel", "sms"})
	if out[1] != "[REDACTED]" || out[3] != "[REDACTED]" {
		t.Fatalf("expected contact details redacted, got %v", out)
	}
	if out[5] != "sms" {
		t.Fatalf("expected channel untouched, got %v", out[5])
	}
}

func TestSanitizeKVs_HashesSubjectIDs(t *testing.T) {
	out := sanitizeKVs([]interface{}{"user_id", "1234"})
	s, _ := out[1].(string)
	if !strings.HasPrefix(s, "hash:") || strings.Contains(s, "1234") {
		t.Fatalf("expected hashed id, got %q", s)
	}
}

func TestSanitizeKVs_OddLengthKeepsTrailingKey(t *testing.T) {
	out := sanitizeKVs([]interface{}{"job", "daily", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected output: %v", out)
	}
}
