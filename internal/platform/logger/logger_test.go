package logger

import (
	"strings"
	"testing"
)

func TestRedactionApply(t *testing.T) {
	r := &redaction{}

	out := r.apply([]interface{}{
		"pseudonym", "qtest-0001",
		"followup_password", "pw",
		"questionnaire_id", 5,
		"payload", map[string]interface{}{"user_id": "qtest-0002", "status": "active"},
	})
	if len(out) != 8 {
		t.Fatalf("len: want=8 got=%d", len(out))
	}
	hashed, _ := out[1].(string)
	if !strings.HasPrefix(hashed, "hash:") || strings.Contains(hashed, "qtest") {
		t.Fatalf("pseudonym: want hashed value got=%v", out[1])
	}
	if out[3] != "[REDACTED]" {
		t.Fatalf("password: want=[REDACTED] got=%v", out[3])
	}
	if out[5] != 5 {
		t.Fatalf("questionnaire_id: want=5 got=%v", out[5])
	}
	nested, _ := out[7].(map[string]interface{})
	if nested["status"] != "active" || !strings.HasPrefix(nested["user_id"].(string), "hash:") {
		t.Fatalf("payload: want nested user_id hashed got=%v", out[7])
	}
}

func TestRedactionDisabled(t *testing.T) {
	t.Setenv("LOG_REDACTION_ENABLED", "off")
	r := redactionFromEnv()
	if r != nil {
		t.Fatalf("want nil redaction when disabled")
	}
	kv := []interface{}{"pseudonym", "qtest-0001"}
	if got := r.apply(kv); got[1] != "qtest-0001" {
		t.Fatalf("disabled: want value untouched got=%v", got[1])
	}
}

func TestHashIsSaltedAndStable(t *testing.T) {
	plain := &redaction{}
	salted := &redaction{salt: "pepper"}
	if plain.hash("qtest-0001") != plain.hash("qtest-0001") {
		t.Fatalf("hash: want stable")
	}
	if plain.hash("qtest-0001") == salted.hash("qtest-0001") {
		t.Fatalf("hash: want salt to change the digest")
	}
	if plain.hash("") != "" {
		t.Fatalf("hash of empty: want empty")
	}
}

func TestWithKeepsRedaction(t *testing.T) {
	t.Setenv("LOG_REDACTION_ENABLED", "true")
	log, err := New("test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	child := log.With("component", "x")
	if child.redact == nil || child.redact != log.redact {
		t.Fatalf("With: want shared redaction settings")
	}
}
