package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitChangesGlobalLevel(t *testing.T) {
	Init(Config{Level: "warn", Format: "json", Output: &bytes.Buffer{}})
	defer Init(DefaultConfig())

	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", zerolog.GlobalLevel())
	}
}

func TestInfoWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf, Timestamp: true})
	defer Init(DefaultConfig())

	Info().Str("account_id", "a1").Msg("account created")

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid JSON, got error: %v, body: %s", err, buf.String())
	}
	if decoded["message"] != "account created" {
		t.Fatalf("unexpected message field: %v", decoded["message"])
	}
	if decoded["account_id"] != "a1" {
		t.Fatalf("unexpected account_id field: %v", decoded["account_id"])
	}
}

func TestErrorAttachesError(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Error().Err(errTest{"boom"}).Msg("append failed")

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid JSON, got error: %v", err)
	}
	if decoded["error"] != "boom" {
		t.Fatalf("expected error field 'boom', got %v", decoded["error"])
	}
}

type errTest struct{ msg string }

func (e errTest) Error() string { return e.msg }
