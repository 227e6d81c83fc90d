package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(redact bool) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return FromZap(zap.New(core), Options{Redact: redact, HashSalt: "salt"}), logs
}

func TestScrubsCredentialsAndMembers(t *testing.T) {
	log, logs := observed(true)
	log.Info("token issued",
		"member_id", "7d9f0a4e-0000-4000-8000-000000000001",
		"access_token", "abc",
		"pin", "1234",
		"header", "Bearer xyz",
		"family_id", "f-1",
	)

	fields := logs.All()[0].ContextMap()
	if fields["access_token"] != redacted || fields["pin"] != redacted || fields["header"] != redacted {
		t.Fatalf("secrets not redacted: %v", fields)
	}
	member, _ := fields["member_id"].(string)
	if !strings.HasPrefix(member, "m:") || strings.Contains(member, "7d9f0a4e") {
		t.Fatalf("member id not digested: %q", member)
	}
	if fields["family_id"] != "f-1" {
		t.Fatalf("family_id should pass through: %v", fields["family_id"])
	}
}

func TestMemberDigestIsStable(t *testing.T) {
	log, logs := observed(true)
	log.Info("a", "member_id", "m-1")
	log.With("caller_id", "m-1").Info("b")
	first := logs.All()[0].ContextMap()["member_id"]
	second := logs.All()[1].ContextMap()["caller_id"]
	if first != second {
		t.Fatalf("digest differs: %v vs %v", first, second)
	}
}

func TestRedactionOff(t *testing.T) {
	log, logs := observed(false)
	log.Warn("raw", "pin", "1234")
	fields := logs.All()[0].ContextMap()
	if fields["pin"] != "1234" {
		t.Fatalf("pin: want=1234 got=%v", fields["pin"])
	}
}

func TestNewWithOptionsRejectsBadLevel(t *testing.T) {
	if _, err := NewWithOptions(Options{Mode: "test", Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := NewWithOptions(Options{Mode: "production", Level: "warn"}); err != nil {
		t.Fatalf("production logger: %v", err)
	}
}
