package integration

import (
	"errors"
	"testing"
)

func TestResult(t *testing.T) {
	ok := OK("email")
	if !ok.Succeeded() || ok.String() != "email: ok" {
		t.Fatalf("unexpected %s", ok)
	}

	failed := Failed("sms", errors.New("timeout"))
	if failed.Succeeded() || failed.String() != "sms: failed (timeout)" {
		t.Fatalf("unexpected %s", failed)
	}

	skipped := Skipped("google-calendar", "disabled")
	if skipped.Succeeded() || skipped.Err != nil {
		t.Fatalf("unexpected %s", skipped)
	}
}
