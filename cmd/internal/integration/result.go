package integration

import (
	"fmt"

	"github.com/labstack/gommon/log"
)

type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Result is what a best-effort side effect reports back. Callers log it;
// a failed result never undoes the operation that triggered it.
type Result struct {
	Channel string
	Outcome Outcome
	Reason  string
	Err     error
}

func OK(channel string) Result {
	return Result{Channel: channel, Outcome: OutcomeOK}
}

func Failed(channel string, err error) Result {
	return Result{Channel: channel, Outcome: OutcomeFailed, Reason: err.Error(), Err: err}
}

func Skipped(channel, reason string) Result {
	return Result{Channel: channel, Outcome: OutcomeSkipped, Reason: reason}
}

func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeOK
}

func (r Result) String() string {
	if r.Reason == "" {
		return fmt.Sprintf("%s: %s", r.Channel, r.Outcome)
	}
	return fmt.Sprintf("%s: %s (%s)", r.Channel, r.Outcome, r.Reason)
}

// Log records the result against subject: failures as warnings, the rest at debug level.
func (r Result) Log(subject string) {
	switch r.Outcome {
	case OutcomeFailed:
		log.Warnf("%s: %s", subject, r)
	default:
		log.Debugf("%s: %s", subject, r)
	}
}
