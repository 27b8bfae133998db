// Package metrics records service-level counters and latencies. Components
// take a Recorder; NewNop is the default so nothing needs nil checks.
package metrics

import "time"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

type Recorder interface {
	// TxRetry counts one optimistic transaction retry.
	TxRetry(op string)
	VoteCast(outcome string)
	Generation(outcome string, d time.Duration)
	ExternalCall(source, outcome string, d time.Duration)
}

type Nop struct{}

var _ Recorder = Nop{}

func NewNop() Nop { return Nop{} }

func (Nop) TxRetry(string)                             {}
func (Nop) VoteCast(string)                            {}
func (Nop) Generation(string, time.Duration)           {}
func (Nop) ExternalCall(string, string, time.Duration) {}

// OrNop returns r, or a no-op recorder when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}
