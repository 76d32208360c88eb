package checkout

import "errors"

var ErrIllegalTransition = errors.New("illegal transition of checkout state")

type State string

const (
	StateIdle               State = "IDLE"
	StateOrderCreated       State = "ORDER_CREATED"
	StatePaymentSuccess     State = "PAYMENT_SUCCESS"
	StatePaymentCancelled   State = "PAYMENT_CANCELLED"
	StatePaymentTimeout     State = "PAYMENT_TIMEOUT"
	StatePaymentFailed      State = "PAYMENT_FAILED"
	StateVerifying          State = "VERIFYING"
	StateCommitted          State = "COMMITTED"
	StateVerificationFailed State = "VERIFICATION_FAILED"
	StateCommitFailed       State = "COMMIT_FAILED"
)

var transitions = map[State][]State{
	StateIdle:           {StateOrderCreated, StatePaymentFailed, StateVerifying},
	StateOrderCreated:   {StatePaymentSuccess, StatePaymentCancelled, StatePaymentTimeout, StatePaymentFailed},
	StatePaymentSuccess: {StateVerifying},
	StateVerifying:      {StateCommitted, StateVerificationFailed, StateCommitFailed},
}

// CanTransitionTo reports whether next may follow s. Every state may fall back to Idle.
func CanTransitionTo(s, next State) bool {
	if next == StateIdle {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s State) IsTerminal() bool {
	switch s {
	case StatePaymentCancelled, StatePaymentTimeout, StatePaymentFailed,
		StateCommitted, StateVerificationFailed, StateCommitFailed:
		return true
	}
	return false
}

func (s State) String() string {
	return string(s)
}
