package worker

import "github.com/cenkalti/backoff"

// SetNewBackOff swaps the retry policy constructor, returning a restore func.
func SetNewBackOff(fn func() backoff.BackOff) (restore func()) {
	prev := newBackOff
	if fn != nil {
		newBackOff = fn
	}
	return func() { newBackOff = prev }
}
