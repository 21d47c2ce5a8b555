package auth

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/frontify/authenticator-go/pkg/auth/types"
	"github.com/frontify/authenticator-go/pkg/popup"
)

// activeAttempt holds the per-attempt state: the popup and the single
// channel its signals are funneled into. The closed-window poll and the
// message listener can both report the same physical event (a close fires
// cancelled and aborted, and a cancel message may race a native close);
// funneling everything into one buffered channel and waiting with one
// select means only the first settlement is ever acted upon.
type activeAttempt struct {
	popup  *popup.Popup
	events chan popup.Signal
}

// beginAttempt enforces the single-popup invariant and opens the attempt's
// popup. A popup still open from a previous in-flight attempt is
// force-closed before the new one opens.
func (a *Authenticator) beginAttempt(cfg popup.Config, logger zerolog.Logger) (*activeAttempt, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active != nil {
		logger.Debug().Msg("force-closing popup from previous attempt")
		// Settle the superseded attempt's wait before its popup goes away.
		select {
		case a.active.events <- popup.SignalAborted:
		default:
		}
		a.active.popup.Close()
		a.active = nil
	}

	p, err := popup.Open(a.opener, cfg, logger)
	if err != nil {
		return nil, err
	}

	attempt := &activeAttempt{
		popup:  p,
		events: make(chan popup.Signal, 8),
	}

	emit := func(sig popup.Signal) func() {
		return func() {
			select {
			case attempt.events <- sig:
			default:
			}
		}
	}
	p.OnDomain(emit(popup.SignalDomain))
	p.OnSuccess(emit(popup.SignalSuccess))
	p.OnCancelled(emit(popup.SignalCancelled))
	p.OnAborted(emit(popup.SignalAborted))

	a.active = attempt
	return attempt, nil
}

// endAttempt releases the attempt's popup resources. It runs on every
// terminal path, success or failure.
func (a *Authenticator) endAttempt(attempt *activeAttempt) {
	attempt.popup.Close()

	a.mu.Lock()
	if a.active == attempt {
		a.active = nil
	}
	a.mu.Unlock()
}

// wait blocks until the expected signal, a cancellation signal, the phase
// timeout, or context cancellation. Signals other than the expected one
// and the cancellation pair are ignored and the wait continues on the same
// timer.
func (att *activeAttempt) wait(ctx context.Context, timeout time.Duration, expect popup.Signal) (popup.Signal, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case sig := <-att.events:
			switch sig {
			case expect, popup.SignalCancelled, popup.SignalAborted:
				return sig, nil
			}
		case <-timer.C:
			return "", types.NewError(types.CodeAuthorizationTimedOut, "authorization timed out", nil)
		case <-ctx.Done():
			return "", types.NewError(types.CodeAuthorizationCancelled, "authorization cancelled", ctx.Err())
		}
	}
}
