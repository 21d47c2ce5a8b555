// Package popup owns the interactive browser surface of the authorization
// flow: a popup window handle, a closed-window detection poll, and a
// listener that demultiplexes inbound cross-window messages into four
// signals (domain, success, cancelled, aborted).
package popup

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/frontify/authenticator-go/pkg/auth/types"
)

// Signal names the events a popup can report.
type Signal string

const (
	// SignalDomain fires when the selection page reports a chosen domain.
	SignalDomain Signal = "domain"
	// SignalSuccess fires when the popup reports completed authorization.
	SignalSuccess Signal = "success"
	// SignalCancelled fires when the user cancels, or closes the window.
	SignalCancelled Signal = "cancelled"
	// SignalAborted fires on abandonment, including window close.
	SignalAborted Signal = "aborted"
)

// ClosePollInterval is how often the window handle is checked for closure.
// Polling is the only way a native close (the user clicking the window's
// close button) is detected: no message arrives in that case.
const ClosePollInterval = 100 * time.Millisecond

// Popup drives one popup window. It owns the window handle, the
// closed-window poll, and the message listener, and tears all three down
// on Close. At most one callback is registered per signal; re-registering
// replaces the previous callback.
type Popup struct {
	window Window
	logger zerolog.Logger

	mu        sync.Mutex
	callbacks map[Signal]func()
	domain    string

	done      chan struct{}
	closeOnce sync.Once
}

// Open opens a popup window via the opener and starts its poll and
// listener. It fails with a PopupBlocked error when the browser refuses
// the window; browsers typically only allow popups opened synchronously
// within a user gesture, so callers should invoke the flow directly from
// a click handler.
func Open(opener WindowOpener, cfg Config, logger zerolog.Logger) (*Popup, error) {
	window, err := opener.OpenWindow(cfg.withDefaults())
	if err != nil {
		return nil, types.NewError(types.CodePopupBlocked, "browser blocked the popup window", err)
	}

	p := &Popup{
		window:    window,
		logger:    logger,
		callbacks: make(map[Signal]func()),
		done:      make(chan struct{}),
	}

	go p.pollClosed()
	go p.listen()

	return p, nil
}

// Navigate replaces the popup's location. It fails with a PopupClosed
// error when the window has already gone away.
func (p *Popup) Navigate(url string) error {
	if p.window.Closed() {
		return types.NewError(types.CodePopupClosed, "popup window is closed", nil)
	}
	if err := p.window.Navigate(url); err != nil {
		return types.NewError(types.CodePopupClosed, "failed to navigate popup", err)
	}
	return nil
}

// OnDomain registers the callback for the domain signal.
func (p *Popup) OnDomain(cb func()) { p.register(SignalDomain, cb) }

// OnSuccess registers the callback for the success signal.
func (p *Popup) OnSuccess(cb func()) { p.register(SignalSuccess, cb) }

// OnCancelled registers the callback for the cancelled signal.
func (p *Popup) OnCancelled(cb func()) { p.register(SignalCancelled, cb) }

// OnAborted registers the callback for the aborted signal.
func (p *Popup) OnAborted(cb func()) { p.register(SignalAborted, cb) }

func (p *Popup) register(sig Signal, cb func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks[sig] = cb
}

// Domain returns the last domain received via a domain message.
func (p *Popup) Domain() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.domain
}

// Post sends a message into the popup window, best-effort.
func (p *Popup) Post(msg Message) error {
	return p.window.Post(msg)
}

// Close tears the popup down: callbacks are cleared, the closed-window
// poll and the message listener stop, and the window handle is closed.
// Close is idempotent.
func (p *Popup) Close() {
	p.closeOnce.Do(func() {
		close(p.done)

		p.mu.Lock()
		p.callbacks = make(map[Signal]func())
		p.mu.Unlock()

		if err := p.window.Close(); err != nil {
			p.logger.Debug().Err(err).Msg("popup window close failed")
		}
		p.logger.Debug().Msg("popup closed")
	})
}

// pollClosed watches the window handle for closure. On detecting it, both
// cancelled and aborted fire once and the poll stops. Either of these may
// race with the same signal arriving as a message; consumers must treat
// the second occurrence as a no-op.
func (p *Popup) pollClosed() {
	ticker := time.NewTicker(ClosePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			if p.window.Closed() {
				p.logger.Debug().Msg("popup window reported closed")
				p.fire(SignalCancelled)
				p.fire(SignalAborted)
				return
			}
		}
	}
}

// listen demultiplexes inbound messages into signals.
func (p *Popup) listen() {
	msgs := p.window.Messages()
	for {
		select {
		case <-p.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			p.dispatch(msg)
		}
	}
}

func (p *Popup) dispatch(msg Message) {
	switch {
	case msg.Text == SentinelCancelled:
		p.fire(SignalCancelled)
	case msg.Text == SentinelSuccess:
		p.fire(SignalSuccess)
	case msg.Domain != "":
		p.mu.Lock()
		p.domain = msg.Domain
		p.mu.Unlock()
		p.fire(SignalDomain)
	case msg.Aborted:
		p.fire(SignalAborted)
	default:
		// Unrecognized messages are ignored.
	}
}

// fire invokes the registered callback for a signal, outside the lock so
// callbacks may call back into the popup.
func (p *Popup) fire(sig Signal) {
	p.mu.Lock()
	cb := p.callbacks[sig]
	p.mu.Unlock()

	if cb != nil {
		cb()
	}
}
