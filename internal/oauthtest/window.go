package oauthtest

import (
	"fmt"
	"sync"
	"time"

	"github.com/frontify/authenticator-go/pkg/popup"
)

// FakeWindow is a scripted popup window. Tests emit messages and flip the
// closed flag to simulate popup-side behavior.
type FakeWindow struct {
	mu          sync.Mutex
	closed      bool
	navigations []string
	posted      []popup.Message
	navigateErr error

	msgs chan popup.Message
}

// NewFakeWindow creates an open fake window.
func NewFakeWindow() *FakeWindow {
	return &FakeWindow{msgs: make(chan popup.Message, 16)}
}

// Navigate records the target URL.
func (w *FakeWindow) Navigate(url string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.navigateErr != nil {
		return w.navigateErr
	}
	if w.closed {
		return fmt.Errorf("window is closed")
	}
	w.navigations = append(w.navigations, url)
	return nil
}

// Closed reports the scripted closed state.
func (w *FakeWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Close marks the window closed. Safe to call more than once.
func (w *FakeWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// Messages returns the inbound message stream.
func (w *FakeWindow) Messages() <-chan popup.Message {
	return w.msgs
}

// Post records an outbound message.
func (w *FakeWindow) Post(msg popup.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("window is closed")
	}
	w.posted = append(w.posted, msg)
	return nil
}

// Emit delivers a message as if the popup page had posted it.
func (w *FakeWindow) Emit(msg popup.Message) {
	w.msgs <- msg
}

// SetClosed scripts the native closed state without going through Close.
func (w *FakeWindow) SetClosed(closed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = closed
}

// SetNavigateErr makes subsequent Navigate calls fail.
func (w *FakeWindow) SetNavigateErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.navigateErr = err
}

// Navigations returns a copy of the recorded navigation targets.
func (w *FakeWindow) Navigations() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.navigations))
	copy(out, w.navigations)
	return out
}

// Posted returns a copy of the recorded outbound messages.
func (w *FakeWindow) Posted() []popup.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]popup.Message, len(w.posted))
	copy(out, w.posted)
	return out
}

// AwaitNavigation blocks until at least n navigations were recorded and
// returns the last one, or false on timeout.
func (w *FakeWindow) AwaitNavigation(n int, timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		w.mu.Lock()
		if len(w.navigations) >= n {
			last := w.navigations[len(w.navigations)-1]
			w.mu.Unlock()
			return last, true
		}
		w.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	return "", false
}

// FakeOpener opens FakeWindows. Each OpenWindow call creates a fresh
// window unless Err is set.
type FakeOpener struct {
	mu      sync.Mutex
	Err     error
	Windows []*FakeWindow
	Configs []popup.Config
}

// OpenWindow records the config and returns a new fake window.
func (o *FakeOpener) OpenWindow(cfg popup.Config) (popup.Window, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return nil, o.Err
	}
	w := NewFakeWindow()
	o.Windows = append(o.Windows, w)
	o.Configs = append(o.Configs, cfg)
	return w, nil
}

// Window returns the i-th opened window, or nil.
func (o *FakeOpener) Window(i int) *FakeWindow {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i >= len(o.Windows) {
		return nil
	}
	return o.Windows[i]
}

// AwaitWindow blocks until at least n windows were opened and returns the
// last one, or nil on timeout.
func (o *FakeOpener) AwaitWindow(n int, timeout time.Duration) *FakeWindow {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		o.mu.Lock()
		if len(o.Windows) >= n {
			w := o.Windows[len(o.Windows)-1]
			o.mu.Unlock()
			return w
		}
		o.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}
