package popup

// Sentinel message payloads posted by the authorization pages.
const (
	// SentinelCancelled is posted when the user cancels inside the popup.
	SentinelCancelled = "frontify-oauth-authorize-cancelled"
	// SentinelSuccess is posted when authorization completes in the popup.
	SentinelSuccess = "frontify-oauth-authorize-success"
)

// Message is one cross-window message received from (or posted into) the
// popup. Messages are accepted from any sender without origin validation:
// the popup is pointed at an instance domain the embedding application
// does not know in advance. Unrecognized shapes are ignored.
type Message struct {
	// Text carries a sentinel string payload.
	Text string `json:"text,omitempty"`
	// Domain carries the instance domain chosen on the selection page.
	Domain string `json:"domain,omitempty"`
	// Aborted signals that the popup-side flow was abandoned.
	Aborted bool `json:"aborted,omitempty"`
}

// Window is a native popup window handle. Implementations bridge a real
// browser surface (see BrowserWindowOpener) or script one for tests.
type Window interface {
	// Navigate replaces the window's location.
	Navigate(url string) error
	// Closed reports whether the window has gone away.
	Closed() bool
	// Close closes the window. It must be safe to call more than once.
	Close() error
	// Messages is the stream of inbound cross-window messages.
	Messages() <-chan Message
	// Post sends a message into the window, best-effort.
	Post(msg Message) error
}

// WindowOpener opens popup windows.
type WindowOpener interface {
	OpenWindow(cfg Config) (Window, error)
}

// Config controls the popup window's title and geometry. Zero fields are
// defaulted.
type Config struct {
	Title  string `yaml:"title,omitempty" json:"title,omitempty"`
	Width  int    `yaml:"width,omitempty" json:"width,omitempty"`
	Height int    `yaml:"height,omitempty" json:"height,omitempty"`
	Top    int    `yaml:"top,omitempty" json:"top,omitempty"`
	Left   int    `yaml:"left,omitempty" json:"left,omitempty"`
}

// withDefaults fills unset fields with the standard popup geometry.
func (c Config) withDefaults() Config {
	if c.Title == "" {
		c.Title = "Authorize Frontify"
	}
	if c.Width == 0 {
		c.Width = 800
	}
	if c.Height == 0 {
		c.Height = 600
	}
	if c.Top == 0 {
		c.Top = 50
	}
	if c.Left == 0 {
		c.Left = 50
	}
	return c
}
