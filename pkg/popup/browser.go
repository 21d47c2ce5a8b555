package popup

import "github.com/skratchdot/open-golang/open"

// BrowserOpener launches a URL in a browser. The production implementation
// shells out to the platform launcher; tests substitute a recorder.
type BrowserOpener interface {
	Open(url string) error
}

// BrowserOpenerFunc adapts a plain function to the BrowserOpener interface.
type BrowserOpenerFunc func(url string) error

// Open calls f.
func (f BrowserOpenerFunc) Open(url string) error { return f(url) }

// SystemBrowserOpener opens URLs in the system default browser.
type SystemBrowserOpener struct{}

// Open opens a URL in the system default browser.
func (s *SystemBrowserOpener) Open(url string) error {
	return open.Run(url)
}
