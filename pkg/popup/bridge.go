package popup

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// BrowserWindowOpener opens popup windows backed by the system browser.
//
// A native process has no window.opener channel, so the cross-window
// message contract is bridged over a loopback WebSocket: OpenWindow starts
// a local server and opens the browser at its bridge page, which connects
// back on /events and forwards window messages as JSON frames. The WebSocket
// connection doubles as the liveness signal: once a page has connected,
// a dropped connection is reported as the window having closed.
type BrowserWindowOpener struct {
	// Opener launches URLs; defaults to the system browser.
	Opener BrowserOpener
	// ListenAddr is the bridge listen address; defaults to 127.0.0.1:0.
	ListenAddr string
	// Logger receives debug events; defaults to a no-op logger.
	Logger zerolog.Logger
}

// OpenWindow starts the bridge server and opens the browser at its page.
// An error here maps to the popup having been blocked.
func (o *BrowserWindowOpener) OpenWindow(cfg Config) (Window, error) {
	opener := o.Opener
	if opener == nil {
		opener = &SystemBrowserOpener{}
	}

	addr := o.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start message bridge: %w", err)
	}

	w := &BrowserWindow{
		opener: opener,
		logger: o.Logger,
		msgs:   make(chan Message, 16),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", w.handleBridgePage(cfg))
	mux.HandleFunc("/events", w.handleEvents)

	w.server = &http.Server{Handler: mux}
	w.bridgeURL = "http://" + listener.Addr().String() + "/"

	go func() { _ = w.server.Serve(listener) }()

	if err := opener.Open(w.bridgeURL); err != nil {
		_ = w.server.Close()
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}

	return w, nil
}

// BrowserWindow is the browser-backed Window implementation.
type BrowserWindow struct {
	opener    BrowserOpener
	server    *http.Server
	bridgeURL string
	logger    zerolog.Logger

	msgs chan Message

	mu            sync.Mutex
	conn          *websocket.Conn
	connected     bool
	everConnected bool
	closed        bool
}

// BridgeURL returns the local bridge page address.
func (w *BrowserWindow) BridgeURL() string {
	return w.bridgeURL
}

// Navigate opens the target URL in the browser. The bridge page stays put
// so the message channel survives the navigation.
func (w *BrowserWindow) Navigate(url string) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return fmt.Errorf("window is closed")
	}
	return w.opener.Open(url)
}

// Closed reports whether the window has gone away. The window counts as
// closed once a bridge page connected and its connection dropped.
func (w *BrowserWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed || (w.everConnected && !w.connected)
}

// Messages returns the inbound message stream.
func (w *BrowserWindow) Messages() <-chan Message {
	return w.msgs
}

// Post writes a message to the connected bridge page.
func (w *BrowserWindow) Post(msg Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected || w.conn == nil {
		return fmt.Errorf("no window connected")
	}
	return w.conn.WriteJSON(msg)
}

// Close shuts the bridge down. Safe to call more than once.
func (w *BrowserWindow) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	conn := w.conn
	w.conn = nil
	w.connected = false
	w.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	return w.server.Close()
}

var bridgeUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The bridge accepts any origin: messages arrive from instance pages
	// whose domain is supplied by the user at runtime.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleEvents accepts the bridge page's WebSocket connection and reads
// message frames from it.
func (w *BrowserWindow) handleEvents(rw http.ResponseWriter, r *http.Request) {
	conn, err := bridgeUpgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Debug().Err(err).Msg("bridge upgrade failed")
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		_ = conn.Close()
		return
	}
	if w.conn != nil {
		_ = w.conn.Close()
	}
	w.conn = conn
	w.connected = true
	w.everConnected = true
	w.mu.Unlock()

	w.logger.Debug().Msg("bridge page connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				w.logger.Debug().Err(err).Msg("bridge read error")
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			// Bare string frames carry sentinel payloads.
			msg = Message{Text: string(data)}
		}

		select {
		case w.msgs <- msg:
		default:
			w.logger.Debug().Msg("bridge message dropped, buffer full")
		}
	}

	w.mu.Lock()
	if w.conn == conn {
		w.conn = nil
		w.connected = false
	}
	w.mu.Unlock()
	_ = conn.Close()
}

// handleBridgePage serves the page the browser opens first. It connects
// the WebSocket and relays window messages to the bridge.
func (w *BrowserWindow) handleBridgePage(cfg Config) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(rw, r)
			return
		}
		rw.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(rw, bridgePageHTML, cfg.Title)
	}
}

const bridgePageHTML = `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
<p>Waiting for authorization&hellip; keep this window open.</p>
<script>
var ws = new WebSocket("ws://" + location.host + "/events");
window.addEventListener("message", function (event) {
  if (ws.readyState !== WebSocket.OPEN) return;
  if (typeof event.data === "string") {
    ws.send(JSON.stringify({text: event.data}));
  } else if (event.data && typeof event.data === "object") {
    ws.send(JSON.stringify(event.data));
  }
});
</script>
</body>
</html>
`
