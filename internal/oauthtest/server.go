// Package oauthtest provides test doubles shared by the authenticator
// packages: a mock Frontify instance implementing the OAuth endpoints, and
// a scripted popup window.
package oauthtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
)

// Server is a mock Frontify instance serving the OAuth endpoints. Protocol
// calls address instances as https://<domain>/..., so tests route them
// here with Client().
type Server struct {
	server *httptest.Server

	mu           sync.Mutex
	sessionKey   string
	code         string
	accessToken  string
	refreshToken string
	expiresIn    int

	failSession bool
	failPoll    bool
	failToken   bool
	failRefresh bool
	failRevoke  bool

	requests []Request
}

// Request records one call the mock received.
type Request struct {
	Path string
	Body map[string]string
}

// NewServer starts a mock instance with sensible defaults.
func NewServer() *Server {
	s := &Server{
		sessionKey:   "test-session",
		code:         "test-code",
		accessToken:  "test-access-token",
		refreshToken: "test-refresh-token",
		expiresIn:    3600,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth/create/session", s.handleSession)
	mux.HandleFunc("/api/oauth/poll", s.handlePoll)
	mux.HandleFunc("/api/oauth/accesstoken", s.handleAccessToken)
	mux.HandleFunc("/api/oauth/refresh", s.handleRefresh)
	mux.HandleFunc("/api/oauth/revoke", s.handleRevoke)

	s.server = httptest.NewServer(mux)
	return s
}

// Close shuts the mock down.
func (s *Server) Close() {
	s.server.Close()
}

// Client returns an HTTP client that routes every request to the mock,
// whatever domain the caller addressed.
func (s *Server) Client() *http.Client {
	target, _ := url.Parse(s.server.URL)
	return &http.Client{
		Transport: &rewriteTransport{target: target, base: http.DefaultTransport},
	}
}

// rewriteTransport redirects all requests to the mock server.
type rewriteTransport struct {
	target *url.URL
	base   http.RoundTripper
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = t.target.Scheme
	clone.URL.Host = t.target.Host
	return t.base.RoundTrip(clone)
}

// SetSessionKey sets the key returned by session creation.
func (s *Server) SetSessionKey(key string) { s.set(func() { s.sessionKey = key }) }

// SetCode sets the authorization code returned by the session poll.
func (s *Server) SetCode(code string) { s.set(func() { s.code = code }) }

// SetTokenResponse sets the exchange and refresh response fields.
func (s *Server) SetTokenResponse(accessToken, refreshToken string, expiresIn int) {
	s.set(func() {
		s.accessToken = accessToken
		s.refreshToken = refreshToken
		s.expiresIn = expiresIn
	})
}

// FailSession makes session creation return 500.
func (s *Server) FailSession(fail bool) { s.set(func() { s.failSession = fail }) }

// FailPoll makes the session poll return 500.
func (s *Server) FailPoll(fail bool) { s.set(func() { s.failPoll = fail }) }

// FailToken makes the token exchange return 500.
func (s *Server) FailToken(fail bool) { s.set(func() { s.failToken = fail }) }

// FailRefresh makes the refresh grant return 500.
func (s *Server) FailRefresh(fail bool) { s.set(func() { s.failRefresh = fail }) }

// FailRevoke makes revocation return 500.
func (s *Server) FailRevoke(fail bool) { s.set(func() { s.failRevoke = fail }) }

func (s *Server) set(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// Requests returns a copy of the recorded calls.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// CallCount returns how many calls hit the given path.
func (s *Server) CallCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) record(r *http.Request) map[string]string {
	body := map[string]string{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	s.requests = append(s.requests, Request{Path: r.URL.Path, Body: body})
	s.mu.Unlock()
	return body
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	s.record(r)

	s.mu.Lock()
	fail, key := s.failSession, s.sessionKey
	s.mu.Unlock()

	if fail {
		http.Error(w, "session creation failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"data": map[string]string{"key": key},
	})
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	s.record(r)

	s.mu.Lock()
	fail, code := s.failPoll, s.code
	s.mu.Unlock()

	if fail {
		http.Error(w, "poll failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"data": map[string]interface{}{
			"payload": map[string]string{"code": code},
		},
	})
}

func (s *Server) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	s.record(r)

	s.mu.Lock()
	fail := s.failToken
	s.mu.Unlock()

	if fail {
		http.Error(w, "exchange failed", http.StatusInternalServerError)
		return
	}
	s.writeToken(w)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.record(r)

	s.mu.Lock()
	fail := s.failRefresh
	s.mu.Unlock()

	if fail {
		http.Error(w, "refresh failed", http.StatusInternalServerError)
		return
	}
	s.writeToken(w)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	s.record(r)

	s.mu.Lock()
	fail := s.failRevoke
	s.mu.Unlock()

	if fail {
		http.Error(w, "revoke failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) writeToken(w http.ResponseWriter) {
	s.mu.Lock()
	access, refresh, expires := s.accessToken, s.refreshToken, s.expiresIn
	s.mu.Unlock()

	writeJSON(w, map[string]interface{}{
		"access_token":  access,
		"expires_in":    expires,
		"refresh_token": refresh,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
