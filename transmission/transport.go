package transmission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

const (
	// SessionIDHeader carries the session token in both directions.
	SessionIDHeader = "X-Transmission-Session-Id"

	// UninitializedSessionID is sent until the daemon hands out a real token.
	UninitializedSessionID = "NOT-INITIALIZED"
)

// handshakeState tracks progress through the session handshake of a single Send.
type handshakeState int

const (
	// stateAuthenticated: sending with the token we currently hold.
	stateAuthenticated handshakeState = iota
	// stateRefreshing: the daemon returned 409 and we resend once with its token.
	stateRefreshing
)

// Transport sends RPC requests to a single endpoint and owns the session token.
type Transport struct {
	url        string
	username   string
	password   string
	userAgent  string
	httpClient *http.Client
	observer   Observer

	mu        sync.RWMutex
	sessionID string
}

// NewTransport creates a Transport for url. Basic auth is attached when username is non-empty.
func NewTransport(url, username, password string, httpClient *http.Client, observer Observer) *Transport {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if observer == nil {
		observer = NopObserver{}
	}

	return &Transport{
		url:        url,
		username:   username,
		password:   password,
		httpClient: httpClient,
		observer:   observer,
		sessionID:  UninitializedSessionID,
	}
}

// SessionID returns the token that will be attached to the next request.
func (t *Transport) SessionID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sessionID
}

func (t *Transport) setSessionID(id string) {
	t.mu.Lock()
	previous := t.sessionID
	t.sessionID = id
	t.mu.Unlock()

	t.observer.SessionRefreshed(previous, id)
}

// Send posts {method, arguments} to the endpoint. A 409 answer triggers one
// token refresh and one resend; the resend's response is returned whatever its
// status. Non-2xx responses are returned as responses, not errors.
func (t *Transport) Send(ctx context.Context, method string, arguments Arguments) (*Response, error) {
	if arguments == nil {
		arguments = Arguments{}
	}

	body, err := json.Marshal(Request{Method: method, Arguments: arguments})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	state := stateAuthenticated
	for {
		resp, err := t.post(ctx, method, body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusConflict || state == stateRefreshing {
			return resp, nil
		}

		t.setSessionID(resp.Header.Get(SessionIDHeader))
		state = stateRefreshing
	}
}

// post issues a single HTTP POST carrying the current session token.
func (t *Transport) post(ctx context.Context, method string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Method: method, URL: t.url, Err: err}
	}

	req.Header.Set(SessionIDHeader, t.SessionID())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if t.username != "" {
		req.SetBasicAuth(t.username, t.password)
	}

	t.observer.RequestSent(t.url, body)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, URL: t.url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: t.url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       respBody,
	}

	t.observer.ResponseReceived(out)

	return out, nil
}
