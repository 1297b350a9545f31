package transmission

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
)

// Config holds the connection details of a Transmission daemon.
type Config struct {
	// URL is the full RPC endpoint, e.g. http://localhost:9091/transmission/rpc
	URL      string
	Username string
	Password string
	// Fields is the torrent field list requested by torrent-get. Empty means DefaultFields.
	Fields []string
	// Debug traces every request and response through the logger at debug
	// level, even when the logger itself is set higher. zerolog's global
	// level still applies.
	Debug bool
}

// Client exposes torrent operations on top of a Transport.
type Client struct {
	transport *Transport
	fields    []string
	logger    zerolog.Logger
}

// NewClient creates a new Transmission client. No request is made until the first operation.
func NewClient(cfg Config, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid transmission URL %q: %w", cfg.URL, err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.timeout}
	}

	observer := o.observer
	if observer == nil {
		if cfg.Debug {
			observer = NewLogObserver(logger.Level(zerolog.DebugLevel))
		} else {
			observer = NopObserver{}
		}
	}

	fields := cfg.Fields
	if len(fields) == 0 {
		fields = DefaultFields
	}

	transport := NewTransport(cfg.URL, cfg.Username, cfg.Password, httpClient, observer)
	transport.userAgent = o.userAgent

	return &Client{
		transport: transport,
		fields:    append([]string(nil), fields...),
		logger:    logger,
	}, nil
}

// Fields returns the torrent fields requested by torrent-get calls.
func (c *Client) Fields() []string {
	return append([]string(nil), c.fields...)
}

// SessionID returns the session token currently held by the client.
func (c *Client) SessionID() string {
	return c.transport.SessionID()
}

// All retrieves every torrent known to the daemon.
func (c *Client) All(ctx context.Context) ([]Torrent, error) {
	c.logger.Debug().Msg("Getting torrents")

	env, err := c.call(ctx, MethodTorrentGet, Arguments{
		"fields": c.fields,
	})
	if err != nil {
		return nil, err
	}

	var torrents []Torrent
	if err := env.Decode("torrents", &torrents); err != nil {
		return nil, &DecodeError{Method: MethodTorrentGet, Err: err}
	}

	c.logger.Debug().Msgf("Retrieved %d torrents from Transmission", len(torrents))
	return torrents, nil
}

// Find retrieves a single torrent. An unknown id yields nil without an error.
func (c *Client) Find(ctx context.Context, id any) (Torrent, error) {
	normalized, err := normalizeID(id)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Interface("id", normalized).Msg("Getting torrent")

	torrents, err := c.get(ctx, []any{normalized})
	if err != nil {
		return nil, err
	}
	if len(torrents) == 0 {
		return nil, nil
	}
	return torrents[0], nil
}

// FindAll retrieves the torrents with the given ids. ids may be a single id or a slice.
func (c *Client) FindAll(ctx context.Context, ids any) ([]Torrent, error) {
	list, err := normalizeIDs(ids)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Interface("ids", list).Msg("Getting torrents")

	return c.get(ctx, list)
}

func (c *Client) get(ctx context.Context, ids []any) ([]Torrent, error) {
	env, err := c.call(ctx, MethodTorrentGet, Arguments{
		"fields": c.fields,
		"ids":    ids,
	})
	if err != nil {
		return nil, err
	}

	var torrents []Torrent
	if err := env.Decode("torrents", &torrents); err != nil {
		return nil, &DecodeError{Method: MethodTorrentGet, Err: err}
	}
	return torrents, nil
}

// Move relocates torrent data to location. ids may be a single id or a slice.
// The returned arguments are usually empty on success.
func (c *Client) Move(ctx context.Context, ids any, location string) (map[string]any, error) {
	list, err := normalizeIDs(ids)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Interface("ids", list).Str("location", location).Msg("Moving torrents")

	env, err := c.call(ctx, MethodTorrentSetLocation, moveArguments(list, location))
	if err != nil {
		return nil, err
	}

	args := make(map[string]any, len(env.Arguments))
	for key := range env.Arguments {
		var v any
		if err := env.Decode(key, &v); err != nil {
			return nil, &DecodeError{Method: MethodTorrentSetLocation, Err: err}
		}
		args[key] = v
	}
	return args, nil
}

func moveArguments(ids []any, location string) Arguments {
	return Arguments{
		"ids":      ids,
		"location": location,
		"move":     true,
	}
}

// Add adds a torrent by file path, URL or magnet link and returns the added record.
// If the daemon already has it, the existing record is returned along with ErrDuplicateTorrent.
func (c *Client) Add(ctx context.Context, filename string) (Torrent, error) {
	c.logger.Debug().Str("filename", filename).Msg("Adding torrent")

	env, err := c.call(ctx, MethodTorrentAdd, Arguments{
		"filename": filename,
	})
	if err != nil {
		return nil, err
	}

	var added Torrent
	if err := env.Decode("torrent-added", &added); err != nil {
		return nil, &DecodeError{Method: MethodTorrentAdd, Err: err}
	}
	if added != nil {
		return added, nil
	}

	var duplicate Torrent
	if err := env.Decode("torrent-duplicate", &duplicate); err != nil {
		return nil, &DecodeError{Method: MethodTorrentAdd, Err: err}
	}
	if duplicate != nil {
		return duplicate, fmt.Errorf("%s: %w", filename, ErrDuplicateTorrent)
	}
	return nil, nil
}

// Delete removes a torrent and its downloaded data. The full envelope is returned.
func (c *Client) Delete(ctx context.Context, id any) (*Envelope, error) {
	c.logger.Debug().Interface("id", id).Msg("Removing torrent and local data")
	return c.remove(ctx, id, true)
}

// Remove removes a torrent but keeps its downloaded data. The full envelope is returned.
func (c *Client) Remove(ctx context.Context, id any) (*Envelope, error) {
	c.logger.Debug().Interface("id", id).Msg("Removing torrent")
	return c.remove(ctx, id, false)
}

func (c *Client) remove(ctx context.Context, id any, deleteLocalData bool) (*Envelope, error) {
	normalized, err := normalizeID(id)
	if err != nil {
		return nil, err
	}

	return c.call(ctx, MethodTorrentRemove, Arguments{
		"ids":               []any{normalized},
		"delete-local-data": deleteLocalData,
	})
}

// call sends one RPC and validates the envelope.
func (c *Client) call(ctx context.Context, method string, args Arguments) (*Envelope, error) {
	resp, err := c.transport.Send(ctx, method, args)
	if err != nil {
		return nil, err
	}

	return parseEnvelope(method, resp)
}

// parseEnvelope validates the reply. A non-2xx reply that still carries a
// failure result is reported as a ProtocolError with the daemon's message.
func parseEnvelope(method string, resp *Response) (*Envelope, error) {
	if !resp.OK() {
		var env Envelope
		if err := decodeJSON(resp.Body, &env); err == nil && env.Result != "" && !env.Succeeded() {
			return nil, &ProtocolError{Method: method, Result: env.Result}
		}
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(resp.Body),
		}
	}

	var env Envelope
	if err := decodeJSON(resp.Body, &env); err != nil {
		return nil, &DecodeError{Method: method, Body: string(resp.Body), Err: err}
	}

	if !env.Succeeded() {
		return nil, &ProtocolError{Method: method, Result: env.Result}
	}

	return &env, nil
}
