package transmission

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Observer receives trace events from the Transport. Implementations must not
// affect the request; they are called synchronously on the calling goroutine.
type Observer interface {
	RequestSent(url string, body []byte)
	ResponseReceived(resp *Response)
	SessionRefreshed(previous, current string)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) RequestSent(string, []byte)      {}
func (NopObserver) ResponseReceived(*Response)      {}
func (NopObserver) SessionRefreshed(string, string) {}

// LogObserver traces the RPC exchange to a zerolog logger at debug level.
type LogObserver struct {
	logger zerolog.Logger
}

// NewLogObserver creates an observer writing to logger.
func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger.With().Str("component", "rpc-trace").Logger()}
}

func (o *LogObserver) RequestSent(url string, body []byte) {
	o.logger.Debug().
		Str("url", url).
		Str("post_body", renderBody(body)).
		Msg("Sending RPC request")
}

func (o *LogObserver) ResponseReceived(resp *Response) {
	o.logger.Debug().
		Int("code", resp.StatusCode).
		Str("message", resp.Status).
		Str("body_raw", string(resp.Body)).
		Str("body", renderBody(resp.Body)).
		Str("headers", renderHeaders(resp.Header)).
		Msg("Received RPC response")
}

func (o *LogObserver) SessionRefreshed(previous, current string) {
	o.logger.Debug().
		Str("previous", previous).
		Str("current", current).
		Msg("Changing session id")
}

// renderBody pretty-prints a JSON body as YAML. Anything that does not parse
// is returned verbatim.
func renderBody(body []byte) string {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return string(body)
	}
	out, err := yaml.Marshal(parsed)
	if err != nil {
		return string(body)
	}
	return strings.TrimRight(string(out), "\n")
}

func renderHeaders(header http.Header) string {
	out, err := yaml.Marshal(map[string][]string(header))
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(out), "\n")
}
