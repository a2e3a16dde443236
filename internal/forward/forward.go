// Package forward executes prepared upstream requests and relays provider
// responses, streaming or buffered, back to the caller.
package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/modelgate/modelgate/internal/types"
)

var errStreamingUnsupported = errors.New("streaming unsupported by client connection")

// Request is a fully prepared upstream call. Auth material is already in
// Header; the executor adds nothing.
type Request struct {
	Method   string
	URL      string
	Header   http.Header
	Body     []byte
	Stream   bool
	Provider string
}

// Response is a buffered upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// Result records what happened to a relayed call, for logging and usage
// accounting.
type Result struct {
	Provider         string
	Model            string
	StatusCode       int
	Duration         time.Duration
	Streamed         bool
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	UpstreamUsage    bool
	FinishReason     string
	ErrorMessage     string
}

// Executor performs exactly one attempt per call; retry policy belongs to
// the caller.
type Executor struct {
	client *http.Client
}

// NewExecutor creates an executor with a shared upstream client.
// Compression is disabled so streamed chunks pass through unbuffered.
func NewExecutor() *Executor {
	return &Executor{
		client: &http.Client{
			Transport: &http.Transport{
				DisableCompression: true,
			},
		},
	}
}

func (e *Executor) do(ctx context.Context, req *Request) (*http.Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	upstream, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	if req.Header != nil {
		upstream.Header = req.Header.Clone()
	}

	return e.client.Do(upstream)
}

// Send executes the request and buffers the full response, whatever the
// status. Used when the body needs translation before reaching the caller.
func (e *Executor) Send(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	resp, err := e.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}

// Relay executes the request and copies the upstream response to the client
// unmodified. Streaming responses are flushed as bytes arrive; error
// statuses are forwarded with their bodies intact.
func (e *Executor) Relay(ctx context.Context, w http.ResponseWriter, req *Request) (*Result, error) {
	start := time.Now()
	result := &Result{Provider: req.Provider}

	resp, err := e.do(ctx, req)
	if err != nil {
		result.StatusCode = http.StatusBadGateway
		result.ErrorMessage = err.Error()
		result.Duration = time.Since(start)
		http.Error(w, "Bad Gateway: "+err.Error(), http.StatusBadGateway)
		return result, err
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	if resp.StatusCode < 400 && (req.Stream || isEventStream(resp.Header)) {
		result.Streamed = true
		err = flushCopy(w, resp.Body)
	} else {
		_, err = io.Copy(w, resp.Body)
	}

	result.Duration = time.Since(start)
	if err != nil {
		result.ErrorMessage = err.Error()
	}
	return result, err
}

// RelayStream executes an SSE request, forwarding chunks verbatim while
// collecting model, usage, and finish reason from the stream. Error statuses
// are buffered and forwarded with the provider message extracted.
func (e *Executor) RelayStream(ctx context.Context, w http.ResponseWriter, req *Request) (*Result, error) {
	start := time.Now()
	result := &Result{Provider: req.Provider, Streamed: true}

	resp, err := e.do(ctx, req)
	if err != nil {
		result.StatusCode = http.StatusBadGateway
		result.ErrorMessage = err.Error()
		result.Duration = time.Since(start)
		http.Error(w, "Bad Gateway: "+err.Error(), http.StatusBadGateway)
		return result, err
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	if resp.StatusCode >= 400 {
		result.Streamed = false
		forwardError(w, resp, result)
		result.Duration = time.Since(start)
		return result, nil
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		result.StatusCode = http.StatusInternalServerError
		result.ErrorMessage = errStreamingUnsupported.Error()
		result.Duration = time.Since(start)
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return result, errStreamingUnsupported
	}

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	stats := &streamStats{}
	err = scanLines(resp.Body, func(line []byte) error {
		chunk := append(line, '\n')
		if _, wErr := w.Write(chunk); wErr != nil {
			return wErr
		}
		flusher.Flush()
		stats.observe(line)
		return nil
	})

	result.FinishReason = stats.finishReason
	result.Content = stats.content.String()
	if stats.model != "" {
		result.Model = stats.model
	}
	if stats.usage != nil {
		result.PromptTokens = stats.usage.PromptTokens
		result.CompletionTokens = stats.usage.CompletionTokens
		result.TotalTokens = stats.usage.TotalTokens
		result.UpstreamUsage = true
	}

	result.Duration = time.Since(start)
	if err != nil {
		result.ErrorMessage = err.Error()
	}
	return result, err
}

// forwardError relays an upstream error response verbatim and extracts the
// provider message for logging.
func forwardError(w http.ResponseWriter, resp *http.Response, result *Result) {
	body, _ := io.ReadAll(resp.Body)

	var apiErr types.APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		result.ErrorMessage = apiErr.Error.Message
	}

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)
}

// flushCopy forwards r to w in chunks, flushing after every write so
// upstream pacing survives the hop. Works for SSE and binary streams alike.
func flushCopy(w http.ResponseWriter, r io.Reader) error {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, wErr := w.Write(buf[:n]); wErr != nil {
				return wErr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func copyHeaders(dst, src http.Header) {
	for k, v := range src {
		dst[k] = v
	}
}

func isEventStream(h http.Header) bool {
	return strings.Contains(h.Get("Content-Type"), "text/event-stream")
}
