package apiclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/tidwall/gjson"
)

// attempt describes one network call.
type attempt struct {
	method  string
	url     string
	headers map[string]string
	body    []byte
	timeout time.Duration
}

// executor performs exactly one attempt of a request.
type executor struct {
	httpClient *http.Client
}

// do performs the call under a.timeout and classifies the outcome.
func (x *executor) do(ctx context.Context, a attempt) (*Payload, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var bodyReader io.Reader
	if a.body != nil {
		bodyReader = bytes.NewReader(a.body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, a.method, a.url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept-Encoding", "br, gzip")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, attemptCtx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := readBody(resp)
	if err != nil {
		return nil, classifyTransportError(ctx, attemptCtx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newHTTPStatusError(resp.StatusCode, httpErrorMessage(resp.StatusCode, body))
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return &Payload{Kind: PayloadText, Body: body, Status: resp.StatusCode}, nil
	}

	if !gjson.ValidBytes(body) {
		return nil, newNetworkError("invalid JSON in response body", nil)
	}
	if isEnvelope(body) {
		return unwrapEnvelope(resp.StatusCode, body)
	}
	return &Payload{Kind: PayloadJSON, Body: body, Status: resp.StatusCode}, nil
}

// classifyTransportError maps a failed call to Timeout or Network. A cancelled
// parent context is returned as is so the retry loop stops.
func classifyTransportError(parent, attemptCtx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return newTimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newTimeoutError(err)
	}
	return newNetworkError(err.Error(), err)
}

// httpErrorMessage prefers a JSON "message" member, then the raw text, then "HTTP <status>".
func httpErrorMessage(status int, body []byte) string {
	fallback := "HTTP " + strconv.Itoa(status)
	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, "message").String(); msg != "" {
			return msg
		}
		return fallback
	}
	if text := string(body); text != "" {
		return text
	}
	return fallback
}

func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = gz.Close()
		}()
		r = gz
	}
	return io.ReadAll(r)
}
