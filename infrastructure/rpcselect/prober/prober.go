// Package prober implements rpcselect.Prober against a JSON-RPC
// endpoint, using the eth_blockNumber method as the liveness check.
package prober

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// TransportError wraps a failure to reach the endpoint at all (DNS,
// connection refused, TLS handshake).
type TransportError struct{ Err error }

func (e *TransportError) Error() string { return fmt.Sprintf("prober: transport error: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError wraps a request that did not complete within the probe
// timeout.
type TimeoutError struct{ Err error }

func (e *TimeoutError) Error() string { return fmt.Sprintf("prober: timeout: %v", e.Err) }
func (e *TimeoutError) Unwrap() error { return e.Err }

// ProtocolError wraps a response that was received but was not a valid
// JSON-RPC success response (non-2xx status, malformed JSON, or an
// RPC-level error object).
type ProtocolError struct{ Err error }

func (e *ProtocolError) Error() string { return fmt.Sprintf("prober: protocol error: %v", e.Err) }
func (e *ProtocolError) Unwrap() error { return e.Err }

type jsonRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

// Prober probes a JSON-RPC endpoint's liveness by calling
// eth_blockNumber and parsing the hex-encoded block height out of the
// response with gjson.
type Prober struct {
	client *http.Client
}

// New builds a Prober. A zero value is usable; New exists so a caller
// can supply a client with custom transport settings (proxying,
// connection pooling).
func New() *Prober {
	return &Prober{
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
	}
}

// Probe sends a single eth_blockNumber request to url and returns the
// reported block height. timeout bounds the whole round trip.
func (p *Prober) Probe(ctx context.Context, url string, timeout time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(jsonRPCRequest{JSONRPC: "2.0", Method: "eth_blockNumber", ID: 1})
	if err != nil {
		return 0, &ProtocolError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, &TimeoutError{Err: err}
		}
		return 0, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &ProtocolError{Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if errMsg := gjson.GetBytes(body, "error.message"); errMsg.Exists() {
		return 0, &ProtocolError{Err: errors.New(errMsg.String())}
	}

	result := gjson.GetBytes(body, "result")
	if !result.Exists() {
		return 0, &ProtocolError{Err: errors.New("response has no result field")}
	}

	height, err := parseBlockNumber(result.String())
	if err != nil {
		return 0, &ProtocolError{Err: err}
	}
	return height, nil
}

// parseBlockNumber accepts the "0x..." hex encoding used by eth_blockNumber
// responses.
func parseBlockNumber(raw string) (int64, error) {
	hex := strings.TrimPrefix(raw, "0x")
	if hex == "" {
		return 0, fmt.Errorf("empty block number")
	}
	height, err := strconv.ParseInt(hex, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse block number %q: %w", raw, err)
	}
	return height, nil
}
