package prober

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestProbe_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x10"}`))
	}))
	defer srv.Close()

	p := New()
	height, err := p.Probe(context.Background(), srv.URL, time.Second)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if height != 16 {
		t.Errorf("Probe() = %d, want 16", height)
	}
}

func TestProbe_RPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"node syncing"}}`))
	}))
	defer srv.Close()

	p := New()
	_, err := p.Probe(context.Background(), srv.URL, time.Second)
	if err == nil {
		t.Fatal("Probe() expected error, got nil")
	}
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Errorf("Probe() error = %v, want *ProtocolError", err)
	}
}

func TestProbe_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := New()
	_, err := p.Probe(context.Background(), srv.URL, time.Second)
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Errorf("Probe() error = %v, want *ProtocolError", err)
	}
}

func TestProbe_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`))
	}))
	defer srv.Close()

	p := New()
	_, err := p.Probe(context.Background(), srv.URL, 10*time.Millisecond)
	if err == nil {
		t.Fatal("Probe() expected error, got nil")
	}
}

func TestProbe_TransportError(t *testing.T) {
	p := New()
	_, err := p.Probe(context.Background(), "http://127.0.0.1:0", time.Second)
	if err == nil {
		t.Fatal("Probe() expected error for unreachable host, got nil")
	}
}

func TestParseBlockNumber(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{"hex with prefix", "0xff", 255, false},
		{"hex without prefix", "a", 10, false},
		{"empty", "", 0, true},
		{"not hex", "0xzz", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBlockNumber(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseBlockNumber() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseBlockNumber() = %d, want %d", got, tt.want)
			}
		})
	}
}
