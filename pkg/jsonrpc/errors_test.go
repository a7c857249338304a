package jsonrpc

import (
	"encoding/json"
	"testing"
)

func TestNewRequestTimeoutErrorMatchesLiteralBody(t *testing.T) {
	resp := NewRequestTimeoutError(ID([]byte(`"q"`)))
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"jsonrpc":"2.0","error":{"code":-32000,"message":"Request timeout"},"id":"q"}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}

func TestNewUnknownSessionErrorMatchesLiteralBody(t *testing.T) {
	resp := NewUnknownSessionError("nonesuch")
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"jsonrpc":"2.0","error":{"code":-32000,"message":"Session nonesuch not found"},"id":null}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}

func TestNewParseErrorInvalidJSON(t *testing.T) {
	resp := NewParseErrorInvalidJSON()
	if resp.Error.Code != CodeParseError {
		t.Fatalf("expected parse error code, got %d", resp.Error.Code)
	}
}
