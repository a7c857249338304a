package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrNotObject is returned by Decode when the input, after trimming
// whitespace, is empty or does not start with '{' (e.g. an array, string,
// or number, or text that is not JSON at all).
var ErrNotObject = errors.New("jsonrpc: message is not a JSON object")

// Envelope is the sniffed shape of a decoded line: request, notification,
// or response, per the classification rules in spec.md section 3.
//
//   - has Method, has ID  -> request
//   - has Method, no ID   -> notification
//   - no Method, has ID   -> response
type Envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// HasID reports whether the envelope carries a non-null id field.
func (e *Envelope) HasID() bool {
	return len(e.ID) > 0 && !bytes.Equal(bytes.TrimSpace(e.ID), []byte("null"))
}

// IsRequest reports whether the envelope is a request (method + id).
func (e *Envelope) IsRequest() bool {
	return e.Method != "" && e.HasID()
}

// IsNotification reports whether the envelope is a notification (method, no id).
func (e *Envelope) IsNotification() bool {
	return e.Method != "" && !e.HasID()
}

// IsResponse reports whether the envelope is a response (no method, has id).
func (e *Envelope) IsResponse() bool {
	return e.Method == "" && e.HasID()
}

// Decode parses a single line of wire bytes into an Envelope. It returns
// ErrNotObject if the trimmed bytes are empty or do not start with '{',
// and the json.Unmarshal error if they start with '{' but are malformed.
func Decode(line []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}
	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// EncodeLine serializes v and appends the single trailing newline that
// terminates every message on the child's stdin/stdout, per spec.md 4.1/4.2.
func EncodeLine(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
