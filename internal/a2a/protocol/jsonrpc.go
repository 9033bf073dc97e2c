package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/a2a-labs/agent-runtime/internal/a2a/errors"
)

// Request is a JSON-RPC 2.0 request envelope. ID is kept as a raw message so
// string, number, and null ids round-trip verbatim onto the response
// (spec.md §6), never coerced through a Go string/float64.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	ID      json.RawMessage `json:"id,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response envelope. Exactly one of Result or
// Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the JSON-RPC error object, §6's "error envelope"
// `{code, message, data?}`.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

var nullID = json.RawMessage("null")

// validate checks the JSON-RPC 2.0 envelope requirements spec.md §4.5 lists:
// jsonrpc == "2.0", method non-empty, id of kind string/number/null, params
// (when present) a JSON object. getAuthenticatedExtendedCard is exempt from
// the "params required" shape check since absent params is explicitly
// permitted for it.
func (r *Request) validate() error {
	if r.JSONRPC != "2.0" {
		return errors.New(errors.KindInvalidRequest, `jsonrpc must be "2.0"`)
	}
	if r.Method == "" {
		return errors.New(errors.KindInvalidRequest, "method must not be empty")
	}
	if len(r.ID) > 0 && !isValidID(r.ID) {
		return errors.New(errors.KindInvalidRequest, "id must be a string, number, or null")
	}
	if len(r.Params) > 0 && !isJSONObject(r.Params) {
		return errors.New(errors.KindInvalidRequest, "params must be a JSON object")
	}
	return nil
}

// id returns the envelope's id, defaulting to JSON null when absent so every
// response always carries a well-formed id field.
func (r *Request) id() json.RawMessage {
	if len(r.ID) == 0 {
		return nullID
	}
	return r.ID
}

func isValidID(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	switch trimmed[0] {
	case '"', 'n', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var v any
		return json.Unmarshal(trimmed, &v) == nil
	default:
		return false
	}
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// decodeRequest parses body into a Request and runs envelope validation.
// Malformed JSON maps to ParseError; a well-formed-but-invalid envelope maps
// to InvalidRequest.
func decodeRequest(body []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errors.Wrap(errors.KindParseError, "malformed JSON-RPC body", err)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

func marshalRaw(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`null`)
	}
	return data
}

func resultResponse(id json.RawMessage, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: marshalRaw(result)}
}

func errorResponse(id json.RawMessage, err error) Response {
	kind := errors.Of(err)
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &RPCError{
			Code:    errors.JSONRPCCode(kind),
			Message: err.Error(),
		},
	}
}
