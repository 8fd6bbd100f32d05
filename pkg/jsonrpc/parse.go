package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Parse decodes one framed message into a Request.
//
// A nil Request with an *Error of CodeParseError means the bytes were not a
// JSON object. A non-nil Request alongside an *Error of CodeInvalidRequest
// means the object was readable but one of its members had the wrong type;
// the returned Request still carries the id when it was usable, so callers
// can decide whether a reply is owed.
func Parse(data []byte) (*Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, NewError(CodeParseError, err.Error())
	}
	if fields == nil {
		return nil, NewError(CodeParseError, "message is not a JSON object")
	}

	req := &Request{}
	var problem string

	if raw, ok := fields["id"]; ok {
		if validID(raw) {
			req.ID = compact(raw)
		} else {
			// Present but unusable: still a request, answered with a null id.
			req.ID = json.RawMessage("null")
			problem = "id must be a string, number, or null"
		}
	}

	if raw, ok := fields["jsonrpc"]; ok {
		if err := json.Unmarshal(raw, &req.JSONRPC); err != nil && problem == "" {
			problem = "jsonrpc must be a string"
		}
	}

	if raw, ok := fields["method"]; ok {
		if err := json.Unmarshal(raw, &req.Method); err != nil && problem == "" {
			problem = "method must be a string"
		}
	}

	if raw, ok := fields["params"]; ok {
		switch firstByte(raw) {
		case '{', '[':
			req.Params = raw
		case 'n':
		default:
			if problem == "" {
				problem = "params must be an object or array"
			}
		}
	}

	if problem != "" {
		return req, NewError(CodeInvalidRequest, problem)
	}
	return req, nil
}

// Encode serializes v as a single line without a trailing newline.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}

func validID(raw json.RawMessage) bool {
	switch c := firstByte(raw); {
	case c == '"':
		var s string
		return json.Unmarshal(raw, &s) == nil
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		return json.Unmarshal(raw, &n) == nil
	case c == 'n':
		return true
	default:
		return false
	}
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func compact(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return json.RawMessage(buf.Bytes())
}
