package jsonrpc

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseRequest(t *testing.T) {
	req, err := Parse([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{"cursor":"x"}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if req.Method != "tools/list" {
		t.Errorf("method = %q, want tools/list", req.Method)
	}
	if string(req.ID) != "1" {
		t.Errorf("id = %s, want 1", req.ID)
	}
	if req.IsNotification() {
		t.Error("request with id reported as notification")
	}
}

func TestParseNotification(t *testing.T) {
	req, err := Parse([]byte(`{"jsonrpc":"2.0","method":"initialized"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !req.IsNotification() {
		t.Error("expected notification")
	}
}

func TestParseNullIDIsRequest(t *testing.T) {
	req, err := Parse([]byte(`{"jsonrpc":"2.0","id":null,"method":"ping"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if req.IsNotification() {
		t.Error("explicit null id must not be a notification")
	}
	if string(req.ID) != "null" {
		t.Errorf("id = %s, want null", req.ID)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		code    int
		wantReq bool
		wantID  string
	}{
		{"not json", `not json`, CodeParseError, false, ""},
		{"array batch", `[{"jsonrpc":"2.0","id":1,"method":"ping"}]`, CodeParseError, false, ""},
		{"scalar", `42`, CodeParseError, false, ""},
		{"null", `null`, CodeParseError, false, ""},
		{"truncated", `{"jsonrpc":"2.0","id":1`, CodeParseError, false, ""},
		{"method number", `{"jsonrpc":"2.0","id":7,"method":5}`, CodeInvalidRequest, true, "7"},
		{"params scalar", `{"jsonrpc":"2.0","id":"a","method":"ping","params":3}`, CodeInvalidRequest, true, `"a"`},
		{"id object", `{"jsonrpc":"2.0","id":{},"method":"ping"}`, CodeInvalidRequest, true, "null"},
		{"id bool", `{"jsonrpc":"2.0","id":true,"method":"ping"}`, CodeInvalidRequest, true, "null"},
		{"jsonrpc number", `{"jsonrpc":2,"id":3,"method":"ping"}`, CodeInvalidRequest, true, "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Parse([]byte(tt.in))
			var rpcErr *Error
			if !errors.As(err, &rpcErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if rpcErr.Code != tt.code {
				t.Errorf("code = %d, want %d", rpcErr.Code, tt.code)
			}
			if (req != nil) != tt.wantReq {
				t.Fatalf("request returned = %v, want %v", req != nil, tt.wantReq)
			}
			if req != nil && string(req.ID) != tt.wantID {
				t.Errorf("id = %s, want %s", req.ID, tt.wantID)
			}
		})
	}
}

func TestParseNullParams(t *testing.T) {
	req, err := Parse([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":null}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if req.Params != nil {
		t.Errorf("params = %s, want nil", req.Params)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	inputs := []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"c","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"initialized"}`,
		`{"jsonrpc":"2.0","id":"abc","method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`,
		`{"jsonrpc":"2.0","id":null,"method":"ping"}`,
		`{"method":"ping","params":[1,2,3],"jsonrpc":"2.0","id":-4.5}`,
	}
	for _, in := range inputs {
		req, err := Parse([]byte(in))
		if err != nil {
			t.Fatalf("Parse(%s): %v", in, err)
		}
		out, err := Encode(req)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		var want, got map[string]any
		if err := json.Unmarshal([]byte(in), &want); err != nil {
			t.Fatal(err)
		}
		if err := json.Unmarshal(out, &got); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestResponseShape(t *testing.T) {
	ok, err := Encode(NewResult(json.RawMessage(`5`), map[string]any{"pong": true}))
	if err != nil {
		t.Fatal(err)
	}
	if string(ok) != `{"jsonrpc":"2.0","id":5,"result":{"pong":true}}` {
		t.Errorf("unexpected result encoding: %s", ok)
	}

	fail, err := Encode(NewErrorResponse(nil, NewError(CodeParseError, nil)))
	if err != nil {
		t.Fatal(err)
	}
	if string(fail) != `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}` {
		t.Errorf("unexpected error encoding: %s", fail)
	}
}

func TestNilResultBecomesEmptyObject(t *testing.T) {
	out, err := Encode(NewResult(json.RawMessage(`1`), nil))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"result":{}`) {
		t.Errorf("expected empty result object, got %s", out)
	}
	if strings.Contains(string(out), `"error"`) {
		t.Errorf("result response must not carry error: %s", out)
	}
}

func TestEncodeHasNoNewlines(t *testing.T) {
	out, err := Encode(NewResult(json.RawMessage(`1`), map[string]string{"text": "a\nb"}))
	if err != nil {
		t.Fatal(err)
	}
	if strings.ContainsRune(string(out), '\n') {
		t.Errorf("encoded message contains a raw newline: %q", out)
	}
}
