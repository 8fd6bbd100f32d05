// Package jsonrpc holds the JSON-RPC 2.0 wire types shared by the MCP engine
// and the stdio transport.
package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Version is the only accepted value of the "jsonrpc" member.
const Version = "2.0"

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is a JSON-RPC 2.0 request. A nil ID marks a notification; an ID of
// `null` that was present on the wire is kept as the raw literal.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carried no id.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Response is a JSON-RPC 2.0 response. ID always serializes; a nil ID is
// written as null.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("jsonrpc %d: %s: %v", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("jsonrpc %d: %s", e.Code, e.Message)
}

// NewError builds an error object with the canonical message for code.
func NewError(code int, data any) *Error {
	return &Error{Code: code, Message: messageFor(code), Data: data}
}

func messageFor(code int) string {
	switch code {
	case CodeParseError:
		return "Parse error"
	case CodeInvalidRequest:
		return "Invalid Request"
	case CodeMethodNotFound:
		return "Method not found"
	case CodeInvalidParams:
		return "Invalid params"
	default:
		return "Internal error"
	}
}

// NewResult builds a success response. A nil result is replaced by an empty
// object so the response always carries exactly one of result or error.
func NewResult(id json.RawMessage, result any) *Response {
	if result == nil {
		result = struct{}{}
	}
	return &Response{JSONRPC: Version, ID: id, Result: result}
}

// NewErrorResponse builds an error response.
func NewErrorResponse(id json.RawMessage, err *Error) *Response {
	if err == nil {
		err = NewError(CodeInternalError, nil)
	}
	return &Response{JSONRPC: Version, ID: id, Error: err}
}
