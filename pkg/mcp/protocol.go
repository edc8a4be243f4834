package mcp

import (
	"encoding/json"
	"fmt"
)

const (
	jsonrpcVersion  = "2.0"
	protocolVersion = "2024-11-05"
	serverName      = "cachectl"
)

// Error codes returned in ErrorObject.Code.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
)

// Request is one line read from the client. A request without an ID is a
// notification and never gets a reply.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (r *Request) isNotification() bool {
	return len(r.ID) == 0
}

// Response is one line written back. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is a protocol level failure, as opposed to a tool that ran
// and reported isError.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorObject) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func reply(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: jsonrpcVersion, ID: id, Result: result}
}

func replyError(id json.RawMessage, code int, format string, args ...any) *Response {
	return &Response{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Error:   &ErrorObject{Code: code, Message: fmt.Sprintf(format, args...)},
	}
}

// InitializeResult answers the initialize handshake.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Capabilities    ServerCapabilities `json:"capabilities"`
}

// Implementation names this server and its build version.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerCapabilities advertises tools only; the cache tool set is fixed
// for the life of the process.
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// Tool is one entry of tools/list. InputSchema is a JSON Schema object.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolCallResult carries the rendered report text. IsError marks a cache
// action that failed, so the client shows it as a failure.
type ToolCallResult struct {
	Content []TextContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{Content: []TextContent{{Type: "text", Text: text}}}
}

func errorResult(text string) ToolCallResult {
	r := textResult(text)
	r.IsError = true
	return r
}
