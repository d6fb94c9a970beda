package model

import "encoding/json"

// Methods used inside the correlation envelope.
const (
	MethodQuoteRequest  = "quote_request"
	MethodQuoteResponse = "quote_response"
	MethodError         = "error"
)

// Message is the correlation envelope exchanged over a Transport:
// {ledger, account, data: {id, method, data}}.
type Message struct {
	Ledger  string       `json:"ledger"`
	Account string       `json:"account"`
	Data    *MessageData `json:"data,omitempty"`
}

// MessageData carries the correlation id, the method tag and the
// method-specific payload.
type MessageData struct {
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// RemoteError is the payload of an "error" method response.
type RemoteError struct {
	Message string `json:"message"`
}
