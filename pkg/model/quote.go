package model

import "time"

// QuoteRequest is the caller-facing input to the negotiation engine.
// Exactly one of SourceAmount / DestinationAmount must be set; empty
// strings and zero values mean "unset".
type QuoteRequest struct {
	DestinationAddress        string
	SourceAmount              string
	DestinationAmount         string
	SourceExpiryDuration      int64 // seconds
	DestinationExpiryDuration int64 // seconds
	DestinationPrecision      int
	DestinationScale          int
	Connectors                []string
	Timeout                   time.Duration
}

// Amount returns whichever of the two amount fields the caller supplied.
func (r QuoteRequest) Amount() string {
	if r.SourceAmount != "" {
		return r.SourceAmount
	}
	return r.DestinationAmount
}

// QuoteQuery is the wire payload sent to each connector. Unset fields are
// omitted from the JSON, never sent as null or empty.
type QuoteQuery struct {
	SourceAddress             string `json:"source_address,omitempty"`
	SourceAmount              string `json:"source_amount,omitempty"`
	DestinationAddress        string `json:"destination_address,omitempty"`
	DestinationAmount         string `json:"destination_amount,omitempty"`
	DestinationExpiryDuration int64  `json:"destination_expiry_duration,omitempty"`
	DestinationPrecision      int    `json:"destination_precision,omitempty"`
}

// QuoteResponse is a single connector's reply to a quote_request. It is
// ephemeral and not retained past best-quote selection.
type QuoteResponse struct {
	SourceAmount           string `json:"source_amount"`
	DestinationAmount      string `json:"destination_amount"`
	SourceConnectorAccount string `json:"source_connector_account"`
	SourceExpiryDuration   int64  `json:"source_expiry_duration,omitempty"`
}

// Quote is the final negotiated result.
type Quote struct {
	SourceAmount         string    `json:"sourceAmount"`
	DestinationAmount    string    `json:"destinationAmount"`
	ConnectorAccount     string    `json:"connectorAccount,omitempty"`
	SourceExpiryDuration int64     `json:"sourceExpiryDuration"`
	ExpiresAt            time.Time `json:"expiresAt"`
}
