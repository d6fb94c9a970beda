// Package packet implements the minimal payment-packet codec: an opaque
// serialization of destination account, amount and attached data.
package packet

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Payment is the decoded content of a payment packet.
type Payment struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
	Data    []byte `json:"-"`
}

type wirePayment struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
	Data    string `json:"data,omitempty"`
}

// Serialize encodes a payment into packet bytes.
func Serialize(p Payment) ([]byte, error) {
	raw, err := json.Marshal(wirePayment{
		Account: p.Account,
		Amount:  p.Amount,
		Data:    base64.StdEncoding.EncodeToString(p.Data),
	})
	if err != nil {
		return nil, fmt.Errorf("serialize packet: %w", err)
	}
	return raw, nil
}

// Parse decodes packet bytes produced by Serialize.
func Parse(raw []byte) (Payment, error) {
	var w wirePayment
	if err := json.Unmarshal(raw, &w); err != nil {
		return Payment{}, fmt.Errorf("parse packet: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(w.Data)
	if err != nil {
		return Payment{}, fmt.Errorf("parse packet data: %w", err)
	}

	return Payment{Account: w.Account, Amount: w.Amount, Data: data}, nil
}
