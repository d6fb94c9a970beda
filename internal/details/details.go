// Package details implements the secure payment-details codec: a two-layer
// PSK envelope whose outer headers (and the key-derivation token) are
// visible to intermediary connectors while the inner headers and payload
// can only be read by the receiver holding the shared secret.
package details

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/Checker-Finance/interledger/internal/envelope"
	"github.com/Checker-Finance/interledger/internal/headers"
	"github.com/Checker-Finance/interledger/internal/packet"
	"github.com/Checker-Finance/interledger/internal/security"
	"github.com/Checker-Finance/interledger/pkg/ilperr"
)

// KeyHeader is the reserved outer header carrying the key-derivation token.
const KeyHeader = "Key"

var keyHeaderPattern = regexp.MustCompile(`^hmac-sha-256 (.+)$`)

// Parsed is the result of decoding a secure details message.
type Parsed struct {
	// UnsafeHeaders are the outer-layer headers, visible to every hop.
	UnsafeHeaders *headers.Map
	// Headers are the inner-layer headers, visible only to the receiver.
	Headers *headers.Map
	// Data is the decrypted inner body.
	Data []byte
}

// FromPacket extends Parsed with the fields of the enclosing payment packet.
type FromPacket struct {
	Parsed
	Account string
	Amount  string
}

// Create builds the encrypted two-layer details message. headers and data
// form the private layer, encrypted under a key derived from secret and a
// fresh random token; unsafeHeaders ride on the public layer in the clear.
// unsafeHeaders must not contain a "Key" header in any casing.
func Create(hdrs, unsafeHeaders *headers.Map, secret, data []byte) ([]byte, error) {
	if unsafeHeaders != nil && unsafeHeaders.Has(KeyHeader) {
		return nil, ilperr.InvalidArgument("unsafe headers must not contain a %q header", KeyHeader)
	}

	token, err := security.NewToken()
	if err != nil {
		return nil, err
	}
	paymentKey := security.DerivePaymentKey(secret, token)

	private := envelope.Encode(false, hdrs, data)
	ciphertext, err := security.Encrypt(paymentKey, private)
	if err != nil {
		return nil, fmt.Errorf("encrypt private layer: %w", err)
	}

	public := headers.New()
	public.Set(KeyHeader, "hmac-sha-256 "+base64.RawURLEncoding.EncodeToString(token))
	if unsafeHeaders != nil {
		unsafeHeaders.Each(func(name, value string) { public.Set(name, value) })
	}

	return envelope.Encode(true, public, ciphertext), nil
}

// CreateJSON canonicalizes data to UTF-8 JSON and delegates to Create.
func CreateJSON(hdrs, unsafeHeaders *headers.Map, secret []byte, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal details body: %w", err)
	}
	return Create(hdrs, unsafeHeaders, secret, raw)
}

// Parse decodes a base64-encoded details message using the shared secret.
func Parse(detailsB64 string, secret []byte) (*Parsed, error) {
	raw, err := base64.StdEncoding.DecodeString(detailsB64)
	if err != nil {
		return nil, ilperr.Protocol(ilperr.KindInvalidRequest, "details not base64: %v", err)
	}

	unsafeHeaders, ciphertext, err := envelope.Decode(raw, true)
	if err != nil {
		return nil, err
	}

	token, err := extractToken(unsafeHeaders)
	if err != nil {
		return nil, err
	}

	paymentKey := security.DerivePaymentKey(secret, token)
	private, err := security.Decrypt(paymentKey, ciphertext)
	if err != nil {
		return nil, ilperr.Protocol(ilperr.KindDecryptionFailed, "%v", err)
	}

	hdrs, data, err := envelope.Decode(private, false)
	if err != nil {
		return nil, err
	}

	return &Parsed{
		UnsafeHeaders: unsafeHeaders,
		Headers:       hdrs,
		Data:          data,
	}, nil
}

// ParseFromPacket decodes a payment packet and parses its attached data as
// a secure details message.
func ParseFromPacket(raw []byte, secret []byte) (*FromPacket, error) {
	payment, err := packet.Parse(raw)
	if err != nil {
		return nil, err
	}

	parsed, err := Parse(string(payment.Data), secret)
	if err != nil {
		return nil, err
	}

	return &FromPacket{
		Parsed:  *parsed,
		Account: payment.Account,
		Amount:  payment.Amount,
	}, nil
}

func extractToken(unsafeHeaders *headers.Map) ([]byte, error) {
	value, ok := unsafeHeaders.Get(KeyHeader)
	if !ok {
		return nil, ilperr.Protocol(ilperr.KindMissingKeyHeader, "no key header in public layer")
	}

	m := keyHeaderPattern.FindStringSubmatch(value)
	if m == nil {
		return nil, ilperr.Protocol(ilperr.KindMissingKeyHeader, "unsupported key header %q", value)
	}

	token, err := base64.RawURLEncoding.DecodeString(m[1])
	if err != nil {
		return nil, ilperr.Protocol(ilperr.KindMissingKeyHeader, "token not base64url: %v", err)
	}
	return token, nil
}
