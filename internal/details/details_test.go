package details

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/interledger/internal/headers"
	"github.com/Checker-Finance/interledger/internal/packet"
	"github.com/Checker-Finance/interledger/pkg/ilperr"
)

var secret = []byte("payment-shared-secret")

func create(t *testing.T, hdrs, unsafeHeaders *headers.Map, data []byte) string {
	t.Helper()
	raw, err := Create(hdrs, unsafeHeaders, secret, data)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestCreateParse_RoundTrip(t *testing.T) {
	hdrs := headers.From(
		[2]string{"Payment-Id", "abc-123"},
		[2]string{"Expires-At", "2026-09-01T12:00:00Z"},
	)
	unsafe := headers.From([2]string{"Routing", "fast"})
	data := []byte(`{"memo":"coffee"}`)

	parsed, err := Parse(create(t, hdrs, unsafe, data), secret)
	require.NoError(t, err)

	assert.Equal(t, data, parsed.Data)

	v, ok := parsed.Headers.Get("payment-id")
	require.True(t, ok)
	assert.Equal(t, "abc-123", v)
	v, ok = parsed.Headers.Get("expires-at")
	require.True(t, ok)
	assert.Equal(t, "2026-09-01T12:00:00Z", v)

	// Outer headers come back with the derived Key header added.
	v, ok = parsed.UnsafeHeaders.Get("routing")
	require.True(t, ok)
	assert.Equal(t, "fast", v)
	v, ok = parsed.UnsafeHeaders.Get("key")
	require.True(t, ok)
	assert.Regexp(t, `^hmac-sha-256 [A-Za-z0-9_-]+$`, v)
}

func TestCreateParse_EmptyData(t *testing.T) {
	parsed, err := Parse(create(t, headers.New(), headers.New(), nil), secret)
	require.NoError(t, err)
	assert.Empty(t, parsed.Data)
	assert.Equal(t, 0, parsed.Headers.Len())
}

func TestCreate_FreshTokenPerCall(t *testing.T) {
	a := create(t, headers.New(), headers.New(), []byte("x"))
	b := create(t, headers.New(), headers.New(), []byte("x"))
	assert.NotEqual(t, a, b)
}

func TestCreate_RejectsReservedKeyHeader(t *testing.T) {
	for _, name := range []string{"Key", "key", "KEY", "kEy"} {
		_, err := Create(headers.New(), headers.From([2]string{name, "evil"}), secret, nil)
		require.Error(t, err, "header %q", name)

		var invalid *ilperr.InvalidArgumentError
		assert.ErrorAs(t, err, &invalid, "header %q", name)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	detailsB64 := create(t, headers.From([2]string{"H", "v"}), headers.New(), []byte("payload"))

	_, err := Parse(detailsB64, []byte("wrong-secret"))
	require.Error(t, err)
	assert.True(t, ilperr.IsProtocol(err, ilperr.KindDecryptionFailed))
}

func TestParse_MissingKeyHeader(t *testing.T) {
	// A syntactically valid public layer with no Key header.
	raw := []byte("PSK/1.0\nRouting: fast\n\nciphertext")
	_, err := Parse(base64.StdEncoding.EncodeToString(raw), secret)
	require.Error(t, err)
	assert.True(t, ilperr.IsProtocol(err, ilperr.KindMissingKeyHeader))
}

func TestParse_MalformedKeyHeader(t *testing.T) {
	for _, value := range []string{"aes-gcm deadbeef", "hmac-sha-256", "hmac-sha-256 !!!"} {
		raw := []byte("PSK/1.0\nKey: " + value + "\n\nciphertext")
		_, err := Parse(base64.StdEncoding.EncodeToString(raw), secret)
		require.Error(t, err, "key header %q", value)
		assert.True(t, ilperr.IsProtocol(err, ilperr.KindMissingKeyHeader), "key header %q", value)
	}
}

func TestParse_NotBase64(t *testing.T) {
	_, err := Parse("!!! definitely not base64 !!!", secret)
	require.Error(t, err)
	assert.True(t, ilperr.IsProtocol(err, ilperr.KindInvalidRequest))
}

func TestParseFromPacket(t *testing.T) {
	detailsB64 := create(t,
		headers.From([2]string{"Memo", "lunch"}),
		headers.New(),
		[]byte("inner"))

	raw, err := packet.Serialize(packet.Payment{
		Account: "example.ledger.bob",
		Amount:  "42",
		Data:    []byte(detailsB64),
	})
	require.NoError(t, err)

	got, err := ParseFromPacket(raw, secret)
	require.NoError(t, err)
	assert.Equal(t, "example.ledger.bob", got.Account)
	assert.Equal(t, "42", got.Amount)
	assert.Equal(t, []byte("inner"), got.Data)

	v, ok := got.Headers.Get("memo")
	require.True(t, ok)
	assert.Equal(t, "lunch", v)
}

func TestCreateJSON(t *testing.T) {
	detailsRaw, err := CreateJSON(headers.New(), headers.New(), secret, map[string]string{"memo": "rent"})
	require.NoError(t, err)

	parsed, err := Parse(base64.StdEncoding.EncodeToString(detailsRaw), secret)
	require.NoError(t, err)
	assert.JSONEq(t, `{"memo":"rent"}`, string(parsed.Data))
}
