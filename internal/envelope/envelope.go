// Package envelope implements the canonical PSK envelope layout used by
// both layers of a secure details message:
//
//	["PSK/1.0\n"] "Name: Value\n"* "\n" body-bytes
//
// The codec is pure: no I/O, no crypto.
package envelope

import (
	"bytes"
	"strings"

	"github.com/Checker-Finance/interledger/internal/headers"
	"github.com/Checker-Finance/interledger/pkg/ilperr"
)

// StatusLine is the literal first line of a public-layer envelope.
const StatusLine = "PSK/1.0"

var delimiter = []byte("\n\n")

// Encode serializes headers and body into envelope bytes. A nil body
// encodes as zero bytes.
func Encode(statusLine bool, hdrs *headers.Map, body []byte) []byte {
	var buf bytes.Buffer
	if statusLine {
		buf.WriteString(StatusLine)
		buf.WriteByte('\n')
	}
	if hdrs != nil {
		hdrs.Each(func(name, value string) {
			buf.WriteString(name)
			buf.WriteString(": ")
			buf.WriteString(value)
			buf.WriteByte('\n')
		})
	}
	buf.WriteByte('\n')
	buf.Write(body)
	return buf.Bytes()
}

// Decode splits envelope bytes at the first blank line into a header map
// and the raw body. When statusLine is true the first header-text line
// must exactly match StatusLine.
func Decode(raw []byte, statusLine bool) (*headers.Map, []byte, error) {
	// A header section with no status line and no headers is just the
	// leading blank line.
	if !statusLine && len(raw) > 0 && raw[0] == '\n' {
		return headers.New(), raw[1:], nil
	}

	i := bytes.Index(raw, delimiter)
	if i < 0 {
		return nil, nil, ilperr.Protocol(ilperr.KindInvalidRequest,
			"missing blank-line delimiter")
	}

	head := string(raw[:i])
	body := raw[i+len(delimiter):]

	lines := strings.Split(head, "\n")
	if statusLine {
		if lines[0] != StatusLine {
			return nil, nil, ilperr.Protocol(ilperr.KindInvalidStatusLine,
				"%q", lines[0])
		}
		lines = lines[1:]
	}

	hdrs := headers.New()
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ": ")
		if !ok || name == "" || value == "" {
			return nil, nil, ilperr.Protocol(ilperr.KindInvalidHeaderLine,
				"%q", line)
		}
		hdrs.Set(name, value)
	}

	return hdrs, body, nil
}
