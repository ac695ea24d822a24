package encode

import (
	"bytes"
	"math"
	"strconv"

	"github.com/kevin0x90/qson/decode"
)

const hexDigits = "0123456789abcdef"

// writeString scans s for bytes that need escaping (per spec §4.4: `"`,
// `\`, and control characters below 0x20) and emits a quoted, escaped JSON
// string literal. Other bytes pass through untouched; output is always
// UTF-8, so multi-byte rune sequences in s are copied verbatim.
func writeString(sink Sink, s string) error {
	if err := sink.WriteByte('"'); err != nil {
		return err
	}
	start := 0
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b >= 0x20 && b != '"' && b != '\\' {
			continue
		}
		if start < i {
			if _, err := sink.Write([]byte(s[start:i])); err != nil {
				return err
			}
		}
		if err := writeEscape(sink, b); err != nil {
			return err
		}
		start = i + 1
	}
	if start < len(s) {
		if _, err := sink.Write([]byte(s[start:])); err != nil {
			return err
		}
	}
	return sink.WriteByte('"')
}

func writeEscape(sink Sink, b byte) error {
	switch b {
	case '"':
		_, err := sink.Write([]byte(`\"`))
		return err
	case '\\':
		_, err := sink.Write([]byte(`\\`))
		return err
	case '\b':
		_, err := sink.Write([]byte(`\b`))
		return err
	case '\f':
		_, err := sink.Write([]byte(`\f`))
		return err
	case '\n':
		_, err := sink.Write([]byte(`\n`))
		return err
	case '\r':
		_, err := sink.Write([]byte(`\r`))
		return err
	case '\t':
		_, err := sink.Write([]byte(`\t`))
		return err
	default:
		buf := [6]byte{'\\', 'u', '0', '0', hexDigits[b>>4], hexDigits[b&0xF]}
		_, err := sink.Write(buf[:])
		return err
	}
}

// writeInteger emits v as a plain decimal literal (§4.4 "plain decimal for
// integers").
func writeInteger(sink Sink, v int64) error {
	var buf [20]byte
	b := strconv.AppendInt(buf[:0], v, 10)
	_, err := sink.Write(b)
	return err
}

func writeUinteger(sink Sink, v uint64) error {
	var buf [20]byte
	b := strconv.AppendUint(buf[:0], v, 10)
	_, err := sink.Write(b)
	return err
}

// writeFloat emits v using canonical shortest round-trip rendering
// (strconv's Ryu-derived algorithm, `-1` precision), rejecting NaN/±Inf
// with NonFiniteNumber since JSON has no representation for them (§4.4).
// An integral value (no '.' or exponent in the shortest rendering) gets an
// explicit ".0" suffix so a float scalar is always visibly distinct from
// an integer scalar on the wire, e.g. 300.0 rather than bare 300.
func writeFloat(sink Sink, v float64, bitSize int) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decode.NewError(decode.NonFiniteNumber, 0, "", "JSON has no representation for NaN or infinite values")
	}
	var buf [32]byte
	b := strconv.AppendFloat(buf[:0], v, 'g', -1, bitSize)
	if !bytes.ContainsAny(b, ".eE") {
		b = append(b, '.', '0')
	}
	_, err := sink.Write(b)
	return err
}

func writeBool(sink Sink, v bool) error {
	if v {
		_, err := sink.Write([]byte("true"))
		return err
	}
	_, err := sink.Write([]byte("false"))
	return err
}

func writeNull(sink Sink) error {
	_, err := sink.Write([]byte("null"))
	return err
}

// EscapeKeyLiteral precomputes a field's JSON-escaped quoted key literal
// bytes at plan-build time (§4.4: "Key literal bytes are precomputed at
// plan build time"), so Execute never re-escapes a field name per call.
func EscapeKeyLiteral(name string) []byte {
	buf := NewGrowableBuffer(len(name) + 2)
	_ = writeString(buf, name)
	return buf.Bytes()
}
