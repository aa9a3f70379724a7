// Package canon produces RFC 8785 canonical JSON and domain-separated digests.
//
// Canonical bytes are used wherever two structurally equal inputs must map to
// byte-identical output: golden change listings and change-list digests.
// Lookup keys for rows use MarshalExact, which skips NFC normalisation.
//
// Supported inputs are nil, string, bool, int, int64, []any and map[string]any.
// Floats are rejected; numbers that are not integers travel as strings.
package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// Digest domains. The version suffix allows the encoding to change later.
const (
	DomainKey     = "rowdelta/key/v1"
	DomainChanges = "rowdelta/changes/v1"
)

// Marshal returns the canonical JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return marshal(v, true)
}

// MarshalExact is Marshal without NFC normalisation: strings that differ in
// any byte encode differently. Use it where encoded bytes serve as identity.
func MarshalExact(v any) ([]byte, error) {
	return marshal(v, false)
}

func marshal(v any, nfc bool) ([]byte, error) {
	e := encoder{nfc: nfc}
	if err := e.encode(v); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

type encoder struct {
	buf bytes.Buffer
	nfc bool
}

// MustMarshal is like Marshal but panics on error.
// Use only with inputs built from the supported types.
func MustMarshal(v any) []byte {
	data, err := Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// Digest computes SHA256(domain || 0x00 || data) as lowercase hex.
// The null separator keeps domain and data boundaries unambiguous.
func Digest(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func (e *encoder) encode(v any) error {
	switch val := v.(type) {
	case nil:
		e.buf.WriteString("null")
	case string:
		return e.encodeString(val)
	case bool:
		e.buf.WriteString(strconv.FormatBool(val))
	case int:
		e.buf.WriteString(strconv.Itoa(val))
	case int64:
		e.buf.WriteString(strconv.FormatInt(val, 10))
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return e.encodeArray(items)
	case []any:
		return e.encodeArray(val)
	case map[string]any:
		return e.encodeObject(val)
	case float32, float64:
		return fmt.Errorf("floats are not allowed in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func (e *encoder) encodeArray(items []any) error {
	e.buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.encode(item); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	e.buf.WriteByte(']')
	return nil
}

func (e *encoder) encodeObject(obj map[string]any) error {
	e.buf.WriteByte('{')
	for i, k := range SortedKeys(obj) {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.encodeString(k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		e.buf.WriteByte(':')
		if err := e.encode(obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	e.buf.WriteByte('}')
	return nil
}

// encodeString writes s without HTML escaping and with U+2028/U+2029 left
// literal as RFC 8785 requires. s is NFC-normalised unless e is exact.
func (e *encoder) encodeString(s string) error {
	if e.nfc {
		s = norm.NFC.String(s)
	}
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))
	e.buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters. An escape preceded by an odd
// run of backslashes is literal text and stays as is.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) && string(data[i+1:i+5]) == "u202" &&
			(data[i+5] == '8' || data[i+5] == '9') && trailingBackslashes(out)%2 == 0 {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, data[i])
	}
	return out
}

func trailingBackslashes(b []byte) int {
	n := 0
	for i := len(b) - 1; i >= 0 && b[i] == '\\'; i-- {
		n++
	}
	return n
}

// SortedKeys returns the keys of obj ordered by UTF-16 code units (RFC 8785).
// Go string comparison orders by UTF-8 bytes, which differs above U+FFFF.
func SortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
