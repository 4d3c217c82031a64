// Package canonical reduces a structured key-derivation path to the exact
// RFC 8785 JSON Canonicalization Scheme (JCS) string the signer contract
// expects: object keys sorted lexicographically by their UTF-16 code
// units, no insignificant whitespace, and null/undefined fields omitted.
//
// No JCS library is present anywhere in the retrieved corpus (the pack's
// JSON handling is all encoding/json or protobuf); this is hand-rolled
// stdlib-only for that reason.
package canonical

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Path encodes either an opaque caller-supplied string or a structured
// {chain, domain, meta} object. Exactly one of String or Structured is set.
type Path struct {
	String     string
	Structured *StructuredPath
}

// StructuredPath is the structured form of a KeyDerivationPath (§3).
// Domain and Meta are omitted from the canonical string when unset.
type StructuredPath struct {
	Chain  uint32
	Domain string
	Meta   map[string]any
}

// Canonicalize reduces p to the exact string the signer contract signs
// over. An opaque string path passes through unchanged; a structured path
// is rendered via JCS.
func Canonicalize(p Path) (string, error) {
	if p.Structured == nil {
		return p.String, nil
	}

	obj := map[string]any{"chain": float64(p.Structured.Chain)}
	if p.Structured.Domain != "" {
		obj["domain"] = p.Structured.Domain
	}
	if p.Structured.Meta != nil {
		obj["meta"] = p.Structured.Meta
	}

	var b strings.Builder
	if err := encodeValue(&b, obj); err != nil {
		return "", fmt.Errorf("canonical: %w", err)
	}
	return b.String(), nil
}

// encodeValue writes v's JCS encoding to b. Supported shapes: map[string]any,
// []any, string, float64/int/uint32, bool, nil (written as null; encodeObject
// omits nil-valued object fields, but a nil array element is written as null).
func encodeValue(b *strings.Builder, v any) error {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case map[string]any:
		return encodeObject(b, val)
	case []any:
		return encodeArray(b, val)
	case string:
		encodeString(b, val)
	case bool:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case float64:
		encodeNumber(b, val)
	case int:
		b.WriteString(strconv.Itoa(val))
	case uint32:
		b.WriteString(strconv.FormatUint(uint64(val), 10))
	default:
		// Fall back to encoding/json + a re-decode into any, so arbitrary
		// struct-shaped Meta values round-trip through the same sorted,
		// whitespace-free rules.
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("unsupported meta value %T: %w", v, err)
		}
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return err
		}
		return encodeValue(b, decoded)
	}
	return nil
}

func encodeObject(b *strings.Builder, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k, v := range obj {
		if v == nil {
			continue // null/undefined fields are omitted, per RFC 8785 usage here
		}
		keys = append(keys, k)
	}
	sort.Strings(keys) // lexicographic by UTF-16 code unit; ASCII keys here make byte sort equivalent

	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		encodeString(b, k)
		b.WriteByte(':')
		if err := encodeValue(b, obj[k]); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}

func encodeArray(b *strings.Builder, arr []any) error {
	b.WriteByte('[')
	for i, v := range arr {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := encodeValue(b, v); err != nil {
			return err
		}
	}
	b.WriteByte(']')
	return nil
}

// encodeString writes a JSON string literal using Go's own escaping, which
// matches RFC 8785's requirement for ASCII content (no \u-escaping beyond
// what JSON mandates for control characters and the mandatory escapes).
func encodeString(b *strings.Builder, s string) {
	raw, _ := json.Marshal(s)
	b.Write(raw)
}

// encodeNumber renders a float64 per RFC 8785 §3.2.2.3: integral values
// drop the decimal point, matching how this module's Chain/meta-number
// fields are always used (SLIP-44 coin numbers, small integers).
func encodeNumber(b *strings.Builder, f float64) {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		b.WriteString(strconv.FormatInt(int64(f), 10))
		return
	}
	b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
}
