// Package hashing computes deterministic content hashes of source snapshots.
//
// Every derived artifact records the hash of each source snapshot it was
// computed from. A builder re-hashes its sources before doing any work and
// skips recomputation when every hash matches, which is the sole
// de-duplication device in the rebuild cascade. Correctness therefore
// depends on the hash being stable across processes and restarts: the same
// snapshot must always produce the same digest.
package hashing

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Domain prefix for snapshot hashes. The version suffix enables a future
// algorithm migration without colliding with old digests.
const domainSource = "predictor/source/v1"

// Hash computes the content hash of a source snapshot.
//
// The value is serialized to canonical JSON (sorted object keys, NFC
// normalized strings, no HTML escaping, integers only) and digested with
// SHA-256 under a domain prefix. Floats are rejected: snapshot types must
// carry integral values so that digests never depend on float formatting.
//
// Null is permitted - absent scores and withdrawn predictions are
// meaningful snapshot states in this domain.
func Hash(v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash snapshot: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(domainSource))
	h.Write([]byte{0x00}) // null separator between domain and payload
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustHash(v any) string {
	hash, err := Hash(v)
	if err != nil {
		panic(err)
	}
	return hash
}

// MarshalCanonical produces canonical JSON for hashing. This is the only
// serialization that may be used for content-hash computation.
//
// Arbitrary Go values are first round-tripped through encoding/json (with
// json.Number preserving numeric text) so that struct tags determine field
// names exactly as they do for storage, then re-encoded canonically.
func MarshalCanonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: pre-marshal: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("canonical: decode: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, decoded); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return fmt.Errorf("canonical: non-integer number %q", val.String())
		}
		fmt.Fprintf(buf, "%d", n)
		return nil
	case string:
		return writeCanonicalString(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("canonical: unsupported type %T", v)
	}
}

// writeCanonicalString writes a JSON string with NFC normalization and
// without HTML escaping (<, > and & stay literal).
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}

	// json.Encoder appends a trailing newline.
	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))
	buf.Write(out)
	return nil
}
