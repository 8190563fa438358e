// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package vector

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zlib"
)

// rawBytes is the canonical uncompressed form: little-endian float32.
// Both the codec and the fingerprint hash operate on it.
func rawBytes(vec []float32) []byte {
	raw := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return raw
}

// Encode serializes an embedding as zlib-compressed little-endian float32
// values. Decode reverses it. The compressed form is what gets persisted.
func Encode(vec []float32) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(rawBytes(vec)); err != nil {
		zw.Close()
		return nil, fmt.Errorf("compressing vector: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing vector: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode inflates a compressed vector back into float32 components.
func Decode(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decompressing vector: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompressing vector: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector payload: %d bytes", len(raw))
	}

	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec, nil
}

// CheckDimension verifies a vector has the expected dimensionality.
func CheckDimension(vec []float32, dimension int) error {
	if len(vec) != dimension {
		return fmt.Errorf("dimension mismatch: got %d, want %d", len(vec), dimension)
	}
	return nil
}

// Fingerprint identifies the provenance of a stored vector: model,
// dimension, a short hash of the raw uncompressed buffer, and when it was
// computed. The format is "model:dimension:hash8:timestamp". Identical
// (model, vector) pairs always hash identically; only the timestamp varies.
func Fingerprint(model string, dimension int, vec []float32, at time.Time) string {
	sum := sha256.Sum256(rawBytes(vec))
	short := hex.EncodeToString(sum[:])[:8]
	return fmt.Sprintf("%s:%d:%s:%s", model, dimension, short, at.UTC().Format(time.RFC3339))
}

// ParsedFingerprint is the decomposed form of a vector fingerprint.
type ParsedFingerprint struct {
	Model     string
	Dimension int
	Hash      string
	Timestamp string
}

// ParseFingerprint splits a fingerprint into its components.
func ParseFingerprint(fp string) (*ParsedFingerprint, error) {
	parts := strings.SplitN(fp, ":", 4)
	if len(parts) != 4 {
		return nil, fmt.Errorf("malformed fingerprint %q", fp)
	}
	dim, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("malformed fingerprint dimension %q", parts[1])
	}
	return &ParsedFingerprint{
		Model:     parts[0],
		Dimension: dim,
		Hash:      parts[2],
		Timestamp: parts[3],
	}, nil
}

// FingerprintsMatch reports whether two fingerprints describe the same
// (model, dimension, vector), ignoring their timestamps.
func FingerprintsMatch(a, b string) bool {
	pa, err := ParseFingerprint(a)
	if err != nil {
		return false
	}
	pb, err := ParseFingerprint(b)
	if err != nil {
		return false
	}
	return pa.Model == pb.Model && pa.Dimension == pb.Dimension && pa.Hash == pb.Hash
}

// ModelOf returns the model component of a fingerprint, or "" when the
// fingerprint is missing or malformed.
func ModelOf(fp string) string {
	parsed, err := ParseFingerprint(fp)
	if err != nil {
		return ""
	}
	return parsed.Model
}

// Stale reports whether a stored fingerprint was produced under a different
// model or dimension than the ones currently configured. The hash and
// timestamp components are ignored. An empty or malformed fingerprint is
// always stale.
func Stale(fp, model string, dimension int) bool {
	parsed, err := ParseFingerprint(fp)
	if err != nil {
		return true
	}
	return parsed.Model != model || parsed.Dimension != dimension
}
