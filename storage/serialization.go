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


package storage

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/ontolite/core"
)

// Records are encoded with the MUS format: varint integers, length-prefixed
// strings and byte slices, timestamps as microsecond Unix values.

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

func marshalBytes(v []byte, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	n += copy(bs[n:], v)
	return n
}

func unmarshalBytes(bs []byte) ([]byte, int, error) {
	l, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if l < 0 || n+l > len(bs) {
		return nil, n, ErrTruncatedData
	}
	if l == 0 {
		return nil, n, nil
	}
	out := make([]byte, l)
	copy(out, bs[n:n+l])
	return out, n + l, nil
}

func sizeBytes(v []byte) int {
	return varint.Int.Size(len(v)) + len(v)
}

func marshalStrings(v []string, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStrings(bs []byte) ([]string, int, error) {
	l, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if l < 0 {
		return nil, n, ErrTruncatedData
	}
	if l == 0 {
		return nil, n, nil
	}
	out := make([]string, l)
	for i := 0; i < l; i++ {
		s, m, err := ord.String.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		out[i] = s
	}
	return out, n, nil
}

func sizeStrings(v []string) int {
	size := varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	return core.ID(v), err
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(d *core.Document) []byte {
	size := varint.Uint64.Size(uint64(d.Id)) +
		ord.String.Size(d.Title) +
		ord.String.Size(d.Checksum) +
		varint.Int64.Size(d.Bytes) +
		ord.String.Size(d.Text) +
		ord.String.Size(d.Summary) +
		sizeBytes(d.Vector) +
		ord.String.Size(d.VectorFingerprint) +
		ord.String.Size(d.VectorModel) +
		varint.Int.Size(d.VectorDim) +
		sizeTime(d.CreatedAt) +
		sizeTime(d.UpdatedAt)

	buf := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(d.Id), buf)
	n += ord.String.Marshal(d.Title, buf[n:])
	n += ord.String.Marshal(d.Checksum, buf[n:])
	n += varint.Int64.Marshal(d.Bytes, buf[n:])
	n += ord.String.Marshal(d.Text, buf[n:])
	n += ord.String.Marshal(d.Summary, buf[n:])
	n += marshalBytes(d.Vector, buf[n:])
	n += ord.String.Marshal(d.VectorFingerprint, buf[n:])
	n += ord.String.Marshal(d.VectorModel, buf[n:])
	n += varint.Int.Marshal(d.VectorDim, buf[n:])
	n += marshalTime(d.CreatedAt, buf[n:])
	marshalTime(d.UpdatedAt, buf[n:])
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	var (
		d   core.Document
		n   int
		err error
	)
	read := func(m int, e error) bool {
		n += m
		if e != nil {
			err = e
		}
		return err == nil
	}

	var id uint64
	var m int
	if id, m, err = varint.Uint64.Unmarshal(data); err != nil {
		return nil, err
	}
	n = m
	d.Id = core.ID(id)

	var s string
	if s, m, err = ord.String.Unmarshal(data[n:]); !read(m, err) {
		return nil, err
	}
	d.Title = s
	if s, m, err = ord.String.Unmarshal(data[n:]); !read(m, err) {
		return nil, err
	}
	d.Checksum = s
	var i64 int64
	if i64, m, err = varint.Int64.Unmarshal(data[n:]); !read(m, err) {
		return nil, err
	}
	d.Bytes = i64
	if s, m, err = ord.String.Unmarshal(data[n:]); !read(m, err) {
		return nil, err
	}
	d.Text = s
	if s, m, err = ord.String.Unmarshal(data[n:]); !read(m, err) {
		return nil, err
	}
	d.Summary = s
	var b []byte
	if b, m, err = unmarshalBytes(data[n:]); !read(m, err) {
		return nil, err
	}
	d.Vector = b
	if s, m, err = ord.String.Unmarshal(data[n:]); !read(m, err) {
		return nil, err
	}
	d.VectorFingerprint = s
	if s, m, err = ord.String.Unmarshal(data[n:]); !read(m, err) {
		return nil, err
	}
	d.VectorModel = s
	var i int
	if i, m, err = varint.Int.Unmarshal(data[n:]); !read(m, err) {
		return nil, err
	}
	d.VectorDim = i
	var t time.Time
	if t, m, err = unmarshalTime(data[n:]); !read(m, err) {
		return nil, err
	}
	d.CreatedAt = t
	if t, m, err = unmarshalTime(data[n:]); !read(m, err) {
		return nil, err
	}
	d.UpdatedAt = t
	return &d, nil
}

// MarshalVersion serializes an OntologyVersion to bytes.
func MarshalVersion(v *core.OntologyVersion) []byte {
	size := varint.Uint64.Size(uint64(v.Id)) +
		varint.Uint64.Size(uint64(v.DocumentId)) +
		ord.String.Size(v.ModelName) +
		ord.String.Size(v.ModelVersion) +
		ord.String.Size(v.Pipeline) +
		sizeTime(v.ExtractedAt) +
		ord.String.Size(v.Notes)

	buf := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(v.Id), buf)
	n += varint.Uint64.Marshal(uint64(v.DocumentId), buf[n:])
	n += ord.String.Marshal(v.ModelName, buf[n:])
	n += ord.String.Marshal(v.ModelVersion, buf[n:])
	n += ord.String.Marshal(v.Pipeline, buf[n:])
	n += marshalTime(v.ExtractedAt, buf[n:])
	ord.String.Marshal(v.Notes, buf[n:])
	return buf
}

// UnmarshalVersion deserializes an OntologyVersion from bytes.
func UnmarshalVersion(data []byte) (*core.OntologyVersion, error) {
	var v core.OntologyVersion
	id, n, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	v.Id = core.ID(id)
	id, m, err := varint.Uint64.Unmarshal(data[n:])
	n += m
	if err != nil {
		return nil, err
	}
	v.DocumentId = core.ID(id)
	if v.ModelName, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if v.ModelVersion, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if v.Pipeline, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if v.ExtractedAt, m, err = unmarshalTime(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if v.Notes, _, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	return &v, nil
}

// MarshalSpan serializes a Span to bytes.
func MarshalSpan(s *core.Span) []byte {
	size := varint.Uint64.Size(uint64(s.Id)) +
		varint.Uint64.Size(uint64(s.DocumentId)) +
		varint.Uint64.Size(uint64(s.VersionId)) +
		varint.Int.Size(s.Start) +
		varint.Int.Size(s.End) +
		ord.String.Size(s.Text) +
		varint.Int.Size(s.PageHint) +
		varint.Float64.Size(s.Quality)

	buf := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(s.Id), buf)
	n += varint.Uint64.Marshal(uint64(s.DocumentId), buf[n:])
	n += varint.Uint64.Marshal(uint64(s.VersionId), buf[n:])
	n += varint.Int.Marshal(s.Start, buf[n:])
	n += varint.Int.Marshal(s.End, buf[n:])
	n += ord.String.Marshal(s.Text, buf[n:])
	n += varint.Int.Marshal(s.PageHint, buf[n:])
	varint.Float64.Marshal(s.Quality, buf[n:])
	return buf
}

// UnmarshalSpan deserializes a Span from bytes.
func UnmarshalSpan(data []byte) (*core.Span, error) {
	var s core.Span
	id, n, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	s.Id = core.ID(id)
	id, m, err := varint.Uint64.Unmarshal(data[n:])
	n += m
	if err != nil {
		return nil, err
	}
	s.DocumentId = core.ID(id)
	id, m, err = varint.Uint64.Unmarshal(data[n:])
	n += m
	if err != nil {
		return nil, err
	}
	s.VersionId = core.ID(id)
	if s.Start, m, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if s.End, m, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if s.Text, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if s.PageHint, m, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if s.Quality, _, err = varint.Float64.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	return &s, nil
}

// MarshalConcept serializes a Concept to bytes.
func MarshalConcept(c *core.Concept) []byte {
	size := varint.Uint64.Size(uint64(c.Id)) +
		varint.Uint64.Size(uint64(c.DocumentId)) +
		varint.Uint64.Size(uint64(c.VersionId)) +
		ord.String.Size(c.Label) +
		ord.String.Size(string(c.Type)) +
		varint.Float64.Size(c.Confidence) +
		sizeStrings(c.Aliases) +
		sizeStrings(c.Tags) +
		ord.String.Size(c.Summary) +
		varint.Uint64.Size(uint64(c.ParentId)) +
		sizeBytes(c.Vector) +
		ord.String.Size(c.VectorFingerprint) +
		ord.String.Size(c.VectorModel) +
		varint.Int.Size(c.VectorDim) +
		sizeTime(c.InsertedAt) +
		sizeTime(c.UpdatedAt)

	buf := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(c.Id), buf)
	n += varint.Uint64.Marshal(uint64(c.DocumentId), buf[n:])
	n += varint.Uint64.Marshal(uint64(c.VersionId), buf[n:])
	n += ord.String.Marshal(c.Label, buf[n:])
	n += ord.String.Marshal(string(c.Type), buf[n:])
	n += varint.Float64.Marshal(c.Confidence, buf[n:])
	n += marshalStrings(c.Aliases, buf[n:])
	n += marshalStrings(c.Tags, buf[n:])
	n += ord.String.Marshal(c.Summary, buf[n:])
	n += varint.Uint64.Marshal(uint64(c.ParentId), buf[n:])
	n += marshalBytes(c.Vector, buf[n:])
	n += ord.String.Marshal(c.VectorFingerprint, buf[n:])
	n += ord.String.Marshal(c.VectorModel, buf[n:])
	n += varint.Int.Marshal(c.VectorDim, buf[n:])
	n += marshalTime(c.InsertedAt, buf[n:])
	marshalTime(c.UpdatedAt, buf[n:])
	return buf
}

// UnmarshalConcept deserializes a Concept from bytes.
func UnmarshalConcept(data []byte) (*core.Concept, error) {
	var c core.Concept
	id, n, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	c.Id = core.ID(id)
	id, m, err := varint.Uint64.Unmarshal(data[n:])
	n += m
	if err != nil {
		return nil, err
	}
	c.DocumentId = core.ID(id)
	id, m, err = varint.Uint64.Unmarshal(data[n:])
	n += m
	if err != nil {
		return nil, err
	}
	c.VersionId = core.ID(id)
	if c.Label, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	var typ string
	if typ, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	c.Type = core.ConceptType(typ)
	if c.Confidence, m, err = varint.Float64.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if c.Aliases, m, err = unmarshalStrings(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if c.Tags, m, err = unmarshalStrings(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if c.Summary, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if id, m, err = varint.Uint64.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	c.ParentId = core.ID(id)
	if c.Vector, m, err = unmarshalBytes(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if c.VectorFingerprint, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if c.VectorModel, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if c.VectorDim, m, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if c.InsertedAt, m, err = unmarshalTime(data[n:]); err != nil {
		return nil, err
	}
	n += m
	if c.UpdatedAt, _, err = unmarshalTime(data[n:]); err != nil {
		return nil, err
	}
	return &c, nil
}

// MarshalRelation serializes a Relation to bytes.
func MarshalRelation(r *core.Relation) []byte {
	size := varint.Uint64.Size(uint64(r.Id)) +
		varint.Uint64.Size(uint64(r.DocumentId)) +
		varint.Uint64.Size(uint64(r.VersionId)) +
		varint.Uint64.Size(uint64(r.Src)) +
		ord.String.Size(string(r.Verb)) +
		varint.Uint64.Size(uint64(r.Dst)) +
		varint.Float64.Size(r.Confidence)

	buf := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(r.Id), buf)
	n += varint.Uint64.Marshal(uint64(r.DocumentId), buf[n:])
	n += varint.Uint64.Marshal(uint64(r.VersionId), buf[n:])
	n += varint.Uint64.Marshal(uint64(r.Src), buf[n:])
	n += ord.String.Marshal(string(r.Verb), buf[n:])
	n += varint.Uint64.Marshal(uint64(r.Dst), buf[n:])
	varint.Float64.Marshal(r.Confidence, buf[n:])
	return buf
}

// UnmarshalRelation deserializes a Relation from bytes.
func UnmarshalRelation(data []byte) (*core.Relation, error) {
	var r core.Relation
	id, n, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	r.Id = core.ID(id)
	id, m, err := varint.Uint64.Unmarshal(data[n:])
	n += m
	if err != nil {
		return nil, err
	}
	r.DocumentId = core.ID(id)
	id, m, err = varint.Uint64.Unmarshal(data[n:])
	n += m
	if err != nil {
		return nil, err
	}
	r.VersionId = core.ID(id)
	id, m, err = varint.Uint64.Unmarshal(data[n:])
	n += m
	if err != nil {
		return nil, err
	}
	r.Src = core.ID(id)
	var verb string
	if verb, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	r.Verb = core.RelationVerb(verb)
	if id, m, err = varint.Uint64.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	n += m
	r.Dst = core.ID(id)
	if r.Confidence, _, err = varint.Float64.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	return &r, nil
}

// MarshalMention serializes a Mention to bytes.
func MarshalMention(mn *core.Mention) []byte {
	size := varint.Uint64.Size(uint64(mn.Id)) +
		varint.Uint64.Size(uint64(mn.ConceptId)) +
		varint.Uint64.Size(uint64(mn.SpanId)) +
		varint.Float64.Size(mn.Confidence)

	buf := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(mn.Id), buf)
	n += varint.Uint64.Marshal(uint64(mn.ConceptId), buf[n:])
	n += varint.Uint64.Marshal(uint64(mn.SpanId), buf[n:])
	varint.Float64.Marshal(mn.Confidence, buf[n:])
	return buf
}

// UnmarshalMention deserializes a Mention from bytes.
func UnmarshalMention(data []byte) (*core.Mention, error) {
	var mn core.Mention
	id, n, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	mn.Id = core.ID(id)
	id, m, err := varint.Uint64.Unmarshal(data[n:])
	n += m
	if err != nil {
		return nil, err
	}
	mn.ConceptId = core.ID(id)
	id, m, err = varint.Uint64.Unmarshal(data[n:])
	n += m
	if err != nil {
		return nil, err
	}
	mn.SpanId = core.ID(id)
	if mn.Confidence, _, err = varint.Float64.Unmarshal(data[n:]); err != nil {
		return nil, err
	}
	return &mn, nil
}
