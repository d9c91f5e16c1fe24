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


package core

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted core types. Vectors use raw float32
// encoding for speed, everything variable-length is varint prefixed.
var (
	IDMUS       = idMUS{}
	FragmentMUS = fragmentMUS{}
	EntityMUS   = entityMUS{}
	DocumentMUS = documentMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

// Timestamps are stored as Unix nanoseconds. The zero time maps to 0 so
// it survives a round trip.

func marshalTime(t time.Time, bs []byte) int {
	var ns int64
	if !t.IsZero() {
		ns = t.UnixNano()
	}
	return raw.Int64.Marshal(ns, bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	ns, n, err := raw.Int64.Unmarshal(bs)
	if err != nil || ns == 0 {
		return time.Time{}, n, err
	}
	return time.Unix(0, ns).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	return raw.Int64.Size(0)
}

// checkLength validates a decoded element count against the bytes that
// remain. Each element occupies at least minSize bytes, so a count the
// buffer cannot hold means the record is corrupt. Catching it here
// keeps a bad varint prefix from turning into a huge allocation or a
// negative-length panic.
func checkLength(length, minSize, remaining int) error {
	if length < 0 || length > remaining/minSize {
		return fmt.Errorf("%w: %d elements in %d remaining bytes", ErrCorruptRecord, length, remaining)
	}
	return nil
}

func marshalStrings(ss []string, bs []byte) int {
	n := varint.Int.Marshal(len(ss), bs)
	for _, s := range ss {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStrings(bs []byte) ([]string, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	if err := checkLength(length, 1, len(bs)-n); err != nil {
		return nil, n, err
	}
	ss := make([]string, length)
	for i := 0; i < length; i++ {
		var m int
		ss[i], m, err = ord.String.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
	}
	return ss, n, nil
}

func sizeStrings(ss []string) int {
	size := varint.Int.Size(len(ss))
	for _, s := range ss {
		size += ord.String.Size(s)
	}
	return size
}

func marshalVector(vec []float32, bs []byte) int {
	n := varint.Int.Marshal(len(vec), bs)
	for _, v := range vec {
		n += raw.Float32.Marshal(v, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) ([]float32, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	if err := checkLength(length, raw.Float32.Size(0), len(bs)-n); err != nil {
		return nil, n, err
	}
	vec := make([]float32, length)
	for i := 0; i < length; i++ {
		var m int
		vec[i], m, err = raw.Float32.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
	}
	return vec, n, nil
}

func sizeVector(vec []float32) int {
	return varint.Int.Size(len(vec)) + len(vec)*raw.Float32.Size(0)
}

type fragmentMUS struct{}

func (fragmentMUS) Marshal(f Fragment, bs []byte) int {
	n := IDMUS.Marshal(f.Id, bs)
	n += IDMUS.Marshal(f.DocId, bs[n:])
	n += varint.Int.Marshal(int(f.Type), bs[n:])
	n += ord.String.Marshal(f.Content, bs[n:])
	n += ord.String.Marshal(f.ImagePath, bs[n:])
	n += marshalStrings(f.Captions, bs[n:])
	n += marshalStrings(f.Footnotes, bs[n:])
	n += varint.Int.Marshal(f.PageIndex, bs[n:])
	n += varint.Int.Marshal(f.Order, bs[n:])
	n += ord.String.Marshal(f.Description, bs[n:])
	n += marshalVector(f.Vector, bs[n:])
	n += varint.Int.Marshal(len(f.Entities), bs[n:])
	for _, ref := range f.Entities {
		n += IDMUS.Marshal(ref.EntityId, bs[n:])
		n += varint.Int.Marshal(ref.Weight, bs[n:])
	}
	n += marshalTime(f.InsertedAt, bs[n:])
	n += marshalTime(f.UpdatedAt, bs[n:])
	return n
}

func (fragmentMUS) Unmarshal(bs []byte) (f Fragment, n int, err error) {
	var m int
	if f.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if f.DocId, m, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return f, n + m, err
	}
	n += m
	var typ int
	if typ, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return f, n + m, err
	}
	n += m
	f.Type = FragmentType(typ)
	if f.Content, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return f, n + m, err
	}
	n += m
	if f.ImagePath, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return f, n + m, err
	}
	n += m
	if f.Captions, m, err = unmarshalStrings(bs[n:]); err != nil {
		return f, n + m, err
	}
	n += m
	if f.Footnotes, m, err = unmarshalStrings(bs[n:]); err != nil {
		return f, n + m, err
	}
	n += m
	if f.PageIndex, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return f, n + m, err
	}
	n += m
	if f.Order, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return f, n + m, err
	}
	n += m
	if f.Description, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return f, n + m, err
	}
	n += m
	if f.Vector, m, err = unmarshalVector(bs[n:]); err != nil {
		return f, n + m, err
	}
	n += m
	var refs int
	if refs, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return f, n + m, err
	}
	n += m
	if err = checkLength(refs, 2, len(bs)-n); err != nil {
		return f, n, err
	}
	if refs > 0 {
		f.Entities = make([]EntityRef, refs)
		for i := 0; i < refs; i++ {
			if f.Entities[i].EntityId, m, err = IDMUS.Unmarshal(bs[n:]); err != nil {
				return f, n + m, err
			}
			n += m
			if f.Entities[i].Weight, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
				return f, n + m, err
			}
			n += m
		}
	}
	if f.InsertedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return f, n + m, err
	}
	n += m
	if f.UpdatedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return f, n + m, err
	}
	n += m
	return f, n, nil
}

func (fragmentMUS) Size(f Fragment) int {
	size := IDMUS.Size(f.Id)
	size += IDMUS.Size(f.DocId)
	size += varint.Int.Size(int(f.Type))
	size += ord.String.Size(f.Content)
	size += ord.String.Size(f.ImagePath)
	size += sizeStrings(f.Captions)
	size += sizeStrings(f.Footnotes)
	size += varint.Int.Size(f.PageIndex)
	size += varint.Int.Size(f.Order)
	size += ord.String.Size(f.Description)
	size += sizeVector(f.Vector)
	size += varint.Int.Size(len(f.Entities))
	for _, ref := range f.Entities {
		size += IDMUS.Size(ref.EntityId)
		size += varint.Int.Size(ref.Weight)
	}
	size += sizeTime(f.InsertedAt)
	size += sizeTime(f.UpdatedAt)
	return size
}

type entityMUS struct{}

func (entityMUS) Marshal(e Entity, bs []byte) int {
	n := IDMUS.Marshal(e.Id, bs)
	n += ord.String.Marshal(e.Name, bs[n:])
	n += ord.String.Marshal(e.Type, bs[n:])
	n += ord.String.Marshal(e.Description, bs[n:])
	n += marshalVector(e.Vector, bs[n:])
	n += marshalTime(e.InsertedAt, bs[n:])
	n += marshalTime(e.UpdatedAt, bs[n:])
	return n
}

func (entityMUS) Unmarshal(bs []byte) (e Entity, n int, err error) {
	var m int
	if e.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if e.Name, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return e, n + m, err
	}
	n += m
	if e.Type, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return e, n + m, err
	}
	n += m
	if e.Description, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return e, n + m, err
	}
	n += m
	if e.Vector, m, err = unmarshalVector(bs[n:]); err != nil {
		return e, n + m, err
	}
	n += m
	if e.InsertedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return e, n + m, err
	}
	n += m
	if e.UpdatedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return e, n + m, err
	}
	n += m
	return e, n, nil
}

func (entityMUS) Size(e Entity) int {
	size := IDMUS.Size(e.Id)
	size += ord.String.Size(e.Name)
	size += ord.String.Size(e.Type)
	size += ord.String.Size(e.Description)
	size += sizeVector(e.Vector)
	size += sizeTime(e.InsertedAt)
	size += sizeTime(e.UpdatedAt)
	return size
}

type documentMUS struct{}

func (documentMUS) Marshal(d Document, bs []byte) int {
	n := IDMUS.Marshal(d.Id, bs)
	n += ord.String.Marshal(d.Path, bs[n:])
	n += ord.String.Marshal(d.ParseMethod, bs[n:])
	n += varint.Int.Marshal(d.FragmentCount, bs[n:])
	n += marshalTime(d.InsertedAt, bs[n:])
	n += marshalTime(d.UpdatedAt, bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (d Document, n int, err error) {
	var m int
	if d.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if d.Path, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + m, err
	}
	n += m
	if d.ParseMethod, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + m, err
	}
	n += m
	if d.FragmentCount, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return d, n + m, err
	}
	n += m
	if d.InsertedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return d, n + m, err
	}
	n += m
	if d.UpdatedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return d, n + m, err
	}
	n += m
	return d, n, nil
}

func (documentMUS) Size(d Document) int {
	size := IDMUS.Size(d.Id)
	size += ord.String.Size(d.Path)
	size += ord.String.Size(d.ParseMethod)
	size += varint.Int.Size(d.FragmentCount)
	size += sizeTime(d.InsertedAt)
	size += sizeTime(d.UpdatedAt)
	return size
}
