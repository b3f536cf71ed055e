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
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/ifcingest/core"
)

// maxValueDepth bounds nesting of aggregates while decoding.
const maxValueDepth = 64

// MarshalLabel serializes an entity label to bytes.
func MarshalLabel(label uint64) []byte {
	buf := make([]byte, varint.Uint64.Size(label))
	varint.Uint64.Marshal(label, buf)
	return buf
}

// UnmarshalLabel deserializes an entity label from bytes.
func UnmarshalLabel(data []byte) (uint64, error) {
	label, _, err := varint.Uint64.Unmarshal(data)
	return label, err
}

// MarshalEntity serializes an Entity to bytes.
func MarshalEntity(entity *core.Entity) []byte {
	buf := make([]byte, sizeEntity(entity))
	marshalEntity(entity, buf)
	return buf
}

// UnmarshalEntity deserializes an Entity from bytes.
func UnmarshalEntity(data []byte) (*core.Entity, error) {
	entity, _, err := unmarshalEntity(data)
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func sizeEntity(e *core.Entity) int {
	size := varint.Uint64.Size(e.Label)
	size += ord.String.Size(e.Type)
	size += varint.Int.Size(len(e.Attributes))
	for _, attr := range e.Attributes {
		size += sizeValue(attr)
	}
	return size
}

func marshalEntity(e *core.Entity, bs []byte) (n int) {
	n = varint.Uint64.Marshal(e.Label, bs)
	n += ord.String.Marshal(e.Type, bs[n:])
	n += varint.Int.Marshal(len(e.Attributes), bs[n:])
	for _, attr := range e.Attributes {
		n += marshalValue(attr, bs[n:])
	}
	return n
}

func unmarshalEntity(bs []byte) (*core.Entity, int, error) {
	label, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	typeName, n1, err := ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, n, err
	}
	count, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, n, err
	}
	if count < 0 || count > len(bs)-n {
		return nil, n, ErrTruncatedData
	}

	entity := &core.Entity{
		Label:      label,
		Type:       typeName,
		Attributes: make([]core.Value, count),
	}
	for i := range count {
		v, n1, err := unmarshalValue(bs[n:], 0)
		n += n1
		if err != nil {
			return nil, n, err
		}
		entity.Attributes[i] = v
	}
	return entity, n, nil
}

func sizeValue(v core.Value) int {
	size := varint.Int.Size(int(v.Kind))
	switch v.Kind {
	case core.KindString, core.KindEnum, core.KindBinary:
		size += ord.String.Size(v.Str)
	case core.KindInteger:
		size += varint.Int64.Size(v.Int)
	case core.KindReal:
		size += raw.Float64.Size(v.Real)
	case core.KindRef:
		size += varint.Uint64.Size(v.Ref)
	case core.KindTyped:
		size += ord.String.Size(v.Str)
		size += sizeList(v.List)
	case core.KindList:
		size += sizeList(v.List)
	}
	return size
}

func sizeList(items []core.Value) int {
	size := varint.Int.Size(len(items))
	for _, item := range items {
		size += sizeValue(item)
	}
	return size
}

func marshalValue(v core.Value, bs []byte) (n int) {
	n = varint.Int.Marshal(int(v.Kind), bs)
	switch v.Kind {
	case core.KindString, core.KindEnum, core.KindBinary:
		n += ord.String.Marshal(v.Str, bs[n:])
	case core.KindInteger:
		n += varint.Int64.Marshal(v.Int, bs[n:])
	case core.KindReal:
		n += raw.Float64.Marshal(v.Real, bs[n:])
	case core.KindRef:
		n += varint.Uint64.Marshal(v.Ref, bs[n:])
	case core.KindTyped:
		n += ord.String.Marshal(v.Str, bs[n:])
		n += marshalList(v.List, bs[n:])
	case core.KindList:
		n += marshalList(v.List, bs[n:])
	}
	return n
}

func marshalList(items []core.Value, bs []byte) (n int) {
	n = varint.Int.Marshal(len(items), bs)
	for _, item := range items {
		n += marshalValue(item, bs[n:])
	}
	return n
}

func unmarshalValue(bs []byte, depth int) (core.Value, int, error) {
	if depth > maxValueDepth {
		return core.Value{}, 0, fmt.Errorf("%w: value nesting exceeds %d", ErrSerializationFailed, maxValueDepth)
	}

	kind, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return core.Value{}, n, err
	}

	v := core.Value{Kind: core.ValueKind(kind)}
	var n1 int
	switch v.Kind {
	case core.KindNull, core.KindDerived:
	case core.KindString, core.KindEnum, core.KindBinary:
		v.Str, n1, err = ord.String.Unmarshal(bs[n:])
	case core.KindInteger:
		v.Int, n1, err = varint.Int64.Unmarshal(bs[n:])
	case core.KindReal:
		v.Real, n1, err = raw.Float64.Unmarshal(bs[n:])
	case core.KindRef:
		v.Ref, n1, err = varint.Uint64.Unmarshal(bs[n:])
	case core.KindTyped:
		v.Str, n1, err = ord.String.Unmarshal(bs[n:])
		if err == nil {
			var n2 int
			v.List, n2, err = unmarshalList(bs[n+n1:], depth)
			n1 += n2
		}
	case core.KindList:
		v.List, n1, err = unmarshalList(bs[n:], depth)
	default:
		return core.Value{}, n, fmt.Errorf("%w: unknown value kind %d", ErrSerializationFailed, kind)
	}
	return v, n + n1, err
}

func unmarshalList(bs []byte, depth int) ([]core.Value, int, error) {
	count, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if count < 0 || count > len(bs)-n {
		return nil, n, ErrTruncatedData
	}

	items := make([]core.Value, count)
	for i := range count {
		item, n1, err := unmarshalValue(bs[n:], depth+1)
		n += n1
		if err != nil {
			return nil, n, err
		}
		items[i] = item
	}
	return items, n, nil
}
