package store

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/jward/garnet/internal/diag"
	"github.com/jward/garnet/internal/types"
)

const (
	concreteTag uint8 = iota + 1
	functionTag
	containerTag
	unsureTag
)

// wireType is the msgpack form of types.Type. A nil *wireType is an absent
// type.
type wireType struct {
	Tag     uint8       `msgpack:"t"`
	Name    string      `msgpack:"n,omitempty"`
	Key     *wireType   `msgpack:"k,omitempty"`
	Elem    *wireType   `msgpack:"e,omitempty"`
	Params  []*wireType `msgpack:"p,omitempty"`
	Return  *wireType   `msgpack:"r,omitempty"`
	Members []*wireType `msgpack:"m,omitempty"`
}

func toWire(t types.Type) *wireType {
	switch t := t.(type) {
	case types.Concrete:
		return &wireType{Tag: concreteTag, Name: t.Name}
	case types.Container:
		return &wireType{Tag: containerTag, Name: t.Class, Key: toWire(t.Key), Elem: toWire(t.Elem)}
	case types.Function:
		w := &wireType{Tag: functionTag, Return: toWire(t.Return)}
		for _, p := range t.Params {
			w.Params = append(w.Params, toWire(p))
		}
		return w
	case types.Unsure:
		w := &wireType{Tag: unsureTag}
		for _, m := range t.Members {
			w.Members = append(w.Members, toWire(m))
		}
		return w
	default:
		return nil
	}
}

func fromWire(w *wireType) (types.Type, error) {
	if w == nil {
		return nil, nil
	}
	switch w.Tag {
	case concreteTag:
		return types.Concrete{Name: w.Name}, nil
	case containerTag:
		key, err := fromWire(w.Key)
		if err != nil {
			return nil, err
		}
		elem, err := fromWire(w.Elem)
		if err != nil {
			return nil, err
		}
		return types.Container{Class: w.Name, Key: key, Elem: elem}, nil
	case functionTag:
		fn := types.Function{Params: make([]types.Type, len(w.Params))}
		for i, p := range w.Params {
			t, err := fromWire(p)
			if err != nil {
				return nil, err
			}
			fn.Params[i] = t
		}
		ret, err := fromWire(w.Return)
		if err != nil {
			return nil, err
		}
		fn.Return = ret
		return fn, nil
	case unsureTag:
		u := types.Unsure{Members: make([]types.Type, 0, len(w.Members))}
		for _, m := range w.Members {
			t, err := fromWire(m)
			if err != nil {
				return nil, err
			}
			u.Members = append(u.Members, t)
		}
		return u, nil
	default:
		return nil, fmt.Errorf("unknown type tag %d", w.Tag)
	}
}

// EncodeType serializes t. An absent type encodes to nil.
func EncodeType(t types.Type) ([]byte, error) {
	w := toWire(t)
	if w == nil {
		return nil, nil
	}
	b, err := msgpack.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode type %s: %w", t, err)
	}
	return b, nil
}

// DecodeType is the inverse of EncodeType.
func DecodeType(b []byte) (types.Type, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var w wireType
	if err := msgpack.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("decode type: %w", err)
	}
	return fromWire(&w)
}

func encodeNotes(notes []diag.Note) ([]byte, error) {
	if len(notes) == 0 {
		return nil, nil
	}
	return msgpack.Marshal(notes)
}

func decodeNotes(b []byte) ([]diag.Note, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var notes []diag.Note
	if err := msgpack.Unmarshal(b, &notes); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	return notes, nil
}
