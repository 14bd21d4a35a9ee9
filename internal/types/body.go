package types

import "fmt"

type BodyKind string

const (
	BodyNone   BodyKind = "none"
	BodyRaw    BodyKind = "raw"
	BodyBinary BodyKind = "binary"
)

var BodyKinds = []BodyKind{BodyNone, BodyRaw, BodyBinary}

func ParseBodyKind(s string) (BodyKind, error) {
	for _, known := range BodyKinds {
		if BodyKind(s) == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unsupported body kind %q", s)
}

// BodyPayload holds one body variant. Only the field matching Kind is meaningful.
type BodyPayload struct {
	Kind BodyKind `json:"kind" yaml:"kind"`
	Text string   `json:"text,omitempty" yaml:"text,omitempty"`
	Data []byte   `json:"data,omitempty" yaml:"data,omitempty"`
}

func RawBody(text string) BodyPayload {
	return BodyPayload{Kind: BodyRaw, Text: text}
}

// BinaryBody takes bytes read from a file or pasted by the caller; it copies them.
func BinaryBody(data []byte) BodyPayload {
	return BodyPayload{Kind: BodyBinary, Data: append([]byte{}, data...)}
}

func (p BodyPayload) Bytes() []byte {
	switch p.Kind {
	case BodyRaw:
		return []byte(p.Text)
	case BodyBinary:
		return append([]byte{}, p.Data...)
	default:
		return []byte{}
	}
}

func (p BodyPayload) Clone() BodyPayload {
	if p.Data != nil {
		p.Data = append([]byte{}, p.Data...)
	}
	return p
}
