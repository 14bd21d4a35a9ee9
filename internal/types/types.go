package types

import (
	"fmt"
	"strings"
)

type KV struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// HeaderAuthorization is the only header key that may appear at most once.
const HeaderAuthorization = "Authorization"

func IsAuthorization(key string) bool {
	return strings.EqualFold(strings.TrimSpace(key), HeaderAuthorization)
}

type Method string

const (
	MethodOptions Method = "OPTIONS"
	MethodHead    Method = "HEAD"
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
)

var Methods = []Method{MethodOptions, MethodHead, MethodGet, MethodPost, MethodPut, MethodPatch}

func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Methods {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unsupported method %q", s)
}

// String returns the verb, falling back to GET for the zero value.
func (m Method) String() string {
	if m == "" {
		return string(MethodGet)
	}
	return string(m)
}

type RequestData struct {
	Name    string `json:"name" yaml:"name"`
	Method  Method `json:"method" yaml:"method"`
	URL     string `json:"url" yaml:"url"`
	Headers []KV   `json:"headers" yaml:"headers,omitempty"`

	Auth         map[AuthScheme]AuthCredential `json:"auth" yaml:"auth,omitempty"`
	SelectedAuth AuthScheme                    `json:"selectedAuth" yaml:"selectedAuth"`

	Body         map[BodyKind]BodyPayload `json:"body" yaml:"body,omitempty"`
	SelectedBody BodyKind                 `json:"selectedBody" yaml:"selectedBody"`
}

const DefaultRequestName = "New Request"

func NewRequestData(name string) RequestData {
	if name == "" {
		name = DefaultRequestName
	}
	return RequestData{
		Name:         name,
		Method:       MethodGet,
		Headers:      []KV{},
		Auth:         map[AuthScheme]AuthCredential{},
		SelectedAuth: AuthNone,
		Body:         map[BodyKind]BodyPayload{},
		SelectedBody: BodyNone,
	}
}

// Normalize fills zero values left behind by older or partial documents.
func (d *RequestData) Normalize() {
	if d.Method == "" {
		d.Method = MethodGet
	}
	if d.Headers == nil {
		d.Headers = []KV{}
	}
	if d.Auth == nil {
		d.Auth = map[AuthScheme]AuthCredential{}
	}
	if d.SelectedAuth == "" {
		d.SelectedAuth = AuthNone
	}
	if d.Body == nil {
		d.Body = map[BodyKind]BodyPayload{}
	}
	if d.SelectedBody == "" {
		d.SelectedBody = BodyNone
	}
}

func (d RequestData) Clone() RequestData {
	out := d
	out.Headers = append([]KV{}, d.Headers...)
	out.Auth = make(map[AuthScheme]AuthCredential, len(d.Auth))
	for k, v := range d.Auth {
		out.Auth[k] = v
	}
	out.Body = make(map[BodyKind]BodyPayload, len(d.Body))
	for k, v := range d.Body {
		out.Body[k] = v.Clone()
	}
	return out
}

func (d RequestData) SelectedBodyBytes() []byte {
	p, ok := d.Body[d.SelectedBody]
	if !ok {
		return []byte{}
	}
	return p.Bytes()
}
