// Package yamlio reads and writes a collection as a human editable YAML file.
// Identities are not part of the file; importing always yields fresh ids.
package yamlio

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"packets/internal/auth"
	"packets/internal/collection"
	"packets/internal/record"
	"packets/internal/types"
)

type Collection struct {
	Name     string    `yaml:"name"`
	Auth     Auth      `yaml:"auth,omitempty"`
	Requests []Request `yaml:"requests"`
}

type Request struct {
	Name    string     `yaml:"name"`
	Method  string     `yaml:"method"`
	URL     string     `yaml:"url"`
	Headers []types.KV `yaml:"headers,omitempty"`
	Auth    Auth       `yaml:"auth,omitempty"`
	Body    Body       `yaml:"body,omitempty"`
}

type Auth struct {
	Selected    types.AuthScheme       `yaml:"selected,omitempty"`
	Credentials []types.AuthCredential `yaml:"credentials,omitempty"`
}

// Body keeps binary payloads base64 encoded so the file stays text.
type Body struct {
	Selected types.BodyKind `yaml:"selected,omitempty"`
	Raw      string         `yaml:"raw,omitempty"`
	Binary   string         `yaml:"binary,omitempty"`
}

func FromCollection(c *collection.Collection) Collection {
	out := Collection{
		Name:     c.Name,
		Auth:     fromAuth(c.SelectedAuth, c.Auth),
		Requests: make([]Request, 0, len(c.Requests)),
	}
	for _, r := range c.Requests {
		d := r.Data
		req := Request{
			Name:    d.Name,
			Method:  d.Method.String(),
			URL:     d.URL,
			Headers: d.Headers,
			Auth:    fromAuth(d.SelectedAuth, d.Auth),
			Body:    Body{Selected: d.SelectedBody},
		}
		if p, ok := d.Body[types.BodyRaw]; ok {
			req.Body.Raw = p.Text
		}
		if p, ok := d.Body[types.BodyBinary]; ok && len(p.Data) > 0 {
			req.Body.Binary = base64.StdEncoding.EncodeToString(p.Data)
		}
		out.Requests = append(out.Requests, req)
	}
	return out
}

func fromAuth(selected types.AuthScheme, creds map[types.AuthScheme]types.AuthCredential) Auth {
	a := Auth{Selected: selected}
	for _, s := range types.AuthSchemes {
		if cred, ok := creds[s]; ok && s.NeedsCredential() {
			a.Credentials = append(a.Credentials, cred)
		}
	}
	return a
}

// ToCollection builds a new collection with fresh identities. Requests start
// out unsaved.
func (doc Collection) ToCollection() (*collection.Collection, error) {
	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return nil, collection.ErrEmptyName
	}
	c := collection.New(name)
	for _, cred := range doc.Auth.Credentials {
		c.SetCredential(cred)
	}
	if doc.Auth.Selected != "" {
		if err := c.SelectAuth(doc.Auth.Selected); err != nil {
			return nil, fmt.Errorf("collection auth: %w", err)
		}
	}

	for i, req := range doc.Requests {
		d, err := req.data()
		if err != nil {
			return nil, fmt.Errorf("request %d (%s): %w", i, req.Name, err)
		}
		c.Add(record.Restore(uuid.Nil, d))
	}
	return c, nil
}

func (req Request) data() (types.RequestData, error) {
	d := types.NewRequestData(req.Name)
	if req.Method != "" {
		m, err := types.ParseMethod(req.Method)
		if err != nil {
			return d, err
		}
		d.Method = m
	}
	d.URL = req.URL
	d.Headers = append(d.Headers, req.Headers...)

	for _, cred := range req.Auth.Credentials {
		if _, err := types.ParseAuthScheme(string(cred.Scheme)); err != nil {
			return d, err
		}
		if cred.Scheme.NeedsCredential() {
			d.Auth[cred.Scheme] = cred
		}
	}
	if req.Auth.Selected != "" {
		if _, err := types.ParseAuthScheme(string(req.Auth.Selected)); err != nil {
			return d, err
		}
		d.SelectedAuth = req.Auth.Selected
	}
	auth.Provision(&d)

	if req.Body.Raw != "" || req.Body.Selected == types.BodyRaw {
		d.Body[types.BodyRaw] = types.RawBody(req.Body.Raw)
	}
	if req.Body.Binary != "" || req.Body.Selected == types.BodyBinary {
		raw, err := base64.StdEncoding.DecodeString(req.Body.Binary)
		if err != nil {
			return d, fmt.Errorf("binary body: %w", err)
		}
		d.Body[types.BodyBinary] = types.BinaryBody(raw)
	}
	if req.Body.Selected != "" {
		kind, err := types.ParseBodyKind(string(req.Body.Selected))
		if err != nil {
			return d, err
		}
		d.SelectedBody = kind
	}
	return d, nil
}

func Marshal(c *collection.Collection) ([]byte, error) {
	data, err := yaml.Marshal(FromCollection(c))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal collection: %w", err)
	}
	return data, nil
}

func Unmarshal(data []byte) (*collection.Collection, error) {
	var doc Collection
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return doc.ToCollection()
}

// Save writes c to filePath, adding a .yaml extension when missing, and returns
// the path actually written.
func Save(c *collection.Collection, filePath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if !strings.HasSuffix(filePath, ".yaml") && !strings.HasSuffix(filePath, ".yml") {
		filePath += ".yaml"
	}
	data, err := Marshal(c)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return filePath, nil
}

func Load(filePath string) (*collection.Collection, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Unmarshal(data)
}
