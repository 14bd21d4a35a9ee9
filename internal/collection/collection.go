package collection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"packets/internal/auth"
	"packets/internal/record"
	"packets/internal/types"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrRequestNotFound    = errors.New("request not found")
	ErrEmptyName          = errors.New("name must not be empty")
	ErrInheritNotAllowed  = errors.New("a collection cannot inherit authorization")
)

// Collection owns its requests exclusively. The auth settings are the default
// that requests selecting Inherit resolve to.
type Collection struct {
	ID           uuid.UUID
	Name         string
	Auth         map[types.AuthScheme]types.AuthCredential
	SelectedAuth types.AuthScheme
	Requests     []*record.Record
}

func New(name string) *Collection {
	return &Collection{
		ID:           uuid.New(),
		Name:         name,
		Auth:         map[types.AuthScheme]types.AuthCredential{},
		SelectedAuth: types.AuthNone,
	}
}

// Create appends a new request and returns its id.
func (c *Collection) Create(name string) uuid.UUID {
	r := record.New(name)
	c.Requests = append(c.Requests, r)
	return r.ID
}

// Add appends an existing record, e.g. one restored from storage.
func (c *Collection) Add(r *record.Record) {
	c.Requests = append(c.Requests, r)
}

func (c *Collection) Index(id uuid.UUID) int {
	for i, r := range c.Requests {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (c *Collection) Find(id uuid.UUID) (*record.Record, bool) {
	if i := c.Index(id); i >= 0 {
		return c.Requests[i], true
	}
	return nil, false
}

// Duplicate inserts a copy right after the source and returns the copy's id.
func (c *Collection) Duplicate(id uuid.UUID) (uuid.UUID, error) {
	i := c.Index(id)
	if i < 0 {
		return uuid.Nil, fmt.Errorf("duplicate %s: %w", id, ErrRequestNotFound)
	}
	dup := c.Requests[i].Duplicate()
	c.Requests = append(c.Requests, nil)
	copy(c.Requests[i+2:], c.Requests[i+1:])
	c.Requests[i+1] = dup
	return dup.ID, nil
}

// Remove deletes the request and returns the index it occupied.
func (c *Collection) Remove(id uuid.UUID) (int, error) {
	i := c.Index(id)
	if i < 0 {
		return -1, fmt.Errorf("remove %s: %w", id, ErrRequestNotFound)
	}
	c.Requests = append(c.Requests[:i], c.Requests[i+1:]...)
	return i, nil
}

// Move places the request at index to, clamped to the valid range.
func (c *Collection) Move(id uuid.UUID, to int) error {
	i := c.Index(id)
	if i < 0 {
		return fmt.Errorf("move %s: %w", id, ErrRequestNotFound)
	}
	r := c.Requests[i]
	c.Requests = append(c.Requests[:i], c.Requests[i+1:]...)
	to = max(0, min(to, len(c.Requests)))
	c.Requests = append(c.Requests, nil)
	copy(c.Requests[to+1:], c.Requests[to:])
	c.Requests[to] = r
	return nil
}

func (c *Collection) SelectAuth(scheme types.AuthScheme) error {
	if scheme == types.AuthInherit {
		return ErrInheritNotAllowed
	}
	if c.Auth == nil {
		c.Auth = map[types.AuthScheme]types.AuthCredential{}
	}
	if _, ok := c.Auth[scheme]; !ok && scheme.NeedsCredential() {
		c.Auth[scheme] = types.DefaultCredential(scheme)
	}
	c.SelectedAuth = scheme
	return nil
}

func (c *Collection) SetCredential(cred types.AuthCredential) {
	if !cred.Scheme.NeedsCredential() {
		return
	}
	if c.Auth == nil {
		c.Auth = map[types.AuthScheme]types.AuthCredential{}
	}
	c.Auth[cred.Scheme] = cred
}

// DefaultHeader is the Authorization value inherited by requests under Inherit.
func (c *Collection) DefaultHeader() (string, bool) {
	return auth.DeriveHeader(c.SelectedAuth, c.Auth)
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}
