// Package workspace is the command and query surface a presentation layer
// drives: collections, requests, sending and saving, all addressed by id.
//
// A Workspace has a single owner. Callers that serve it from several
// goroutines must serialize access themselves.
package workspace

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"packets/internal/collection"
	"packets/internal/dispatch"
	"packets/internal/record"
	"packets/internal/types"
)

type Workspace struct {
	store  *collection.Store
	disp   *dispatch.Dispatcher
	logger *slog.Logger
}

func New(disp *dispatch.Dispatcher, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{store: collection.NewStore(), disp: disp, logger: logger}
}

func (w *Workspace) Collections() []*collection.Collection { return w.store.Collections() }

func (w *Workspace) Collection(id uuid.UUID) (*collection.Collection, error) {
	return w.store.Collection(id)
}

func (w *Workspace) CreateCollection(name string) (uuid.UUID, error) {
	c, err := w.store.NewCollection(name)
	if err != nil {
		return uuid.Nil, err
	}
	return c.ID, nil
}

// AddCollection adopts a fully built collection, e.g. an imported one.
func (w *Workspace) AddCollection(c *collection.Collection) {
	w.store.Add(c)
}

func (w *Workspace) RenameCollection(id uuid.UUID, name string) error {
	return w.store.Rename(id, name)
}

// RemoveCollection drops the collection and any pending exchanges of its
// requests. It returns the removed request ids.
func (w *Workspace) RemoveCollection(id uuid.UUID) ([]uuid.UUID, error) {
	ids, err := w.store.RemoveCollection(id)
	if err != nil {
		return nil, err
	}
	for _, rid := range ids {
		w.disp.Forget(rid)
	}
	return ids, nil
}

func (w *Workspace) SelectCollectionAuth(id uuid.UUID, scheme types.AuthScheme) error {
	c, err := w.store.Collection(id)
	if err != nil {
		return err
	}
	return c.SelectAuth(scheme)
}

func (w *Workspace) SetCollectionCredential(id uuid.UUID, cred types.AuthCredential) error {
	c, err := w.store.Collection(id)
	if err != nil {
		return err
	}
	c.SetCredential(cred)
	return nil
}

func (w *Workspace) CreateRequest(collectionID uuid.UUID, name string) (uuid.UUID, error) {
	c, err := w.store.Collection(collectionID)
	if err != nil {
		return uuid.Nil, err
	}
	return c.Create(name), nil
}

func (w *Workspace) DuplicateRequest(id uuid.UUID) (uuid.UUID, error) {
	c, _, err := w.store.Locate(id)
	if err != nil {
		return uuid.Nil, err
	}
	return c.Duplicate(id)
}

func (w *Workspace) RemoveRequest(id uuid.UUID) error {
	c, _, err := w.store.Locate(id)
	if err != nil {
		return err
	}
	if _, err := c.Remove(id); err != nil {
		return err
	}
	w.disp.Forget(id)
	return nil
}

func (w *Workspace) MoveRequest(id uuid.UUID, to int) error {
	c, _, err := w.store.Locate(id)
	if err != nil {
		return err
	}
	return c.Move(id, to)
}

func (w *Workspace) Request(id uuid.UUID) (*record.Record, error) {
	_, r, err := w.store.Locate(id)
	return r, err
}

// UpdateField applies the edits in order. Each edit keeps the record's
// invariants (URL and parameters in sync, a single Authorization header).
func (w *Workspace) UpdateField(id uuid.UUID, muts ...record.Mutation) error {
	r, err := w.Request(id)
	if err != nil {
		return err
	}
	r.Apply(muts...)
	return nil
}

func (w *Workspace) Search(query string) []collection.Match {
	return w.store.Search(query)
}

// Send snapshots the request as it is now and starts the exchange. A send
// already in flight for the same request is superseded.
func (w *Workspace) Send(id uuid.UUID) error {
	c, r, err := w.store.Locate(id)
	if err != nil {
		return err
	}
	wire := dispatch.Build(r.Data, c.DefaultHeader)
	w.disp.Send(id, wire)
	return nil
}

func (w *Workspace) PollResult(id uuid.UUID) (dispatch.Result, bool) {
	return w.disp.Poll(id)
}

func (w *Workspace) Pending(id uuid.UUID) bool {
	return w.disp.Pending(id)
}

// Wait blocks for the current exchange of id.
func (w *Workspace) Wait(ctx context.Context, id uuid.UUID) (dispatch.Result, error) {
	return w.disp.Wait(ctx, id)
}

func (w *Workspace) MarkWantSave(id uuid.UUID) error {
	r, err := w.Request(id)
	if err != nil {
		return err
	}
	r.MarkWantSave()
	return nil
}

func (w *Workspace) DoSave(id uuid.UUID) (bool, error) {
	r, err := w.Request(id)
	if err != nil {
		return false, err
	}
	return r.DoSave(), nil
}

// SaveAll marks and saves every request. It returns how many were saved.
func (w *Workspace) SaveAll() int {
	n := 0
	for _, c := range w.store.Collections() {
		for _, r := range c.Requests {
			r.MarkWantSave()
			if r.DoSave() {
				n++
			}
		}
	}
	return n
}

func (w *Workspace) ChangedSinceSave(id uuid.UUID) (bool, error) {
	r, err := w.Request(id)
	if err != nil {
		return false, err
	}
	return r.ChangedSinceSave(), nil
}

func (w *Workspace) Title(id uuid.UUID) (string, error) {
	r, err := w.Request(id)
	if err != nil {
		return "", err
	}
	return r.Title(), nil
}
