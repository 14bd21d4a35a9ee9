package workspace

import (
	"github.com/google/uuid"

	"packets/internal/collection"
	"packets/internal/record"
	"packets/internal/storage"
	"packets/internal/types"
)

// Snapshot captures the persistent content of every collection. Pending
// exchanges, save flags and parameter views are left out.
func (w *Workspace) Snapshot() storage.AppState {
	st := storage.AppState{
		Version:     storage.StateVersion,
		Collections: make([]storage.CollectionState, 0),
	}
	for _, c := range w.store.Collections() {
		cs := storage.CollectionState{
			ID:           c.ID,
			Name:         c.Name,
			Auth:         make(map[types.AuthScheme]types.AuthCredential, len(c.Auth)),
			SelectedAuth: c.SelectedAuth,
			Requests:     make([]storage.RequestState, 0, len(c.Requests)),
		}
		for k, v := range c.Auth {
			cs.Auth[k] = v
		}
		for _, r := range c.Requests {
			cs.Requests = append(cs.Requests, storage.RequestState{ID: r.ID, Data: r.Data.Clone()})
		}
		st.Collections = append(st.Collections, cs)
	}
	return st
}

// Restore replaces the workspace content with st. Every restored request
// starts out unsaved and with its parameter view rebuilt from the URL.
func (w *Workspace) Restore(st storage.AppState) {
	w.store = collection.NewStore()
	for _, cs := range st.Collections {
		c := collection.New(cs.Name)
		if cs.ID != uuid.Nil {
			c.ID = cs.ID
		}
		for _, cred := range cs.Auth {
			c.SetCredential(cred)
		}
		if cs.SelectedAuth != "" {
			if err := c.SelectAuth(cs.SelectedAuth); err != nil {
				w.logger.Warn("restore: ignoring collection auth", "collection", cs.Name, "scheme", cs.SelectedAuth, "err", err)
			}
		}
		for _, rs := range cs.Requests {
			c.Add(record.Restore(rs.ID, rs.Data))
		}
		w.store.Add(c)
	}
	w.logger.Debug("restored state", "collections", len(st.Collections))
}
