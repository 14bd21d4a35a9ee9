// Package record holds one editable request definition together with its
// identity and saved-state tracking.
package record

import (
	"log/slog"

	"github.com/google/uuid"

	"packets/internal/auth"
	"packets/internal/contenthash"
	"packets/internal/params"
	"packets/internal/types"
)

type Record struct {
	ID   uuid.UUID
	Data types.RequestData

	// Transient state, never persisted.
	params    []types.KV
	wantSave  bool
	savedHash string
}

func New(name string) *Record {
	return &Record{
		ID:     uuid.New(),
		Data:   types.NewRequestData(name),
		params: []types.KV{},
	}
}

// Restore rebuilds a record loaded from storage. The parameter view is derived
// from the URL and the record starts out unsaved. A selected scheme that lacks
// a credential gets the default one.
func Restore(id uuid.UUID, data types.RequestData) *Record {
	data.Normalize()
	auth.Provision(&data)
	if id == uuid.Nil {
		id = uuid.New()
	}
	r := &Record{ID: id, Data: data}
	r.params = params.URLToParams(data.URL)
	return r
}

// Duplicate copies the content under a fresh identity. The copy is unsaved.
func (r *Record) Duplicate() *Record {
	return &Record{
		ID:     uuid.New(),
		Data:   r.Data.Clone(),
		params: append([]types.KV{}, r.params...),
	}
}

func (r *Record) Name() string { return r.Data.Name }

func (r *Record) Params() []types.KV {
	return append([]types.KV{}, r.params...)
}

func (r *Record) MarkWantSave() { r.wantSave = true }

func (r *Record) WantsSave() bool { return r.wantSave }

// DoSave consumes the want-save flag. When it was set, the current content hash
// becomes the saved hash and DoSave reports true.
func (r *Record) DoSave() bool {
	if !r.wantSave {
		return false
	}
	r.wantSave = false
	r.savedHash = r.Hash()
	return true
}

func (r *Record) ChangedSinceSave() bool {
	if r.savedHash == "" {
		return true
	}
	return r.savedHash != r.Hash()
}

// Hash is recomputed on every call.
func (r *Record) Hash() string {
	h, err := contenthash.Of(r.Data)
	if err != nil {
		// RequestData only holds strings, byte slices and string-keyed maps.
		slog.Error("record: hash request data", "id", r.ID, "error", err)
		return ""
	}
	return h
}

// Title is the display name, starred while there are unsaved changes.
func (r *Record) Title() string {
	if r.ChangedSinceSave() {
		return "*" + r.Data.Name
	}
	return r.Data.Name
}

func (r *Record) Apply(muts ...Mutation) {
	for _, m := range muts {
		m(r)
	}
}

type Mutation func(r *Record)

func SetName(name string) Mutation {
	return func(r *Record) { r.Data.Name = name }
}

func SetMethod(m types.Method) Mutation {
	return func(r *Record) { r.Data.Method = m }
}

// SetURL is an edit of the URL text; the parameter list follows the URL.
func SetURL(rawURL string) Mutation {
	return func(r *Record) {
		r.Data.URL = rawURL
		r.params = params.URLToParams(rawURL)
	}
}

// SetParams is an edit of the parameter list; the URL follows the list.
func SetParams(ps []types.KV) Mutation {
	return func(r *Record) {
		r.params = params.Prune(ps)
		r.Data.URL = params.ParamsToURL(r.params, r.Data.URL)
	}
}

// SetHeaders replaces the header list. When the selected scheme derives a
// header it owns the Authorization entry; otherwise the first user-entered
// Authorization entry is kept and later ones are dropped.
func SetHeaders(headers []types.KV) Mutation {
	return func(r *Record) {
		pruned := params.Prune(headers)
		if _, ok := auth.DeriveHeader(r.Data.SelectedAuth, r.Data.Auth); ok {
			r.Data.Headers = pruned
			auth.Sync(&r.Data)
			return
		}
		out := make([]types.KV, 0, len(pruned))
		seen := false
		for _, h := range pruned {
			if types.IsAuthorization(h.Key) {
				if seen {
					continue
				}
				seen = true
			}
			out = append(out, h)
		}
		r.Data.Headers = out
	}
}

func SelectAuth(scheme types.AuthScheme) Mutation {
	return func(r *Record) { auth.Select(&r.Data, scheme) }
}

func SetCredential(cred types.AuthCredential) Mutation {
	return func(r *Record) { auth.SetCredential(&r.Data, cred) }
}

func SelectBody(kind types.BodyKind) Mutation {
	return func(r *Record) { r.Data.SelectedBody = kind }
}

// SetBody stores payload under its own kind without changing the selection.
func SetBody(payload types.BodyPayload) Mutation {
	return func(r *Record) {
		if r.Data.Body == nil {
			r.Data.Body = map[types.BodyKind]types.BodyPayload{}
		}
		r.Data.Body[payload.Kind] = payload.Clone()
	}
}
