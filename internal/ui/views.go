package ui

import (
	"github.com/google/uuid"

	"packets/internal/collection"
	"packets/internal/dispatch"
	"packets/internal/record"
	"packets/internal/types"
)

type collectionView struct {
	ID           uuid.UUID                                 `json:"id"`
	Name         string                                    `json:"name"`
	Auth         map[types.AuthScheme]types.AuthCredential `json:"auth"`
	SelectedAuth types.AuthScheme                          `json:"selectedAuth"`
	Requests     []requestSummary                          `json:"requests"`
}

type requestSummary struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Method string    `json:"method"`
	URL    string    `json:"url"`
}

type requestView struct {
	ID      uuid.UUID         `json:"id"`
	Title   string            `json:"title"`
	Changed bool              `json:"changed"`
	Pending bool              `json:"pending"`
	Params  []types.KV        `json:"params"`
	Data    types.RequestData `json:"data"`
}

const (
	stateNone    = "none"
	statePending = "pending"
	stateDone    = "done"
)

type resultView struct {
	State      string     `json:"state"`
	Status     int        `json:"status,omitempty"`
	StatusText string     `json:"statusText,omitempty"`
	Headers    []types.KV `json:"headers,omitempty"`
	Body       string     `json:"body,omitempty"`
	DurationMs int64      `json:"durationMs,omitempty"`
	Size       int        `json:"size,omitempty"`
	Error      string     `json:"error,omitempty"`
}

func toCollectionView(c *collection.Collection) collectionView {
	v := collectionView{
		ID:           c.ID,
		Name:         c.Name,
		Auth:         make(map[types.AuthScheme]types.AuthCredential, len(c.Auth)),
		SelectedAuth: c.SelectedAuth,
		Requests:     make([]requestSummary, 0, len(c.Requests)),
	}
	for k, cred := range c.Auth {
		v.Auth[k] = cred
	}
	for _, r := range c.Requests {
		v.Requests = append(v.Requests, requestSummary{
			ID:     r.ID,
			Title:  r.Title(),
			Method: r.Data.Method.String(),
			URL:    r.Data.URL,
		})
	}
	return v
}

func toRequestView(r *record.Record, pending bool) requestView {
	return requestView{
		ID:      r.ID,
		Title:   r.Title(),
		Changed: r.ChangedSinceSave(),
		Pending: pending,
		Params:  r.Params(),
		Data:    r.Data,
	}
}

func toResultView(res dispatch.Result) resultView {
	v := resultView{State: stateDone}
	if resp := res.Response; resp != nil {
		v.Status = resp.Status
		v.StatusText = resp.StatusText
		v.Headers = resp.Headers
		v.DurationMs = resp.Duration.Milliseconds()
		v.Size = len(resp.Body)
	}
	if res.Err != nil {
		v.Error = res.Err.Error()
		return v
	}
	v.Body = res.Text
	return v
}

// requestEdit is the body of PATCH /api/requests/{id}. Absent fields are left
// alone. When both url and params are given, params are applied last and win.
type requestEdit struct {
	Name    *string     `json:"name"`
	Method  *string     `json:"method"`
	URL     *string     `json:"url"`
	Params  *[]types.KV `json:"params"`
	Headers *[]types.KV `json:"headers"`
	Auth    *authEdit   `json:"auth"`
	Body    *bodyEdit   `json:"body"`
}

type authEdit struct {
	Selected   *types.AuthScheme     `json:"selected"`
	Credential *types.AuthCredential `json:"credential"`
}

func (a authEdit) validate() error {
	if a.Credential != nil {
		if _, err := types.ParseAuthScheme(string(a.Credential.Scheme)); err != nil {
			return err
		}
	}
	if a.Selected != nil {
		if _, err := types.ParseAuthScheme(string(*a.Selected)); err != nil {
			return err
		}
	}
	return nil
}

type bodyEdit struct {
	Selected *types.BodyKind `json:"selected"`
	Raw      *string         `json:"raw"`
	Binary   []byte          `json:"binary"`
}

func (e requestEdit) mutations() ([]record.Mutation, error) {
	var muts []record.Mutation
	if e.Name != nil {
		muts = append(muts, record.SetName(*e.Name))
	}
	if e.Method != nil {
		m, err := types.ParseMethod(*e.Method)
		if err != nil {
			return nil, err
		}
		muts = append(muts, record.SetMethod(m))
	}
	if e.URL != nil {
		muts = append(muts, record.SetURL(*e.URL))
	}
	if e.Params != nil {
		muts = append(muts, record.SetParams(*e.Params))
	}
	if e.Auth != nil {
		if err := e.Auth.validate(); err != nil {
			return nil, err
		}
		if e.Auth.Credential != nil {
			muts = append(muts, record.SetCredential(*e.Auth.Credential))
		}
		if e.Auth.Selected != nil {
			muts = append(muts, record.SelectAuth(*e.Auth.Selected))
		}
	}
	if e.Headers != nil {
		muts = append(muts, record.SetHeaders(*e.Headers))
	}
	if e.Body != nil {
		if e.Body.Raw != nil {
			muts = append(muts, record.SetBody(types.RawBody(*e.Body.Raw)))
		}
		if e.Body.Binary != nil {
			muts = append(muts, record.SetBody(types.BinaryBody(e.Body.Binary)))
		}
		if e.Body.Selected != nil {
			k, err := types.ParseBodyKind(string(*e.Body.Selected))
			if err != nil {
				return nil, err
			}
			muts = append(muts, record.SelectBody(k))
		}
	}
	return muts, nil
}

type collectionEdit struct {
	Name *string   `json:"name"`
	Auth *authEdit `json:"auth"`
}
