package workspace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packets/internal/collection"
	"packets/internal/dispatch"
	"packets/internal/record"
	"packets/internal/storage"
	"packets/internal/types"
)

func newWorkspace(t *testing.T) *Workspace {
	t.Helper()
	f, err := dispatch.NewHTTPFetcher(dispatch.Options{Timeout: 5 * time.Second})
	require.NoError(t, err)
	d := dispatch.New(f)
	t.Cleanup(d.Close)
	return New(d, nil)
}

func wait(t *testing.T, w *Workspace, id uuid.UUID) dispatch.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := w.Wait(ctx, id)
	require.NoError(t, err)
	return res
}

func TestSendInheritsCollectionAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte(r.Method + " " + r.URL.RawQuery + " " + r.Header.Get("Authorization")))
	}))
	defer srv.Close()

	w := newWorkspace(t)
	cid, err := w.CreateCollection("api")
	require.NoError(t, err)
	require.NoError(t, w.SelectCollectionAuth(cid, types.AuthBearer))
	require.NoError(t, w.SetCollectionCredential(cid, types.BearerCredential("shared")))

	id, err := w.CreateRequest(cid, "")
	require.NoError(t, err)
	require.NoError(t, w.UpdateField(id,
		record.SetMethod(types.MethodPatch),
		record.SetURL(srv.URL+"/x"),
		record.SetParams([]types.KV{{Key: "q", Value: "a b"}}),
		record.SelectAuth(types.AuthInherit),
	))

	require.NoError(t, w.Send(id))
	res := wait(t, w, id)
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, "PATCH q=a%20b Bearer shared", res.Text)

	polled, ok := w.PollResult(id)
	require.True(t, ok)
	assert.Equal(t, res.Text, polled.Text)
	assert.False(t, w.Pending(id))
}

func TestSendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	w := newWorkspace(t)
	cid, _ := w.CreateCollection("api")
	id, _ := w.CreateRequest(cid, "down")
	require.NoError(t, w.UpdateField(id, record.SetURL(addr)))
	require.NoError(t, w.Send(id))

	res := wait(t, w, id)
	assert.Error(t, res.Err)
	assert.Nil(t, res.Response)
}

func TestSaveFlow(t *testing.T) {
	w := newWorkspace(t)
	cid, _ := w.CreateCollection("api")
	id, _ := w.CreateRequest(cid, "ping")

	title, err := w.Title(id)
	require.NoError(t, err)
	assert.Equal(t, "*ping", title)

	saved, err := w.DoSave(id)
	require.NoError(t, err)
	assert.False(t, saved, "no save without a request for one")

	require.NoError(t, w.MarkWantSave(id))
	saved, err = w.DoSave(id)
	require.NoError(t, err)
	assert.True(t, saved)
	changed, _ := w.ChangedSinceSave(id)
	assert.False(t, changed)
	title, _ = w.Title(id)
	assert.Equal(t, "ping", title)

	require.NoError(t, w.UpdateField(id, record.SetURL("https://h/")))
	changed, _ = w.ChangedSinceSave(id)
	assert.True(t, changed)
	require.NoError(t, w.UpdateField(id, record.SetURL("")))
	changed, _ = w.ChangedSinceSave(id)
	assert.False(t, changed, "reverting the edit restores the saved content")

	assert.Equal(t, 1, w.SaveAll())
}

func TestUnknownIDs(t *testing.T) {
	w := newWorkspace(t)
	missing := uuid.New()

	assert.ErrorIs(t, w.Send(missing), collection.ErrRequestNotFound)
	assert.ErrorIs(t, w.RemoveRequest(missing), collection.ErrRequestNotFound)
	assert.ErrorIs(t, w.UpdateField(missing, record.SetName("x")), collection.ErrRequestNotFound)
	_, err := w.CreateRequest(missing, "x")
	assert.ErrorIs(t, err, collection.ErrCollectionNotFound)
	_, err = w.Title(missing)
	assert.ErrorIs(t, err, collection.ErrRequestNotFound)
	_, ok := w.PollResult(missing)
	assert.False(t, ok)
}

func TestRemoveForgetsPending(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	w := newWorkspace(t)
	cid, _ := w.CreateCollection("api")
	id, _ := w.CreateRequest(cid, "slow")
	require.NoError(t, w.UpdateField(id, record.SetURL(srv.URL)))
	require.NoError(t, w.Send(id))
	assert.True(t, w.Pending(id))

	removed, err := w.RemoveCollection(cid)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, removed)
	assert.False(t, w.Pending(id))
}

func TestSnapshotRestore(t *testing.T) {
	w := newWorkspace(t)
	cid, _ := w.CreateCollection("api")
	require.NoError(t, w.SelectCollectionAuth(cid, types.AuthBasic))
	require.NoError(t, w.SetCollectionCredential(cid, types.BasicCredential("u", "p")))
	id, _ := w.CreateRequest(cid, "list")
	require.NoError(t, w.UpdateField(id,
		record.SetURL("https://h/items?page=2&sort=name"),
		record.SetHeaders([]types.KV{{Key: "Accept", Value: "*/*"}}),
	))
	dup, err := w.DuplicateRequest(id)
	require.NoError(t, err)
	require.NoError(t, w.MoveRequest(dup, 0))

	st := w.Snapshot()
	require.Len(t, st.Collections, 1)
	assert.Equal(t, storage.StateVersion, st.Version)
	assert.Equal(t, dup, st.Collections[0].Requests[0].ID)

	other := newWorkspace(t)
	other.Restore(st)
	cols := other.Collections()
	require.Len(t, cols, 1)
	assert.Equal(t, cid, cols[0].ID)
	h, ok := cols[0].DefaultHeader()
	require.True(t, ok)
	assert.Equal(t, "Basic dTpw", h)

	r, err := other.Request(id)
	require.NoError(t, err)
	orig, _ := w.Request(id)
	assert.Equal(t, orig.Data, r.Data)
	assert.Equal(t, []types.KV{{Key: "page", Value: "2"}, {Key: "sort", Value: "name"}}, r.Params())
	assert.True(t, r.ChangedSinceSave())

	assert.Equal(t, st, other.Snapshot())
}

func TestRestoreDropsCollectionInherit(t *testing.T) {
	w := newWorkspace(t)
	w.Restore(storage.AppState{Collections: []storage.CollectionState{{
		Name:         "legacy",
		SelectedAuth: types.AuthInherit,
		Requests:     []storage.RequestState{{Data: types.RequestData{Name: "r", URL: "https://h/?a=1"}}},
	}}})

	cols := w.Collections()
	require.Len(t, cols, 1)
	assert.Equal(t, types.AuthNone, cols[0].SelectedAuth)
	assert.NotEqual(t, uuid.Nil, cols[0].ID)
	require.Len(t, cols[0].Requests, 1)
	r := cols[0].Requests[0]
	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.Equal(t, types.MethodGet, r.Data.Method)
	assert.Equal(t, []types.KV{{Key: "a", Value: "1"}}, r.Params())
}

func TestSearch(t *testing.T) {
	w := newWorkspace(t)
	cid, _ := w.CreateCollection("api")
	_, _ = w.CreateRequest(cid, "Get Invoice")
	_, _ = w.CreateRequest(cid, "List Users")

	got := w.Search("invoice")
	require.Len(t, got, 1)
	assert.Equal(t, "Get Invoice", got[0].Name)
}

func TestRestoreProvisionsRequestCredential(t *testing.T) {
	w := newWorkspace(t)
	w.Restore(storage.AppState{Collections: []storage.CollectionState{{
		Name: "api",
		Requests: []storage.RequestState{{
			ID:   uuid.New(),
			Data: types.RequestData{Name: "token", URL: "https://h/", SelectedAuth: types.AuthBearer},
		}},
	}}})

	r := w.Collections()[0].Requests[0]
	require.Contains(t, r.Data.Auth, types.AuthBearer)
	require.NoError(t, w.UpdateField(r.ID, record.SetCredential(types.BearerCredential("tok"))))
	assert.Equal(t, []types.KV{{Key: "Authorization", Value: "Bearer tok"}}, r.Data.Headers)
}
