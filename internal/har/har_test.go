package har

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packets/internal/types"
)

func TestFromEntries(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	doc := FromEntries([]*types.Entry{
		{
			Name:        "create user",
			StartedAt:   started,
			Duration:    1500 * time.Millisecond,
			Method:      "POST",
			URL:         "https://api.example.com/users?b=2&a=1",
			ReqHeaders:  []types.KV{{Key: "content-type", Value: "application/json"}},
			ReqBody:     []byte(`{"n":1}`),
			Status:      201,
			StatusText:  "201 Created",
			RespHeaders: []types.KV{{Key: "Content-Type", Value: "text/plain"}},
			RespBody:    []byte("ok"),
		},
		{
			Name:     "binary",
			Method:   "GET",
			URL:      "https://h/",
			RespBody: []byte{0xff, 0x00},
			Error:    "Response is invalid UTF-8",
		},
	}, "test")

	assert.Equal(t, "1.2", doc.Log.Version)
	assert.Equal(t, Creator{Name: "packets", Version: "test"}, doc.Log.Creator)
	require.Len(t, doc.Log.Entries, 2)

	first := doc.Log.Entries[0]
	assert.Equal(t, int64(1500), first.Time)
	assert.Equal(t, []Header{{Name: "b", Value: "2"}, {Name: "a", Value: "1"}}, first.Request.QueryString)
	require.NotNil(t, first.Request.PostData)
	assert.Equal(t, "application/json", first.Request.PostData.MimeType)
	assert.Equal(t, `{"n":1}`, first.Request.PostData.Text)
	assert.Empty(t, first.Request.PostData.Encoding)
	assert.Equal(t, "ok", first.Response.Content.Text)
	assert.Equal(t, "text/plain", first.Response.Content.MimeType)
	assert.Equal(t, "201 Created", first.Response.StatusText)
	assert.Equal(t, "create user", first.Comment)

	second := doc.Log.Entries[1]
	assert.Nil(t, second.Request.PostData)
	assert.Equal(t, "base64", second.Response.Content.Encoding)
	assert.Equal(t, "/wA=", second.Response.Content.Text)
	assert.Equal(t, "binary: Response is invalid UTF-8", second.Comment)
}
