package auth

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packets/internal/types"
)

func countAuthorization(headers []types.KV) int {
	n := 0
	for _, h := range headers {
		if types.IsAuthorization(h.Key) {
			n++
		}
	}
	return n
}

func authorization(headers []types.KV) (string, bool) {
	for _, h := range headers {
		if types.IsAuthorization(h.Key) {
			return h.Value, true
		}
	}
	return "", false
}

func TestDeriveHeader(t *testing.T) {
	creds := map[types.AuthScheme]types.AuthCredential{
		types.AuthBasic:  types.BasicCredential("u", "p"),
		types.AuthBearer: types.BearerCredential("abc123"),
	}
	tests := []struct {
		scheme types.AuthScheme
		want   string
		ok     bool
	}{
		{types.AuthNone, "", false},
		{types.AuthInherit, "", false},
		{types.AuthBasic, "Basic dTpw", true},
		{types.AuthBearer, "Bearer abc123", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.scheme), func(t *testing.T) {
			got, ok := DeriveHeader(tt.scheme, creds)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveHeaderBasicUsesStandardAlphabet(t *testing.T) {
	// "~:~" is "fjp+" in the standard alphabet and "fjp-" in the URL-safe one.
	creds := map[types.AuthScheme]types.AuthCredential{
		types.AuthBasic: types.BasicCredential("~", "~"),
	}
	got, ok := DeriveHeader(types.AuthBasic, creds)
	require.True(t, ok)
	assert.Equal(t, "Basic fjp+", got)
}

func TestDeriveHeaderMissingCredential(t *testing.T) {
	if strict {
		t.Skip("debug builds panic on consistency faults")
	}
	got, ok := DeriveHeader(types.AuthBearer, nil)
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestApplyToHeaders(t *testing.T) {
	headers := []types.KV{
		{Key: "Accept", Value: "*/*"},
		{Key: "authorization", Value: "old"},
		{Key: "X-Trace", Value: "1"},
		{Key: "Authorization", Value: "older"},
	}

	out := ApplyToHeaders(headers, "Bearer new", true)
	assert.Equal(t, []types.KV{
		{Key: "Accept", Value: "*/*"},
		{Key: "X-Trace", Value: "1"},
		{Key: "Authorization", Value: "Bearer new"},
	}, out)

	out = ApplyToHeaders(out, "", false)
	assert.Equal(t, 0, countAuthorization(out))
	assert.Len(t, out, 2)
}

func TestSelectProvisionsAndPreservesCredentials(t *testing.T) {
	d := types.NewRequestData("")

	Select(&d, types.AuthBasic)
	require.Contains(t, d.Auth, types.AuthBasic)
	assert.Equal(t, types.DefaultCredential(types.AuthBasic), d.Auth[types.AuthBasic])

	SetCredential(&d, types.BasicCredential("alice", "secret"))
	Select(&d, types.AuthBearer)
	SetCredential(&d, types.BearerCredential("tok"))
	Select(&d, types.AuthNone)
	Select(&d, types.AuthBasic)

	assert.Equal(t, "alice", d.Auth[types.AuthBasic].Username)
	assert.Equal(t, "tok", d.Auth[types.AuthBearer].Token)
	assert.NotContains(t, d.Auth, types.AuthNone)
}

func TestScenarioBearerThenBasic(t *testing.T) {
	d := types.NewRequestData("")
	d.Headers = []types.KV{{Key: "Accept", Value: "application/json"}}

	Select(&d, types.AuthBearer)
	assert.Equal(t, 1, countAuthorization(d.Headers))
	SetCredential(&d, types.BearerCredential("abc123"))
	assert.Equal(t, 1, countAuthorization(d.Headers))

	got, ok := authorization(d.Headers)
	require.True(t, ok)
	assert.Equal(t, "Bearer abc123", got)

	Select(&d, types.AuthBasic)
	assert.Equal(t, 1, countAuthorization(d.Headers))
	SetCredential(&d, types.BasicCredential("u", "p"))
	assert.Equal(t, 1, countAuthorization(d.Headers))

	got, ok = authorization(d.Headers)
	require.True(t, ok)
	assert.Equal(t, "Basic dTpw", got)
	assert.Equal(t, "Accept", d.Headers[0].Key)
}

func TestAuthorizationStaysSingleton(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	d := types.NewRequestData("")
	d.Headers = []types.KV{{Key: "Authorization", Value: "manual"}}

	for i := 0; i < 200; i++ {
		scheme := types.AuthSchemes[rng.Intn(len(types.AuthSchemes))]
		switch rng.Intn(3) {
		case 0:
			Select(&d, scheme)
		case 1:
			SetCredential(&d, types.BearerCredential(string(rune('a'+rng.Intn(26)))))
		default:
			Sync(&d)
		}
		require.LessOrEqual(t, countAuthorization(d.Headers), 1, "step %d", i)
	}
}

func TestSetCredentialForOtherSchemeKeepsHeaders(t *testing.T) {
	d := types.NewRequestData("")
	d.Headers = []types.KV{{Key: "Authorization", Value: "Digest abc"}}

	SetCredential(&d, types.BearerCredential("tok"))
	assert.Equal(t, []types.KV{{Key: "Authorization", Value: "Digest abc"}}, d.Headers)
	assert.Equal(t, "tok", d.Auth[types.AuthBearer].Token)

	Select(&d, types.AuthBasic)
	SetCredential(&d, types.BearerCredential("other"))
	got, ok := authorization(d.Headers)
	require.True(t, ok)
	assert.Equal(t, "Basic Og==", got)
}

func TestProvision(t *testing.T) {
	d := types.RequestData{SelectedAuth: types.AuthBearer}
	assert.NotPanics(t, func() { Provision(&d) })
	require.Contains(t, d.Auth, types.AuthBearer)
	got, ok := authorization(d.Headers)
	require.True(t, ok)
	assert.Equal(t, "Bearer ", got)

	none := types.RequestData{Headers: []types.KV{{Key: "Authorization", Value: "mine"}}}
	Provision(&none)
	assert.Equal(t, []types.KV{{Key: "Authorization", Value: "mine"}}, none.Headers)
	assert.Empty(t, none.Auth)
}

func TestResolveInherit(t *testing.T) {
	d := types.NewRequestData("")
	Select(&d, types.AuthInherit)

	got, ok := Resolve(d, func() (string, bool) { return "Bearer from-collection", true })
	assert.True(t, ok)
	assert.Equal(t, "Bearer from-collection", got)

	_, ok = Resolve(d, nil)
	assert.False(t, ok)

	Select(&d, types.AuthBearer)
	SetCredential(&d, types.BearerCredential("own"))
	got, ok = Resolve(d, func() (string, bool) { return "Bearer from-collection", true })
	assert.True(t, ok)
	assert.Equal(t, "Bearer own", got)
}
