package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyPayloadBytes(t *testing.T) {
	tests := []struct {
		name    string
		payload BodyPayload
		want    []byte
	}{
		{"none", BodyPayload{Kind: BodyNone}, []byte{}},
		{"zero value", BodyPayload{}, []byte{}},
		{"raw", RawBody("héllo"), []byte("héllo")},
		{"binary", BinaryBody([]byte{0xff, 0x00, 0x10}), []byte{0xff, 0x00, 0x10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.payload.Bytes())
		})
	}
}

func TestSelectedBodyBytesKeepsOtherKinds(t *testing.T) {
	d := NewRequestData("")
	d.Body[BodyRaw] = RawBody(`{"a":1}`)
	d.Body[BodyBinary] = BinaryBody([]byte{1, 2})

	assert.Empty(t, d.SelectedBodyBytes())

	d.SelectedBody = BodyRaw
	assert.Equal(t, []byte(`{"a":1}`), d.SelectedBodyBytes())

	d.SelectedBody = BodyBinary
	assert.Equal(t, []byte{1, 2}, d.SelectedBodyBytes())

	d.SelectedBody = BodyRaw
	assert.Equal(t, []byte(`{"a":1}`), d.SelectedBodyBytes())
}

func TestCloneIsDeep(t *testing.T) {
	d := NewRequestData("orig")
	d.Headers = append(d.Headers, KV{Key: "X-A", Value: "1"})
	d.Auth[AuthBearer] = BearerCredential("t")
	d.Body[BodyBinary] = BinaryBody([]byte{9})

	c := d.Clone()
	c.Headers[0].Value = "2"
	c.Auth[AuthBearer] = BearerCredential("other")
	c.Body[BodyBinary].Data[0] = 7

	assert.Equal(t, "1", d.Headers[0].Value)
	assert.Equal(t, "t", d.Auth[AuthBearer].Token)
	assert.Equal(t, byte(9), d.Body[BodyBinary].Data[0])
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("patch")
	require.NoError(t, err)
	assert.Equal(t, MethodPatch, m)

	_, err = ParseMethod("DELETE")
	assert.Error(t, err)

	assert.Equal(t, "GET", Method("").String())
}

func TestNormalizeFillsDefaults(t *testing.T) {
	var d RequestData
	d.Normalize()
	assert.Equal(t, MethodGet, d.Method)
	assert.Equal(t, AuthNone, d.SelectedAuth)
	assert.Equal(t, BodyNone, d.SelectedBody)
	assert.NotNil(t, d.Auth)
	assert.NotNil(t, d.Body)
	assert.NotNil(t, d.Headers)
}

func TestIsAuthorization(t *testing.T) {
	assert.True(t, IsAuthorization("Authorization"))
	assert.True(t, IsAuthorization("authorization"))
	assert.True(t, IsAuthorization(" AUTHORIZATION "))
	assert.False(t, IsAuthorization("X-Authorization"))
}
