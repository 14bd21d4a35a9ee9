package contenthash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type content struct {
	Names []string          `json:"names"`
	Tags  map[string]string `json:"tags"`
}

func TestOfIsDeterministic(t *testing.T) {
	a := content{Names: []string{"a", "b"}, Tags: map[string]string{"x": "1", "y": "2", "z": "3"}}
	b := content{Names: []string{"a", "b"}, Tags: map[string]string{"z": "3", "y": "2", "x": "1"}}

	ha, err := Of(a)
	require.NoError(t, err)
	hb, err := Of(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)
}

func TestOfIsOrderSensitiveForSlices(t *testing.T) {
	ha, err := Of(content{Names: []string{"a", "b"}})
	require.NoError(t, err)
	hb, err := Of(content{Names: []string{"b", "a"}})
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestOfRejectsUnencodable(t *testing.T) {
	_, err := Of(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestBytes(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Bytes(nil))
}
