package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/goccy/go-json"
)

// Of returns the hex SHA-256 of v's JSON encoding. Map keys are sorted by the
// encoder and slices keep their order, so equal content gives equal hashes.
// Pass a value that holds only the fields that count as content.
func Of(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("contenthash: marshal: %w", err)
	}
	return Bytes(data), nil
}

func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
