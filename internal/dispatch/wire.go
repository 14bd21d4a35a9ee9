package dispatch

import (
	"packets/internal/auth"
	"packets/internal/types"
)

// Wire is the immutable snapshot handed to the background exchange.
type Wire struct {
	Name    string
	Method  string
	URL     string
	Headers []types.KV
	Body    []byte
}

// Build snapshots d. A request selecting Inherit picks up the collection's
// Authorization header through inherited, when there is one.
func Build(d types.RequestData, inherited func() (string, bool)) Wire {
	headers := append([]types.KV{}, d.Headers...)
	if d.SelectedAuth == types.AuthInherit {
		if value, ok := auth.Resolve(d, inherited); ok {
			headers = auth.ApplyToHeaders(headers, value, true)
		}
	}
	return Wire{
		Name:    d.Name,
		Method:  d.Method.String(),
		URL:     d.URL,
		Headers: headers,
		Body:    d.SelectedBodyBytes(),
	}
}
