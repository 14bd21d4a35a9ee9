package types

import "time"

// Entry is one completed exchange kept in the history bucket.
type Entry struct {
	ID        string        `json:"id"`
	RequestID string        `json:"requestId"`
	Name      string        `json:"name"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`

	Method string `json:"method"`
	URL    string `json:"url"`

	ReqHeaders []KV   `json:"reqHeaders"`
	ReqBody    []byte `json:"reqBody"`

	Status      int    `json:"status"`
	StatusText  string `json:"statusText,omitempty"`
	RespHeaders []KV   `json:"respHeaders"`
	RespBody    []byte `json:"respBody"`

	Error string `json:"error,omitempty"`
}
