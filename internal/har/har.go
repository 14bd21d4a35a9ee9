package har

import (
	"encoding/base64"
	"net/http"
	"time"
	"unicode/utf8"

	"packets/internal/params"
	"packets/internal/types"
)

const (
	creatorName = "packets"
	httpVersion = "HTTP/1.1"
)

type Document struct {
	Log Log `json:"log"`
}

type Log struct {
	Version string  `json:"version"`
	Creator Creator `json:"creator"`
	Entries []Entry `json:"entries"`
}

type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Entry struct {
	StartedDateTime time.Time `json:"startedDateTime"`
	Time            int64     `json:"time"` // ms
	Request         Req       `json:"request"`
	Response        Resp      `json:"response"`
	Timings         Timings   `json:"timings"`
	Comment         string    `json:"comment,omitempty"`
}

type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type PostData struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
	Encoding string `json:"encoding,omitempty"`
}

type Content struct {
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
	Encoding string `json:"encoding,omitempty"`
}

type Timings struct {
	Send    int64 `json:"send"`
	Wait    int64 `json:"wait"`
	Receive int64 `json:"receive"`
}

type Req struct {
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	HTTPVersion string    `json:"httpVersion"`
	Headers     []Header  `json:"headers"`
	QueryString []Header  `json:"queryString"`
	PostData    *PostData `json:"postData,omitempty"`
	HeadersSize int       `json:"headersSize"`
	BodySize    int       `json:"bodySize"`
}

type Resp struct {
	Status      int      `json:"status"`
	StatusText  string   `json:"statusText"`
	HTTPVersion string   `json:"httpVersion"`
	Headers     []Header `json:"headers"`
	Content     Content  `json:"content"`
	RedirectURL string   `json:"redirectURL"`
	HeadersSize int      `json:"headersSize"`
	BodySize    int      `json:"bodySize"`
}

// FromEntries converts history entries into a HAR 1.2 document. Bodies that
// are valid UTF-8 are kept as text, anything else is base64 encoded. Failed
// exchanges get status 0 and carry the error as the entry comment.
func FromEntries(in []*types.Entry, version string) Document {
	out := Document{
		Log: Log{
			Version: "1.2",
			Creator: Creator{Name: creatorName, Version: version},
			Entries: make([]Entry, 0, len(in)),
		},
	}
	for _, e := range in {
		var post *PostData
		if len(e.ReqBody) > 0 {
			text, enc := bodyText(e.ReqBody)
			post = &PostData{MimeType: header(e.ReqHeaders, "Content-Type"), Text: text, Encoding: enc}
		}
		respText, respEnc := bodyText(e.RespBody)
		ms := e.Duration.Milliseconds()
		out.Log.Entries = append(out.Log.Entries, Entry{
			StartedDateTime: e.StartedAt,
			Time:            ms,
			Request: Req{
				Method:      e.Method,
				URL:         e.URL,
				HTTPVersion: httpVersion,
				Headers:     toH(e.ReqHeaders),
				QueryString: toH(params.URLToParams(e.URL)),
				PostData:    post,
				HeadersSize: -1,
				BodySize:    len(e.ReqBody),
			},
			Response: Resp{
				Status:      e.Status,
				StatusText:  e.StatusText,
				HTTPVersion: httpVersion,
				Headers:     toH(e.RespHeaders),
				Content: Content{
					Size:     len(e.RespBody),
					MimeType: header(e.RespHeaders, "Content-Type"),
					Text:     respText,
					Encoding: respEnc,
				},
				HeadersSize: -1,
				BodySize:    len(e.RespBody),
			},
			Timings: Timings{Send: 0, Wait: ms, Receive: 0},
			Comment: comment(e),
		})
	}
	return out
}

func bodyText(b []byte) (string, string) {
	if utf8.Valid(b) {
		return string(b), ""
	}
	return base64.StdEncoding.EncodeToString(b), "base64"
}

func comment(e *types.Entry) string {
	if e.Error != "" {
		return e.Name + ": " + e.Error
	}
	return e.Name
}

func header(in []types.KV, name string) string {
	for _, kv := range in {
		if http.CanonicalHeaderKey(kv.Key) == http.CanonicalHeaderKey(name) {
			return kv.Value
		}
	}
	return ""
}

func toH(in []types.KV) []Header {
	out := make([]Header, 0, len(in))
	for _, kv := range in {
		out = append(out, Header{Name: kv.Key, Value: kv.Value})
	}
	return out
}
