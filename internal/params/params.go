// Package params keeps a structured query parameter list and a URL's query
// string equivalent. Edits flow one way per change: parameter edits rewrite the
// URL with ParamsToURL, URL edits rewrite the list with URLToParams.
package params

import (
	"net/url"
	"strings"

	"packets/internal/types"
)

const upperhex = "0123456789ABCDEF"

// Encode percent-encodes every byte that is not an ASCII letter or digit.
func Encode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAlnum(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}

func isAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// BaseURL returns everything before the first '?'.
func BaseURL(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

func ParamsToURL(ps []types.KV, rawURL string) string {
	base := BaseURL(rawURL)
	if len(ps) == 0 {
		return base
	}
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		key := Encode(p.Key)
		value := Encode(p.Value)
		if value == "" {
			parts = append(parts, key)
			continue
		}
		parts = append(parts, key+"="+value)
	}
	return base + "?" + strings.Join(parts, "&")
}

// URLToParams returns the decoded query pairs in order. A URL that does not
// parse as an absolute URL yields an empty list.
func URLToParams(rawURL string) []types.KV {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Opaque != "" {
		return []types.KV{}
	}
	out := []types.KV{}
	for _, piece := range strings.Split(u.RawQuery, "&") {
		if piece == "" {
			continue
		}
		key, value, _ := strings.Cut(piece, "=")
		out = append(out, types.KV{Key: decode(key), Value: decode(value)})
	}
	return out
}

// decode is form decoding that keeps malformed escapes verbatim instead of failing.
func decode(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	s = strings.ReplaceAll(s, "+", " ")
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// Prune drops pairs whose key and value are both empty.
func Prune(ps []types.KV) []types.KV {
	out := make([]types.KV, 0, len(ps))
	for _, p := range ps {
		if p.Key == "" && p.Value == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
