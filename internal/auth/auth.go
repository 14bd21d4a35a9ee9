// Package auth derives the Authorization header from the selected scheme and
// keeps a request's header list consistent with it.
//
// Credentials are stored per scheme so switching back and forth keeps what was
// typed. Select provisions a credential for the chosen scheme and Provision
// does the same for loaded data, so a selected scheme always has one.
package auth

import (
	"encoding/base64"
	"fmt"
	"log/slog"

	"packets/internal/types"
)

// DeriveHeader returns the Authorization value for scheme, or false when the
// scheme contributes no header at this level.
func DeriveHeader(scheme types.AuthScheme, creds map[types.AuthScheme]types.AuthCredential) (string, bool) {
	if !scheme.NeedsCredential() {
		return "", false
	}
	cred, ok := creds[scheme]
	if !ok {
		fault(fmt.Sprintf("auth: no credential stored for scheme %q", scheme))
		return "", false
	}
	switch scheme {
	case types.AuthBasic:
		raw := cred.Username + ":" + cred.Password
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw)), true
	case types.AuthBearer:
		return "Bearer " + cred.Token, true
	}
	return "", false
}

func fault(msg string) {
	if strict {
		panic(msg)
	}
	slog.Error(msg)
}

// ApplyToHeaders removes every Authorization entry and appends value when ok.
func ApplyToHeaders(headers []types.KV, value string, ok bool) []types.KV {
	out := make([]types.KV, 0, len(headers)+1)
	for _, h := range headers {
		if types.IsAuthorization(h.Key) {
			continue
		}
		out = append(out, h)
	}
	if ok {
		out = append(out, types.KV{Key: types.HeaderAuthorization, Value: value})
	}
	return out
}

// Sync rewrites the Authorization entry of d from its current selection.
func Sync(d *types.RequestData) {
	value, ok := DeriveHeader(d.SelectedAuth, d.Auth)
	d.Headers = ApplyToHeaders(d.Headers, value, ok)
}

func Select(d *types.RequestData, scheme types.AuthScheme) {
	if d.Auth == nil {
		d.Auth = map[types.AuthScheme]types.AuthCredential{}
	}
	if _, ok := d.Auth[scheme]; !ok && scheme.NeedsCredential() {
		d.Auth[scheme] = types.DefaultCredential(scheme)
	}
	d.SelectedAuth = scheme
	Sync(d)
}

// SetCredential stores cred under its own scheme without changing the
// selection. Headers are resynced only when cred belongs to the selected
// scheme; a user-entered Authorization header survives otherwise.
func SetCredential(d *types.RequestData, cred types.AuthCredential) {
	if !cred.Scheme.NeedsCredential() {
		return
	}
	if d.Auth == nil {
		d.Auth = map[types.AuthScheme]types.AuthCredential{}
	}
	d.Auth[cred.Scheme] = cred
	if cred.Scheme == d.SelectedAuth {
		Sync(d)
	}
}

// Provision stores a default credential for the selected scheme when it needs
// one and has none, then derives its header. Loaded data may lack the map.
func Provision(d *types.RequestData) {
	if !d.SelectedAuth.NeedsCredential() {
		return
	}
	if d.Auth == nil {
		d.Auth = map[types.AuthScheme]types.AuthCredential{}
	}
	if _, ok := d.Auth[d.SelectedAuth]; !ok {
		d.Auth[d.SelectedAuth] = types.DefaultCredential(d.SelectedAuth)
	}
	Sync(d)
}

// Resolve returns the header a request carries on the wire. Inherit defers to
// the collection default; anything else uses the request's own selection.
func Resolve(d types.RequestData, collectionDefault func() (string, bool)) (string, bool) {
	if d.SelectedAuth == types.AuthInherit {
		if collectionDefault == nil {
			return "", false
		}
		return collectionDefault()
	}
	return DeriveHeader(d.SelectedAuth, d.Auth)
}
