package types

import "fmt"

type AuthScheme string

const (
	AuthNone    AuthScheme = "none"
	AuthInherit AuthScheme = "inherit"
	AuthBasic   AuthScheme = "basic"
	AuthBearer  AuthScheme = "bearer"
)

var AuthSchemes = []AuthScheme{AuthNone, AuthInherit, AuthBasic, AuthBearer}

func ParseAuthScheme(s string) (AuthScheme, error) {
	for _, known := range AuthSchemes {
		if AuthScheme(s) == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unsupported auth scheme %q", s)
}

// NeedsCredential reports whether the scheme derives its header from stored material.
func (s AuthScheme) NeedsCredential() bool {
	return s == AuthBasic || s == AuthBearer
}

func (s AuthScheme) Label() string {
	switch s {
	case AuthInherit:
		return "Inherit"
	case AuthBasic:
		return "Basic"
	case AuthBearer:
		return "Bearer Token"
	default:
		return "None"
	}
}

type AuthCredential struct {
	Scheme   AuthScheme `json:"scheme" yaml:"scheme"`
	Username string     `json:"username,omitempty" yaml:"username,omitempty"`
	Password string     `json:"password,omitempty" yaml:"password,omitempty"`
	Token    string     `json:"token,omitempty" yaml:"token,omitempty"`
}

func DefaultCredential(scheme AuthScheme) AuthCredential {
	return AuthCredential{Scheme: scheme}
}

func BasicCredential(username, password string) AuthCredential {
	return AuthCredential{Scheme: AuthBasic, Username: username, Password: password}
}

func BearerCredential(token string) AuthCredential {
	return AuthCredential{Scheme: AuthBearer, Token: token}
}
