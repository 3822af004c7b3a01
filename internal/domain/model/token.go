package model

// SameSite mirrors the cookie cross-site policy attribute.
type SameSite string

const (
	SameSiteLax    SameSite = "Lax"
	SameSiteStrict SameSite = "Strict"
	SameSiteNone   SameSite = "None"
)

// TokenClass tags a credential token with its sensitivity.
type TokenClass string

const (
	TokenClassSession    TokenClass = "session"
	TokenClassAppSession TokenClass = "app_session"
	TokenClassCSRF       TokenClass = "csrf"
	TokenClassAntiBot    TokenClass = "anti_bot"
	TokenClassPreference TokenClass = "preference"
)

// Rank orders classes for rotation output; lower ranks are emitted first.
// Unknown classes sort with preferences.
func (c TokenClass) Rank() int {
	switch c {
	case TokenClassSession:
		return 0
	case TokenClassAppSession:
		return 1
	case TokenClassCSRF:
		return 2
	case TokenClassAntiBot:
		return 3
	default:
		return 10
	}
}

// Token is one named cookie of the session credential material.
type Token struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	HTTPOnly bool
	Secure   bool
	SameSite SameSite
}

// TokenRule classifies tokens whose name starts with Prefix and carries the
// transport attributes used when the token is injected. Rules are evaluated
// in order and the first match wins.
type TokenRule struct {
	Prefix   string     `yaml:"prefix"`
	Class    TokenClass `yaml:"class"`
	HTTPOnly bool       `yaml:"http_only"`
	Secure   bool       `yaml:"secure"`
	SameSite SameSite   `yaml:"same_site"`
}
