package application

import (
	"net/url"
	"strings"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
)

// defaultTokenRule applies to tokens no rule recognizes. They are still
// injected but never rotated.
var defaultTokenRule = model.TokenRule{Secure: true, SameSite: model.SameSiteLax}

// ClassifyToken returns the first rule whose prefix starts name.
func ClassifyToken(name string, rules []model.TokenRule) (model.TokenRule, bool) {
	for _, r := range rules {
		if r.Prefix != "" && strings.HasPrefix(name, r.Prefix) {
			return r, true
		}
	}
	return defaultTokenRule, false
}

// ParseCookieString splits a single-line "name=value; name=value" string
// into tokens scoped to domain. Values are URL-unescaped when possible.
// Entries without "=" are skipped.
func ParseCookieString(raw, domain string, rules []model.TokenRule) []model.Token {
	var tokens []model.Token
	for _, item := range strings.Split(raw, ";") {
		item = strings.TrimSpace(item)
		name, value, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if unescaped, err := url.PathUnescape(value); err == nil {
			value = unescaped
		}

		rule, _ := ClassifyToken(name, rules)
		tokens = append(tokens, model.Token{
			Name:     name,
			Value:    value,
			Domain:   domain,
			Path:     "/",
			HTTPOnly: rule.HTTPOnly,
			Secure:   rule.Secure,
			SameSite: rule.SameSite,
		})
	}
	return tokens
}

// DefaultTokenRules is the attribute and priority table for a Pterodactyl
// style console behind Cloudflare.
func DefaultTokenRules() []model.TokenRule {
	return []model.TokenRule{
		{Prefix: "remember_web", Class: model.TokenClassSession, HTTPOnly: true, Secure: true, SameSite: model.SameSiteLax},
		{Prefix: "pterodactyl_session", Class: model.TokenClassAppSession, HTTPOnly: true, Secure: true, SameSite: model.SameSiteLax},
		{Prefix: "XSRF-TOKEN", Class: model.TokenClassCSRF, Secure: true, SameSite: model.SameSiteLax},
		{Prefix: "cf_clearance", Class: model.TokenClassAntiBot, HTTPOnly: true, Secure: true, SameSite: model.SameSiteNone},
		{Prefix: "__cf_bm", Class: model.TokenClassAntiBot, HTTPOnly: true, Secure: true, SameSite: model.SameSiteNone},
		{Prefix: "_ga", Class: model.TokenClassPreference, SameSite: model.SameSiteLax},
		{Prefix: "cookie-dialog", Class: model.TokenClassPreference, SameSite: model.SameSiteLax},
		{Prefix: "filemode", Class: model.TokenClassPreference, SameSite: model.SameSiteLax},
	}
}
