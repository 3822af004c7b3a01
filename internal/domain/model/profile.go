package model

import "strings"

// Selector locates at most one element. CSS picks candidates; a non-empty
// Text keeps only candidates whose text contains it, case-insensitively.
type Selector struct {
	CSS  string `yaml:"css"`
	Text string `yaml:"text,omitempty"`
}

// String renders the selector for logs.
func (s Selector) String() string {
	if s.Text == "" {
		return s.CSS
	}
	return s.CSS + `:has-text("` + s.Text + `")`
}

// SelectorChain is an ordered list of candidates; the first that matches wins.
type SelectorChain []Selector

// Selectors holds every selector chain the engine uses on a console.
type Selectors struct {
	Username       SelectorChain `yaml:"username"`
	Password       SelectorChain `yaml:"password"`
	Submit         SelectorChain `yaml:"submit"`
	LoginError     SelectorChain `yaml:"login_error"`
	StartControl   SelectorChain `yaml:"start_control"`
	StopControl    SelectorChain `yaml:"stop_control"`
	RestartControl SelectorChain `yaml:"restart_control"`
	Balance        SelectorChain `yaml:"balance"`
	Expiration     SelectorChain `yaml:"expiration"`
	RenewControl   SelectorChain `yaml:"renew_control"`
	ConfirmControl SelectorChain `yaml:"confirm_control"`
	DismissBanner  SelectorChain `yaml:"dismiss_banner"`
	TerminalInput  SelectorChain `yaml:"terminal_input"`
	Logout         SelectorChain `yaml:"logout"`
}

// InventoryPattern describes the paginated inventory responses observed
// during the landing page load.
type InventoryPattern struct {
	PathFragment string `yaml:"path_fragment"`
	QueryMarker  string `yaml:"query_marker"`
	ObjectType   string `yaml:"object_type"`
}

// Matches reports whether a response URL belongs to the inventory endpoint.
func (p InventoryPattern) Matches(url string) bool {
	return p.PathFragment != "" && strings.Contains(url, p.PathFragment) &&
		(p.QueryMarker == "" || strings.Contains(url, p.QueryMarker))
}

// SitePaths are console paths relative to the base URL. ResourceDetail may
// contain "{id}", which is replaced by the resource identifier.
type SitePaths struct {
	Login          string `yaml:"login"`
	Landing        string `yaml:"landing"`
	Console        string `yaml:"console"`
	ResourceDetail string `yaml:"resource_detail"`
	SettingsSuffix string `yaml:"settings_suffix"`
}

// SiteProfile describes the shape of one third-party web console.
type SiteProfile struct {
	Name        string           `yaml:"name"`
	BaseURL     string           `yaml:"base_url"`
	LoginMarker string           `yaml:"login_marker"`
	Paths       SitePaths        `yaml:"paths"`
	Inventory   InventoryPattern `yaml:"inventory"`
	Selectors   Selectors        `yaml:"selectors"`
	TokenRules  []TokenRule      `yaml:"token_rules"`
}

// URL joins a console path onto the base URL.
func (p SiteProfile) URL(path string) string {
	if path == "" {
		return strings.TrimRight(p.BaseURL, "/")
	}
	return strings.TrimRight(p.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// ResourceURL returns the detail address for a resource identifier.
func (p SiteProfile) ResourceURL(id string) string {
	return p.URL(strings.ReplaceAll(p.Paths.ResourceDetail, "{id}", id))
}

// IsLoginSurface reports whether an address still points at the login page.
func (p SiteProfile) IsLoginSurface(address string) bool {
	marker := p.LoginMarker
	if marker == "" {
		marker = "login"
	}
	return strings.Contains(strings.ToLower(address), strings.ToLower(marker))
}

// Host returns the host portion of the base URL, used as the cookie domain.
func (p SiteProfile) Host() string {
	host := p.BaseURL
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/:"); i >= 0 {
		host = host[:i]
	}
	return host
}
