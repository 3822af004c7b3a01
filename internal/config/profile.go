package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
)

// DefaultProfile names the embedded profile used when none is configured.
const DefaultProfile = "bytte"

//go:embed profiles/*.yaml
var profileFS embed.FS

// LoadProfile resolves name to a site profile. name is either an embedded
// profile ("bytte", "dataonline") or a path to a YAML file. A file is
// overlaid on the default profile, so it only needs the keys it changes.
// A non-empty baseURL replaces the profile's base URL.
func LoadProfile(name, baseURL string) (model.SiteProfile, error) {
	if name == "" {
		name = DefaultProfile
	}

	var profile model.SiteProfile
	if data, err := profileFS.ReadFile("profiles/" + name + ".yaml"); err == nil {
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return model.SiteProfile{}, fmt.Errorf("parse embedded profile %s: %w", name, err)
		}
	} else {
		base, err := profileFS.ReadFile("profiles/" + DefaultProfile + ".yaml")
		if err != nil {
			return model.SiteProfile{}, fmt.Errorf("read default profile: %w", err)
		}
		if err := yaml.Unmarshal(base, &profile); err != nil {
			return model.SiteProfile{}, fmt.Errorf("parse default profile: %w", err)
		}

		data, err := os.ReadFile(name)
		if err != nil {
			return model.SiteProfile{}, fmt.Errorf("read profile %s: %w", name, err)
		}
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return model.SiteProfile{}, fmt.Errorf("parse profile %s: %w", name, err)
		}
	}

	if baseURL != "" {
		profile.BaseURL = baseURL
	}
	if err := validateProfile(profile); err != nil {
		return model.SiteProfile{}, fmt.Errorf("profile %s: %w", name, err)
	}
	return profile, nil
}

func validateProfile(p model.SiteProfile) error {
	var errs []error
	if !strings.HasPrefix(p.BaseURL, "http://") && !strings.HasPrefix(p.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("base_url must be an http(s) URL, got %q", p.BaseURL))
	}
	if p.Paths.ResourceDetail != "" && !strings.Contains(p.Paths.ResourceDetail, "{id}") {
		errs = append(errs, errors.New("paths.resource_detail must contain {id}"))
	}
	for _, r := range p.TokenRules {
		if r.Prefix == "" {
			errs = append(errs, errors.New("token_rules entries need a prefix"))
			break
		}
	}
	return errors.Join(errs...)
}
