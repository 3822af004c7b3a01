package application

import (
	"strings"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
)

// AccountDelimiter separates the fields of one batch line.
const AccountDelimiter = "----"

// ParseAccounts turns a newline-delimited batch into accounts, preserving
// input order. Each non-empty line must split into at least three fields
// (identity, secret, directive); shorter lines are dropped. Fields past the
// third are ignored. An empty result is not an error here; callers treat it
// as a configuration failure.
func ParseAccounts(raw string) []model.Account {
	var accounts []model.Account
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, AccountDelimiter)
		if len(parts) < 3 {
			continue
		}

		accounts = append(accounts, model.Account{
			Identity:  strings.TrimSpace(parts[0]),
			Secret:    model.NewSealedSecret(strings.TrimSpace(parts[1])),
			Directive: strings.TrimSpace(parts[2]),
		})
	}
	return accounts
}
