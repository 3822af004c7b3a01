package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
	"github.com/ericfisherdev/panelkeeper/internal/domain/redact"
)

const (
	// RotatedCredentialFile is the artifact the serialized credential is written to.
	RotatedCredentialFile = "new_cookies.txt"

	summaryTokens    = 5
	summaryShowChars = 10
)

// SelectImportant keeps the tokens a rule recognizes, ordered by class rank.
// Tokens of equal rank keep their input order.
func SelectImportant(tokens []model.Token, rules []model.TokenRule) []model.Token {
	type ranked struct {
		token model.Token
		rank  int
	}

	var kept []ranked
	for _, t := range tokens {
		rule, ok := ClassifyToken(t.Name, rules)
		if !ok {
			continue
		}
		kept = append(kept, ranked{token: t, rank: rule.Class.Rank()})
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].rank < kept[j].rank })

	out := make([]model.Token, 0, len(kept))
	for _, k := range kept {
		out = append(out, k.token)
	}
	return out
}

// SerializeTokens renders tokens as "name=value" pairs joined by "; ", with
// every value percent-encoded.
func SerializeTokens(tokens []model.Token) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		parts = append(parts, t.Name+"="+percentEncode(t.Value))
	}
	return strings.Join(parts, "; ")
}

// percentEncode escapes every byte outside the RFC 3986 unreserved set.
// url.QueryEscape and url.PathEscape both leave some reserved characters
// (or turn spaces into "+"), which would break the single-line format.
func percentEncode(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}

// RotationResult describes what a rotation produced.
type RotationResult struct {
	Skipped      bool
	Tokens       int
	Serialized   string
	ArtifactPath string
	Persisted    bool
}

// CredentialRotator re-extracts the session credential at the end of a run
// and hands it to the secret store for the next run.
type CredentialRotator struct {
	store      driven.SecretStore
	secretName string
	outputDir  string
	rules      []model.TokenRule
}

// NewCredentialRotator creates a CredentialRotator. A nil store disables the
// hand-off; the artifact is still written.
func NewCredentialRotator(store driven.SecretStore, secretName, outputDir string, rules []model.TokenRule) *CredentialRotator {
	if len(rules) == 0 {
		rules = DefaultTokenRules()
	}
	return &CredentialRotator{
		store:      store,
		secretName: secretName,
		outputDir:  outputDir,
		rules:      rules,
	}
}

// Rotate filters, serializes and persists tokens. When no token is
// recognized the rotation is skipped and no error is returned.
func (r *CredentialRotator) Rotate(ctx context.Context, tokens []model.Token) (RotationResult, error) {
	selected := SelectImportant(tokens, r.rules)
	if len(selected) == 0 {
		slog.Warn("no recognized tokens in session, skipping rotation", "tokens", len(tokens))
		return RotationResult{Skipped: true}, nil
	}

	result := RotationResult{
		Tokens:     len(selected),
		Serialized: SerializeTokens(selected),
	}

	path, err := r.writeArtifact(result.Serialized)
	if err != nil {
		return result, err
	}
	result.ArtifactPath = path
	logTokenSummary(selected)

	if r.store == nil {
		slog.Warn("secret store not configured, rotated credential kept as artifact only", "path", path)
		return result, nil
	}

	if err := r.store.Put(ctx, r.secretName, result.Serialized); err != nil {
		if errors.Is(err, driven.ErrSecretStoreNotConfigured) {
			slog.Warn("secret store not configured, rotated credential kept as artifact only", "path", path)
			return result, nil
		}
		return result, fmt.Errorf("store rotated credential %s: %w", r.secretName, err)
	}

	result.Persisted = true
	slog.Info("rotated credential stored", "secret", r.secretName, "tokens", result.Tokens)
	return result, nil
}

func (r *CredentialRotator) writeArtifact(serialized string) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(r.outputDir, RotatedCredentialFile)
	if err := os.WriteFile(path, []byte(serialized), 0o600); err != nil {
		return "", fmt.Errorf("write rotated credential: %w", err)
	}
	return path, nil
}

func logTokenSummary(tokens []model.Token) {
	for i, t := range tokens {
		if i == summaryTokens {
			slog.Info("rotated token summary truncated", "more", len(tokens)-summaryTokens)
			return
		}
		slog.Info("rotated token", "name", t.Name, "value", redact.Abbreviate(t.Value, summaryShowChars))
	}
}
