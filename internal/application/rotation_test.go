package application_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/panelkeeper/internal/application"
	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
)

func TestSelectImportant_DropsUnknownAndKeepsOrder(t *testing.T) {
	tokens := []model.Token{
		{Name: "remember_web_x", Value: "a"},
		{Name: "_ga", Value: "b"},
		{Name: "unknown_token", Value: "c"},
	}

	got := application.SerializeTokens(application.SelectImportant(tokens, application.DefaultTokenRules()))

	assert.Equal(t, "remember_web_x=a; _ga=b", got)
}

func TestSelectImportant_PriorityOrder(t *testing.T) {
	tokens := []model.Token{
		{Name: "filemode", Value: "1"},
		{Name: "__cf_bm", Value: "2"},
		{Name: "XSRF-TOKEN", Value: "3"},
		{Name: "_ga", Value: "4"},
		{Name: "pterodactyl_session", Value: "5"},
		{Name: "remember_web_abc", Value: "6"},
		{Name: "cf_clearance", Value: "7"},
	}

	selected := application.SelectImportant(tokens, application.DefaultTokenRules())

	names := make([]string, 0, len(selected))
	for _, s := range selected {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		"remember_web_abc", "pterodactyl_session", "XSRF-TOKEN",
		"__cf_bm", "cf_clearance", "filemode", "_ga",
	}, names)
}

func TestSerializeTokens_PercentEncodesValues(t *testing.T) {
	got := application.SerializeTokens([]model.Token{
		{Name: "XSRF-TOKEN", Value: "eyJ a=b/c+d;e"},
		{Name: "_ga", Value: "GA1.2.3-4_5~6"},
	})

	assert.Equal(t, "XSRF-TOKEN=eyJ%20a%3Db%2Fc%2Bd%3Be; _ga=GA1.2.3-4_5~6", got)
}

func TestCredentialRotator_Rotate(t *testing.T) {
	dir := t.TempDir()
	store := &mockSecretStore{}
	rotator := application.NewCredentialRotator(store, "PANEL_COOKIES", dir, nil)

	result, err := rotator.Rotate(context.Background(), []model.Token{
		{Name: "XSRF-TOKEN", Value: "x"},
		{Name: "remember_web_1", Value: "r"},
		{Name: "other", Value: "o"},
	})

	require.NoError(t, err)
	assert.True(t, result.Persisted)
	assert.Equal(t, 2, result.Tokens)
	assert.Equal(t, "remember_web_1=r; XSRF-TOKEN=x", store.puts["PANEL_COOKIES"])

	artifact, err := os.ReadFile(filepath.Join(dir, application.RotatedCredentialFile))
	require.NoError(t, err)
	assert.Equal(t, "remember_web_1=r; XSRF-TOKEN=x", string(artifact))
}

func TestCredentialRotator_SkipsWhenNothingRecognized(t *testing.T) {
	dir := t.TempDir()
	store := &mockSecretStore{}
	rotator := application.NewCredentialRotator(store, "PANEL_COOKIES", dir, nil)

	result, err := rotator.Rotate(context.Background(), []model.Token{{Name: "other", Value: "o"}})

	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Empty(t, store.puts)
	assert.NoFileExists(t, filepath.Join(dir, application.RotatedCredentialFile))
}

func TestCredentialRotator_StoreNotConfigured(t *testing.T) {
	store := &mockSecretStore{err: driven.ErrSecretStoreNotConfigured}
	rotator := application.NewCredentialRotator(store, "PANEL_COOKIES", t.TempDir(), nil)

	result, err := rotator.Rotate(context.Background(), []model.Token{{Name: "remember_web_1", Value: "r"}})

	require.NoError(t, err)
	assert.False(t, result.Persisted)
	assert.FileExists(t, result.ArtifactPath)
}

func TestCredentialRotator_StoreError(t *testing.T) {
	store := &mockSecretStore{err: errors.New("403 forbidden")}
	rotator := application.NewCredentialRotator(store, "PANEL_COOKIES", t.TempDir(), nil)

	_, err := rotator.Rotate(context.Background(), []model.Token{{Name: "remember_web_1", Value: "r"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403 forbidden")
}
