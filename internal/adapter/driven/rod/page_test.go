package rod

import (
	"errors"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
)

func TestTextMatches(t *testing.T) {
	assert.True(t, textMatches("  Renew Server  ", "renew server"))
	assert.True(t, textMatches("Yes, Renew Server", "Renew Server"))
	assert.False(t, textMatches("Logout", "Login"))
}

func TestDecodeBody(t *testing.T) {
	plain, err := decodeBody(`{"data":[]}`, false)
	require.NoError(t, err)
	assert.Equal(t, `{"data":[]}`, string(plain))

	decoded, err := decodeBody("eyJkYXRhIjpbXX0=", true)
	require.NoError(t, err)
	assert.Equal(t, `{"data":[]}`, string(decoded))

	_, err = decodeBody("%%%", true)
	assert.Error(t, err)
}

func TestSameSiteMapping(t *testing.T) {
	for _, s := range []model.SameSite{model.SameSiteLax, model.SameSiteStrict, model.SameSiteNone} {
		assert.Equal(t, s, fromProtoSameSite(toProtoSameSite(s)))
	}
	assert.Equal(t, proto.NetworkCookieSameSite(""), toProtoSameSite(""))
	assert.Equal(t, model.SameSiteLax, fromProtoSameSite(""))
}

type fakeCloser struct {
	err    error
	closed bool
}

func (c *fakeCloser) Close() error {
	c.closed = true
	return c.err
}

func TestCloseSession(t *testing.T) {
	t.Run("disposes context after page", func(t *testing.T) {
		page, browserContext := &fakeCloser{}, &fakeCloser{}

		require.NoError(t, closeSession(page, browserContext))
		assert.True(t, page.closed)
		assert.True(t, browserContext.closed)
	})

	t.Run("disposes context when page close fails", func(t *testing.T) {
		page := &fakeCloser{err: errors.New("target closed")}
		browserContext := &fakeCloser{}

		err := closeSession(page, browserContext)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "close page")
		assert.True(t, browserContext.closed)
	})

	t.Run("reports context failure", func(t *testing.T) {
		err := closeSession(&fakeCloser{}, &fakeCloser{err: errors.New("no such context")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dispose browser context")
	})

	t.Run("no context", func(t *testing.T) {
		page := &fakeCloser{}
		require.NoError(t, closeSession(page, nil))
		assert.True(t, page.closed)
	})
}
