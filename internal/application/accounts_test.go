package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/panelkeeper/internal/application"
)

func TestParseAccounts(t *testing.T) {
	raw := `
alice@example.com----s3cret----restart

broken-line----only-two
bob@example.com ---- hunter2 ---- say hello ---- extra
----
carol----pw----
`

	accounts := application.ParseAccounts(raw)

	require.Len(t, accounts, 3)
	assert.Equal(t, "alice@example.com", accounts[0].Identity)
	assert.Equal(t, "restart", accounts[0].Directive)
	assert.Equal(t, "bob@example.com", accounts[1].Identity)
	assert.Equal(t, "say hello", accounts[1].Directive)
	assert.Equal(t, "carol", accounts[2].Identity)
	assert.False(t, accounts[2].HasDirective())

	secret, err := accounts[1].Secret.Reveal()
	require.NoError(t, err)
	assert.Equal(t, "hunter2", secret)
}

func TestParseAccounts_Empty(t *testing.T) {
	assert.Empty(t, application.ParseAccounts(""))
	assert.Empty(t, application.ParseAccounts("a----b\n\n   \n"))
}

func TestParseAccounts_MalformedLinesDoNotAffectNeighbours(t *testing.T) {
	accounts := application.ParseAccounts("a----1----x\nbad\nb----2----y")

	require.Len(t, accounts, 2)
	assert.Equal(t, "a", accounts[0].Identity)
	assert.Equal(t, "b", accounts[1].Identity)
}
