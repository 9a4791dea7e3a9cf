package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/chatkit/pkg"
)

func TestDevTokenRoundTrip(t *testing.T) {
	token, err := DevToken("cok-gizli", "ayse")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := UserIDFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ayse", userID)
}

func TestUserIDFromToken(t *testing.T) {
	t.Run("malformed token", func(t *testing.T) {
		_, err := UserIDFromToken("bu-bir-jwt-degil")
		assert.ErrorIs(t, err, pkg.ErrValidation)
	})

	t.Run("missing user_id claim", func(t *testing.T) {
		// user_id yerine başka claim taşıyan geçerli bir JWT.
		token, err := DevToken("cok-gizli", "")
		require.NoError(t, err)

		_, err = UserIDFromToken(token)
		assert.ErrorIs(t, err, pkg.ErrValidation)
	})
}
