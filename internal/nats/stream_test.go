package nats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeToken(t *testing.T) {
	for _, id := range []string{"default", "user@example.com", "a.b.c", "with space/and*wild>", "ñandú"} {
		token, err := EncodeToken(id)
		require.NoError(t, err)

		assert.NotContains(t, token, ".")
		assert.NotContains(t, token, "*")
		assert.NotContains(t, token, ">")
		assert.NotContains(t, token, " ")
		assert.NotContains(t, token, "=")

		back, err := DecodeToken(token)
		require.NoError(t, err)
		assert.Equal(t, id, back)
	}

	_, err := EncodeToken("")
	assert.ErrorIs(t, err, ErrEmptyToken)
}

func TestInteractionSubject(t *testing.T) {
	subject, err := InteractionSubject("s1.x")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(subject, SubjectPrefix+"."))
	assert.Equal(t, 2, strings.Count(subject, "."))

	_, err = InteractionSubject("")
	assert.ErrorIs(t, err, ErrEmptyToken)
}

func TestCreateTLSConfig_MissingFiles(t *testing.T) {
	_, err := createTLSConfig("/nonexistent/ca.pem", "/nonexistent/cert.pem", "/nonexistent/key.pem")
	assert.Error(t, err)
}
