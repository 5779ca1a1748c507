package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkcamp/internal/common"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "linkcamp version "+Version)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("JWT_ISSUER", "linkcamp")

	out, err := run(t, "token", "--email", " Alice@Campus.edu ", "--uid", "u-1")
	require.NoError(t, err)

	claims, err := common.NewJWTManager("dev-secret", "linkcamp", 0).ValidToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice@campus.edu", claims.Email)
	assert.Equal(t, "u-1", claims.Subject)
}

func TestTokenCommand_Errors(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := run(t, "token", "--email", "alice@campus.edu")
	assert.EqualError(t, err, "JWT_SECRET is not set")

	_, err = run(t, "token", "--email", "not-an-email")
	assert.Equal(t, common.KindValidation, common.KindOf(err))

	_, err = run(t, "token")
	assert.Error(t, err)
}
