package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTopic = "11111111-1111-1111-1111-111111111111"
	testLevel = "22222222-2222-2222-2222-222222222222"
	testGen   = "33333333-3333-3333-3333-333333333333"
	testUser  = "99999999-9999-9999-9999-999999999999"
)

func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	doc := "topics:\n  - id: " + testTopic + "\n    levels:\n      - id: " + testLevel +
		"\n        generators:\n          - " + testGen + "\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	for _, key := range []string{"DATABASE_URL", "DB_HOST", "MONGO_URI", "REDIS_URL", "CATALOG_SOURCE", "APP_ENV", "LOG_FORMAT"} {
		t.Setenv(key, "")
	}
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("CATALOG_FILE", path)
	t.Setenv("SELECTOR_POLICY", "round_robin")
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)

	err := root.ExecuteContext(context.Background())
	return strings.TrimSpace(out.String()), err
}

func TestUserEnsure(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "user", "ensure", testUser)

	require.NoError(t, err)
	assert.Equal(t, "user "+testUser+" version 1 topics 1 current_task false", out)
}

func TestNext(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "next", testUser, testTopic, testLevel)

	require.NoError(t, err)
	assert.Equal(t, testGen, out)
}

func TestCatalogCheck(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "catalog", "check", testTopic, testLevel, testGen)
	require.NoError(t, err)
	assert.Equal(t, "generator "+testGen+": true", out)

	out, err = run(t, "catalog", "check", testTopic, testUser)
	require.NoError(t, err)
	assert.Equal(t, "level "+testUser+": false", out)
}

func TestCatalogList(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "catalog", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "topic "+testTopic)
	assert.Contains(t, out, "level "+testLevel+" (1 generators)")
}

func TestRefreshAll_Empty(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "refresh-all")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "total 0 refreshed 0"), out)
}

func TestErrors(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "next", "not-a-uuid", testTopic, testLevel)
	assert.ErrorContains(t, err, "invalid user id")

	_, err = run(t, "user", "refresh", testUser, "--level", testLevel)
	assert.ErrorContains(t, err, "--level requires --topic")

	_, err = run(t, "user", "show", testUser)
	assert.ErrorContains(t, err, "user not found")

	_, err = run(t, "seed", "--file", os.Getenv("CATALOG_FILE"))
	assert.ErrorContains(t, err, "cannot be seeded")
}
