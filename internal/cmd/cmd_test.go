package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/certmint/certmint/internal/server/data"
)

func newTestCLI(t *testing.T) (*CLI, context.Context, *bytes.Buffer) {
	t.Helper()

	out := &bytes.Buffer{}
	cli := &CLI{Stdin: &bytes.Buffer{}, Stdout: out, Stderr: out}
	ctx := context.WithValue(context.Background(), ctxKey, cli)
	return cli, ctx, out
}

func TestVersionCmd(t *testing.T) {
	_, ctx, out := newTestCLI(t)

	err := Run(ctx, "version")
	assert.NilError(t, err)
	assert.Assert(t, is.Contains(out.String(), "certmint version"))
}

func TestRootCmdUnknownCommand(t *testing.T) {
	_, ctx, _ := newTestCLI(t)

	err := Run(ctx, "sorcery")
	assert.ErrorContains(t, err, "unknown command")
}

func TestOpenDatabase(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "certmint.yaml")
	contents := "dbFile: " + filepath.Join(dir, "certmint.db") + "\n"
	assert.NilError(t, os.WriteFile(configFile, []byte(contents), 0o600))

	db, cfg, err := openDatabase(&rootOptions{ConfigFile: configFile})
	assert.NilError(t, err)
	assert.Assert(t, cfg.DBFile != "")

	// the schema is migrated and usable
	_, err = data.ListCertificates(db, nil)
	assert.NilError(t, err)
}

func TestOpenDatabaseWithoutConnection(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "certmint.yaml")
	assert.NilError(t, os.WriteFile(configFile, []byte("logLevel: info\n"), 0o600))

	_, _, err := openDatabase(&rootOptions{ConfigFile: configFile})
	assert.ErrorContains(t, err, "dbFile or pgDSN")
}

func TestResolveUser(t *testing.T) {
	driver, err := data.NewSQLiteDriver("file::memory:")
	assert.NilError(t, err)
	db, err := data.NewDB(driver)
	assert.NilError(t, err)

	user, err := resolveUser(db, "dev@example.com")
	assert.NilError(t, err)
	assert.Assert(t, user.ID != 0)

	// resolving again returns the same record
	again, err := resolveUser(db, "dev@example.com")
	assert.NilError(t, err)
	assert.Equal(t, again.ID, user.ID)

	_, err = resolveUser(db, "not-an-email")
	assert.ErrorContains(t, err, "email is required")
}
