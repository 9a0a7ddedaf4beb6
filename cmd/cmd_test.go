package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadNewPasswordFromStdin(t *testing.T) {
	pw, err := readNewPassword(strings.NewReader("s3cret-pass\nignored\n"), &bytes.Buffer{}, true)
	require.NoError(t, err)
	assert.Equal(t, "s3cret-pass", pw)

	pw, err = readNewPassword(strings.NewReader("no-newline"), &bytes.Buffer{}, true)
	require.NoError(t, err)
	assert.Equal(t, "no-newline", pw)
}

func TestUserAddAgainstSQLite(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", t.TempDir()+"/library.db")
	t.Setenv("BCRYPT_ROUNDS", "4")
	t.Setenv("APP_ENV", "test")
	t.Setenv("LOG_LEVEL", "error")

	run := func(args ...string) (string, error) {
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetIn(strings.NewReader("Passw0rd!\n"))
		root.SetArgs(args)
		err := root.Execute()
		return out.String(), err
	}

	_, err := run("migrate")
	require.NoError(t, err)

	out, err := run("useradd", "--email", "Head@School.edu", "--role", "admin", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "created admin head@school.edu")

	_, err = run("useradd", "--email", "head@school.edu", "--role", "admin", "--password-stdin")
	assert.Error(t, err)

	_, err = run("useradd", "--email", "x@school.edu", "--role", "janitor", "--password-stdin")
	assert.ErrorContains(t, err, "invalid role")
}
