package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ies/core/user"
	inmemdb "github.com/trezcool/ies/storage/database/inmem"
	"github.com/trezcool/ies/testutil"
)

type indexerMock struct {
	calls int
	err   error
}

func (m *indexerMock) EnsureIndexes(context.Context) error {
	m.calls++
	return m.err
}

func setup(t *testing.T) (*commandLine, *indexerMock) {
	t.Helper()
	idx := &indexerMock{}
	return &commandLine{
		db:      idx,
		usrRepo: inmemdb.NewUserRepository(inmemdb.Open()),
	}, idx
}

type cliTest struct {
	name    string
	args    []string // without program name
	pwd     string
	wantErr error
}

func mockPassword(pwd string) {
	readPasswordFunc = func(int) ([]byte, error) {
		if pwd == "" {
			return nil, nil
		}
		return []byte(pwd), nil
	}
}

func Test_commandLine_ensureIndexes(t *testing.T) {
	cli, idx := setup(t)

	assert.Equal(t, errHelp, cli.run([]string{"admin"}))
	assert.Equal(t, errHelp, cli.run([]string{"admin", "migrate"}))
	assert.Zero(t, idx.calls)

	require.NoError(t, cli.run([]string{"admin", "ensureindexes"}))
	assert.Equal(t, 1, idx.calls)

	idx.err = errors.New("no connection")
	assert.Equal(t, idx.err, cli.run([]string{"admin", "ensureindexes"}))
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, pwd: "S3cret!pwd", wantErr: errHelp},
		{name: "no email", args: []string{"adduser", "-name", "Admin"}, pwd: "S3cret!pwd", wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "-name", "Admin", "-email", "admin@buksu.edu.ph", "-role", "dean"}, pwd: "S3cret!pwd", wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Admin", "-email", "admin@buksu.edu.ph"}, wantErr: errHelp},
		{name: "create", args: []string{"adduser", "-name", "Admin", "-email", " Admin@BukSU.edu.ph "}, pwd: "S3cret!pwd"},
	}
	for _, tt := range tests {
		mockPassword(tt.pwd)
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: "admin@buksu.edu.ph"})
	require.NoError(t, err)
	assert.Equal(t, "Admin", usr.Name)
	assert.Equal(t, user.RoleAdmin, usr.Role)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("S3cret!pwd"))

	t.Run("update existing", func(t *testing.T) {
		inactive := testutil.CreateUser(t, cli.usrRepo, "Faculty", "faculty@buksu.edu.ph", "old-pwd", user.RoleStudent, false)
		mockPassword("n3w-Pwd!")
		require.NoError(t, cli.run([]string{"admin", "adduser", "-name", "Dr. Faculty", "-email", "faculty@buksu.edu.ph", "-role", "faculty"}))

		updated, err := cli.usrRepo.GetUser(ctx, user.GetFilter{ID: inactive.ID})
		require.NoError(t, err)
		assert.Equal(t, "Dr. Faculty", updated.Name)
		assert.Equal(t, user.RoleFaculty, updated.Role)
		assert.True(t, updated.IsActive)
		assert.NoError(t, updated.CheckPassword("n3w-Pwd!"))
		assert.Equal(t, inactive.CreatedAt, updated.CreatedAt)
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)
	usr := testutil.CreateUser(t, cli.usrRepo, "User", "user@buksu.edu.ph", "mdr", user.RoleFaculty, true)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@buksu.edu.ph"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, pwd: "lol"},
		{name: "reset with upper case email", args: []string{"resetpassword", "-email", "USER@buksu.edu.ph"}, pwd: "lmao"},
	}
	for _, tt := range tests {
		mockPassword(tt.pwd)
		prevHash := usr.PasswordHash

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)

			refreshed, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			if bytes.Equal(refreshed.PasswordHash, prevHash) {
				t.Error("failed to update new password")
			}
			assert.NoError(t, refreshed.CheckPassword(tt.pwd))
			usr = refreshed
		})
	}
}
