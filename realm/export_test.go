package realm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testExportPath = "testdata/realm-export.json"

func TestLoadFile(t *testing.T) {
	t.Run("valid export", func(t *testing.T) {
		export, err := LoadFile(testExportPath)
		require.NoError(t, err)

		assert.Equal(t, "myrealm", export.Realm)
		assert.True(t, export.Enabled)
		assert.Len(t, export.Users, 2)
		assert.Len(t, export.Roles.Realm, 2)
		require.Len(t, export.Clients, 1)
		assert.Equal(t, "my-confidential-client", export.Clients[0].ClientID)
		assert.True(t, export.Clients[0].DirectAccessGrantsEnabled)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
		assert.ErrorIs(t, err, ErrExportUnreadable)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		_, err := LoadFile(path)
		assert.ErrorIs(t, err, ErrExportInvalid)
	})
}

func TestFileSource_Load(t *testing.T) {
	src := NewFileSource(testExportPath)

	export, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "myrealm", export.Realm)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExport_FindUser(t *testing.T) {
	export, err := LoadFile(testExportPath)
	require.NoError(t, err)

	user, ok := export.FindUser("bob")
	require.True(t, ok)
	assert.Equal(t, []string{"user"}, user.RealmRoles)

	_, ok = export.FindUser("Bob")
	assert.False(t, ok, "usernames are case sensitive")

	_, ok = export.FindUser("mallory")
	assert.False(t, ok)
}

func TestUser_MatchesPassword(t *testing.T) {
	export, err := LoadFile(testExportPath)
	require.NoError(t, err)
	alice, _ := export.FindUser("alice")

	assert.True(t, alice.MatchesPassword("alice"))
	assert.False(t, alice.MatchesPassword("123456"), "non-password credentials are ignored")
	assert.False(t, alice.MatchesPassword(""))
}

func TestUser_Fingerprint(t *testing.T) {
	export, err := LoadFile(testExportPath)
	require.NoError(t, err)
	bob, _ := export.FindUser("bob")
	alice, _ := export.FindUser("alice")

	assert.Len(t, bob.Fingerprint(), 8)
	assert.Equal(t, bob.Fingerprint(), bob.Fingerprint())
	assert.NotEqual(t, bob.Fingerprint(), alice.Fingerprint())

	again, err := LoadFile(testExportPath)
	require.NoError(t, err)
	bobAgain, _ := again.FindUser("bob")
	assert.Equal(t, bob.Fingerprint(), bobAgain.Fingerprint())
}
