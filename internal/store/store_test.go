package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andy6609/tcp-chat-server/internal/wire"
)

func TestGateway_LoadMissingFileIsColdStart(t *testing.T) {
	g := NewGateway(filepath.Join(t.TempDir(), "backup.gob"), nil)

	snap, ok, err := g.Load()
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, snap.Accounts)
	require.Empty(t, snap.History)
}

func TestGateway_SaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.gob")
	g := NewGateway(path, nil)
	require.Equal(t, path, g.Path())

	want := Snapshot{
		Accounts: []Account{
			{Nickname: "alice", Password: "secret"},
			{Nickname: "bob", Password: "hunter2"},
		},
		History: []wire.Message{
			{Sender: "alice", To: wire.All, Text: "first"},
			{Sender: "bob", To: wire.All, Text: "second"},
			{Sender: "alice", To: wire.All, Text: "third"},
		},
	}
	require.NoError(t, g.Save(want))

	got, ok, err := g.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestGateway_SaveOverwritesPreviousSnapshot(t *testing.T) {
	g := NewGateway(filepath.Join(t.TempDir(), "backup.gob"), nil)

	require.NoError(t, g.Save(Snapshot{
		Accounts: []Account{{Nickname: "old", Password: "x"}},
		History:  []wire.Message{{Sender: "old", To: wire.All, Text: "stale"}},
	}))
	require.NoError(t, g.Save(Snapshot{
		Accounts: []Account{{Nickname: "new", Password: "y"}},
		History:  []wire.Message{{Sender: "new", To: wire.All, Text: "fresh"}},
	}))

	got, ok, err := g.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []Account{{Nickname: "new", Password: "y"}}, got.Accounts)
	require.Len(t, got.History, 1)
	require.Equal(t, "fresh", got.History[0].Text)
}

func TestGateway_EmptySnapshot(t *testing.T) {
	g := NewGateway(filepath.Join(t.TempDir(), "backup.gob"), nil)
	require.NoError(t, g.Save(Snapshot{}))

	got, ok, err := g.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, got.Accounts)
	require.Empty(t, got.History)
}

func TestGateway_CorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.gob")
	require.NoError(t, os.WriteFile(path, []byte("definitely not gob"), 0o600))

	_, ok, err := NewGateway(path, nil).Load()
	require.Error(t, err)
	require.False(t, ok)
}

func TestGateway_SaveIntoMissingDirectoryFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "backup.gob")
	err := NewGateway(path, nil).Save(Snapshot{})
	require.Error(t, err)
}
