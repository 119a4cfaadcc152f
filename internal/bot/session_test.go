package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() Record {
	return Record{
		Homeserver:      "https://matrix.example.com",
		UserID:          "@calbot:example.com",
		DeviceID:        "CALBOTDEV",
		AccessToken:     "syt_secret",
		StorePath:       "/var/lib/calbot/abc1234",
		StorePassphrase: "passphrase",
	}
}

func TestSessionRoundTrip(t *testing.T) {
	path := SessionPath(t.TempDir())
	require.False(t, SessionExists(path))

	sess, err := NewSession(path, testRecord())
	require.NoError(t, err)
	require.True(t, SessionExists(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	restored, err := LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, sess.Record(), restored.Record())
	assert.Empty(t, restored.NextBatch())
}

func TestLoadSessionRejectsIncompleteRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"homeserver":""}`), 0o600))

	_, err := LoadSession(path)
	assert.Error(t, err)
}

func TestLoadSessionRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := LoadSession(path)
	assert.Error(t, err)
}

func TestCursorSurvivesRestart(t *testing.T) {
	path := SessionPath(t.TempDir())
	sess, err := NewSession(path, testRecord())
	require.NoError(t, err)

	// N consecutive batches; the persisted cursor must equal the last one
	// even if the process dies right after the write.
	for i := 1; i <= 5; i++ {
		require.NoError(t, sess.SetNextBatch(fmt.Sprintf("s_batch_%d", i)))
	}

	restored, err := LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, "s_batch_5", restored.NextBatch())
}

func TestFilterIDPersisted(t *testing.T) {
	path := SessionPath(t.TempDir())
	sess, err := NewSession(path, testRecord())
	require.NoError(t, err)

	require.NoError(t, sess.SetFilterID("filter-7"))

	restored, err := LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, "filter-7", restored.FilterID())
}

func TestSyncStoreFlushesBeforeReturning(t *testing.T) {
	ctx := context.Background()
	path := SessionPath(t.TempDir())
	sess, err := NewSession(path, testRecord())
	require.NoError(t, err)

	store := &syncStore{session: sess}
	rec := sess.Record()

	require.NoError(t, store.SaveNextBatch(ctx, rec.UserID, "s_123_456"))

	// A fresh load straight from disk sees the token: the write completed
	// before SaveNextBatch returned.
	restored, err := LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, "s_123_456", restored.NextBatch())

	got, err := store.LoadNextBatch(ctx, rec.UserID)
	require.NoError(t, err)
	assert.Equal(t, "s_123_456", got)
}

func TestSyncStoreFilterID(t *testing.T) {
	ctx := context.Background()
	sess, err := NewSession(SessionPath(t.TempDir()), testRecord())
	require.NoError(t, err)

	store := &syncStore{session: sess}
	rec := sess.Record()

	require.NoError(t, store.SaveFilterID(ctx, rec.UserID, "filter-1"))
	got, err := store.LoadFilterID(ctx, rec.UserID)
	require.NoError(t, err)
	assert.Equal(t, "filter-1", got)
}
