package bot

import (
	"context"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

// syncStore adapts a Session to mautrix.SyncStore. The client loads the
// cursor before its first /sync and hands the new one back after every
// processed batch; because SaveNextBatch flushes to disk before returning,
// the cursor write happens-before the next wait call and no batch is
// redelivered after a crash-restart.
type syncStore struct {
	session *Session
}

var _ mautrix.SyncStore = (*syncStore)(nil)

func (s *syncStore) SaveFilterID(_ context.Context, _ id.UserID, filterID string) error {
	return s.session.SetFilterID(filterID)
}

func (s *syncStore) LoadFilterID(_ context.Context, _ id.UserID) (string, error) {
	return s.session.FilterID(), nil
}

func (s *syncStore) SaveNextBatch(_ context.Context, _ id.UserID, nextBatchToken string) error {
	return s.session.SetNextBatch(nextBatchToken)
}

func (s *syncStore) LoadNextBatch(_ context.Context, _ id.UserID) (string, error) {
	return s.session.NextBatch(), nil
}
