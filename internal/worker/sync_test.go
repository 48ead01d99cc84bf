package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/channeldrive/channeldrive/internal/repository"
	"github.com/channeldrive/channeldrive/internal/service"
	"github.com/channeldrive/channeldrive/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSyncer struct {
	mu     sync.Mutex
	calls  []model.TelegramID
	limits []int
	fail   map[model.TelegramID]error
}

func (m *mockSyncer) Sync(ctx context.Context, telegramID model.TelegramID, limit int) (*model.SyncStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, telegramID)
	m.limits = append(m.limits, limit)
	if err := m.fail[telegramID]; err != nil {
		return nil, err
	}
	return &model.SyncStats{Synced: 1}, nil
}

func (m *mockSyncer) getCalls() []model.TelegramID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.TelegramID{}, m.calls...)
}

type staticUsers struct {
	users []*model.User
	err   error
}

func (s staticUsers) WithChannel(ctx context.Context) ([]*model.User, error) {
	return s.users, s.err
}

func TestSyncWorker_RunOnce_SkipsUsersWithoutChannel(t *testing.T) {
	database := testutil.TestDB(t)
	testutil.CreateUser(t, database, "101", "-1001")
	testutil.CreateUser(t, database, "102", "")
	testutil.CreateUser(t, database, "103", "-1003")

	syncer := &mockSyncer{}
	w := NewSyncWorker(repository.NewUserRepository(database), syncer, time.Minute, 25)
	w.RunOnce(context.Background())

	assert.ElementsMatch(t, []model.TelegramID{"101", "103"}, syncer.getCalls())
	assert.Equal(t, []int{25, 25}, syncer.limits)
}

func TestSyncWorker_RunOnce_ContinuesAfterFailure(t *testing.T) {
	users := staticUsers{users: []*model.User{
		{ID: "a", TelegramID: "1"},
		{ID: "b", TelegramID: "2"},
		{ID: "c", TelegramID: "3"},
	}}
	syncer := &mockSyncer{fail: map[model.TelegramID]error{"2": service.ErrNoActiveBots}}

	NewSyncWorker(users, syncer, time.Minute, 50).RunOnce(context.Background())

	assert.Equal(t, []model.TelegramID{"1", "2", "3"}, syncer.getCalls())
}

func TestSyncWorker_RunOnce_ListError(t *testing.T) {
	syncer := &mockSyncer{}
	NewSyncWorker(staticUsers{err: errors.New("db down")}, syncer, time.Minute, 50).RunOnce(context.Background())

	assert.Empty(t, syncer.getCalls())
}

func TestSyncWorker_RunOnce_StopsWhenCancelled(t *testing.T) {
	users := staticUsers{users: []*model.User{{ID: "a", TelegramID: "1"}}}
	syncer := &mockSyncer{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewSyncWorker(users, syncer, time.Minute, 50).RunOnce(ctx)

	assert.Empty(t, syncer.getCalls())
}

func TestSyncWorker_Start(t *testing.T) {
	users := staticUsers{users: []*model.User{{ID: "a", TelegramID: "1"}}}
	syncer := &mockSyncer{}
	w := NewSyncWorker(users, syncer, 10*time.Millisecond, 50)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(syncer.getCalls()) >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

// blockingSyncer holds each run until release is closed.
type blockingSyncer struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSyncer) Sync(ctx context.Context, telegramID model.TelegramID, limit int) (*model.SyncStats, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return &model.SyncStats{}, nil
}

func TestSyncWorker_BackgroundWaitsForRunInProgress(t *testing.T) {
	syncer := &blockingSyncer{started: make(chan struct{}), release: make(chan struct{})}
	users := staticUsers{users: []*model.User{{ID: "u1", TelegramID: "1"}}}
	w := NewSyncWorker(users, syncer, 5*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	wait := w.Background(ctx)

	select {
	case <-syncer.started:
	case <-time.After(time.Second):
		t.Fatal("worker never started a sync")
	}
	cancel()

	returned := make(chan struct{})
	go func() {
		wait()
		close(returned)
	}()

	select {
	case <-returned:
		t.Fatal("wait returned while a sync was still running")
	case <-time.After(30 * time.Millisecond):
	}

	close(syncer.release)
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("wait did not return after the sync finished")
	}
}
