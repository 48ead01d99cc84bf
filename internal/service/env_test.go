package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/channeldrive/channeldrive/internal/repository"
	"github.com/channeldrive/channeldrive/internal/testutil"
	"github.com/jmoiron/sqlx"
)

const testChannel = "-1001234567890"

// testEnv wires the services against a migrated SQLite database and a fake Bot API.
type testEnv struct {
	db       *sqlx.DB
	users    repository.UserRepository
	botRepo  repository.BotRepository
	fileRepo repository.FileRepository
	tg       *testutil.FakeTelegram
	bots     *BotService
	files    *FileService
	sync     *SyncService
	pacer    *countingPacer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := testutil.TestDB(t)

	env := &testEnv{
		db:       database,
		users:    repository.NewUserRepository(database),
		botRepo:  repository.NewBotRepository(database),
		fileRepo: repository.NewFileRepository(database),
		tg:       testutil.NewFakeTelegram(),
		pacer:    &countingPacer{},
	}
	env.bots = NewBotService(env.botRepo, env.users, env.tg)
	env.files = NewFileService(env.fileRepo, env.bots)
	env.sync = NewSyncService(env.users, env.bots, env.tg, env.files, env.pacing, SyncOptions{})
	return env
}

var telegramSeq int

// user creates an account; an empty channel leaves channel setup incomplete.
func (e *testEnv) user(t *testing.T, channelID string) *model.User {
	t.Helper()
	telegramSeq++
	return testutil.CreateUser(t, e.db, fmt.Sprint(5000+telegramSeq), channelID)
}

func (e *testEnv) reload(t *testing.T, user *model.User) *model.User {
	t.Helper()
	u, err := e.users.ByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return u
}

func (e *testEnv) pacing() Pacer {
	return e.pacer
}

type countingPacer struct {
	calls int
	err   error
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.calls++
	return p.err
}
