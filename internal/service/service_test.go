package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"ent-messaging-go/internal/model"
	"ent-messaging-go/internal/realtime"
	"ent-messaging-go/internal/repository"
	"ent-messaging-go/pkg/database"
	"ent-messaging-go/pkg/tasks"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	prof     = model.User{UserID: "p-1", Username: "mme.durand", Role: model.RoleProfessor}
	prof2    = model.User{UserID: "p-2", Username: "m.martin", Role: model.RoleProfessor}
	student  = model.User{UserID: "s-1", Username: "lea", Role: model.RoleStudent}
	student2 = model.User{UserID: "s-2", Username: "hugo", Role: model.RoleStudent}
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

type recordingChannel struct {
	mu     sync.Mutex
	frames []model.PushFrame
	raw    [][]byte
}

func (c *recordingChannel) Send(_ context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var f model.PushFrame
	if err := json.Unmarshal(payload, &f); err != nil {
		return err
	}
	c.frames = append(c.frames, f)
	c.raw = append(c.raw, payload)
	return nil
}

func (c *recordingChannel) received() []model.PushFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.PushFrame(nil), c.frames...)
}

type recordingProducer struct {
	mu    sync.Mutex
	tasks []tasks.MessageIndexTask
	err   error
}

func (p *recordingProducer) ProduceMessageTask(_ context.Context, task tasks.MessageIndexTask) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, task)
	return p.err
}

func (p *recordingProducer) Close() error { return nil }

// fixture 组装真实仓储、进程内注册表与可控时钟。
type fixture struct {
	db       *gorm.DB
	users    repository.UserRepository
	convs    repository.ConversationRepository
	msgs     repository.MessageRepository
	registry *realtime.LocalRegistry
	producer *recordingProducer
	svc      *messagingService
}

func newFixture(t *testing.T, seed ...model.User) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:       db,
		users:    repository.NewUserRepository(db),
		convs:    repository.NewConversationRepository(db),
		msgs:     repository.NewMessageRepository(db),
		registry: realtime.NewLocalRegistry(),
		producer: &recordingProducer{},
	}
	for i := range seed {
		u := seed[i]
		require.NoError(t, f.users.Upsert(context.Background(), &u))
	}
	f.svc = NewMessagingService(f.users, f.convs, f.msgs, f.registry, f.producer).(*messagingService)

	clock := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	f.svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	return f
}

func senderOf(u model.User) Sender {
	return Sender{UserID: u.UserID, Role: u.Role}
}
