package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"campus-chat-be/internal/models"
	"campus-chat-be/internal/push"
	"campus-chat-be/internal/ws"
	"campus-chat-be/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type emitted struct {
	Users []uint
	Room  string
	Event ws.Event
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (f *fakeEmitter) ToUser(userID uint, ev ws.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{Users: []uint{userID}, Event: ev})
}

func (f *fakeEmitter) ToUsers(userIDs []uint, ev ws.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{Users: userIDs, Event: ev})
}

func (f *fakeEmitter) ToRoom(room string, ev ws.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{Room: room, Event: ev})
}

func (f *fakeEmitter) ofType(t string) []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emitted
	for _, e := range f.events {
		if e.Event.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeEmitter) toUser(userID uint, t string) []emitted {
	var out []emitted
	for _, e := range f.ofType(t) {
		for _, uid := range e.Users {
			if uid == userID {
				out = append(out, e)
			}
		}
	}
	return out
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls [][]uint
	panic bool
}

func (f *fakeDispatcher) Dispatch(_ context.Context, userIDs []uint, _ push.Notification) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]uint(nil), userIDs...))
	shouldPanic := f.panic
	f.mu.Unlock()
	if shouldPanic {
		panic("push provider exploded")
	}
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.DirectMessage{},
		&models.GroupMessage{},
		&models.ConversationState{},
		&models.DeviceToken{},
	))
	return db
}

type fixture struct {
	svc  *Service
	db   *gorm.DB
	hub  *fakeEmitter
	push *fakeDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testDB(t)
	hub := &fakeEmitter{}
	dispatcher := &fakeDispatcher{}
	svc := NewService(db, hub, dispatcher, logger.New(logger.Config{Level: "error"}))

	// deterministic, strictly increasing clock
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	var tick int64
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	return &fixture{svc: svc, db: db, hub: hub, push: dispatcher}
}

func (f *fixture) user(t *testing.T, name string) models.User {
	t.Helper()
	u := models.User{Name: name, Email: name + "@campus.test", Role: "student", PushEnabled: true}
	require.NoError(t, f.db.Create(&u).Error)
	return u
}

func (f *fixture) group(t *testing.T, name string, memberIDs ...uint) models.Group {
	t.Helper()
	g := models.Group{Name: name}
	require.NoError(t, f.db.Create(&g).Error)
	for _, uid := range memberIDs {
		require.NoError(t, f.db.Create(&models.GroupMember{GroupID: g.ID, UserID: uid}).Error)
	}
	return g
}

// waitPush blocks until detached push goroutines finish.
func (f *fixture) waitPush() { f.svc.pushWG.Wait() }
