package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"

	"github.com/bubtconnect/backend/src/broker"
	"github.com/bubtconnect/backend/src/media"
	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/notify"
	"github.com/bubtconnect/backend/src/ratelimit"
	"github.com/bubtconnect/backend/src/repository"
	"github.com/bubtconnect/backend/src/repository/memstore"
	"github.com/bubtconnect/backend/src/services"
	"github.com/bubtconnect/backend/src/workflow"
)

var errStoreDown = errors.New("store unavailable")

type fakeMailer struct {
	mu   sync.Mutex
	sent []notify.Mail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, m notify.Mail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeUploader struct {
	uploads []media.File
}

func (f *fakeUploader) Upload(_ context.Context, file media.File) (models.Attachment, error) {
	f.uploads = append(f.uploads, file)
	return models.Attachment{Kind: models.MessageTypeImage, Reference: "https://ik/messages/" + file.Name}, nil
}

type recordingChannel struct {
	mu     sync.Mutex
	events []broker.Event
}

func (r *recordingChannel) Send(ev broker.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingChannel) received() []broker.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broker.Event(nil), r.events...)
}

// flakyUsers fails AddEdge for one edge kind, optionally only on one user.
type flakyUsers struct {
	repository.UserRepository
	failEdge models.Edge
	failUser string
}

func (f *flakyUsers) AddEdge(ctx context.Context, id string, edge models.Edge, member string) (bool, error) {
	if edge == f.failEdge && (f.failUser == "" || f.failUser == id) {
		return false, errStoreDown
	}
	return f.UserRepository.AddEdge(ctx, id, edge, member)
}

// failingRemovals fails RemoveEdge for one edge kind.
type failingRemovals struct {
	repository.UserRepository
	failEdge models.Edge
}

func (f *failingRemovals) RemoveEdge(ctx context.Context, id string, edge models.Edge, member string) (bool, error) {
	if edge == f.failEdge {
		return false, errStoreDown
	}
	return f.UserRepository.RemoveEdge(ctx, id, edge, member)
}

// flakyCreate fails Create until failures is used up.
type flakyCreate struct {
	repository.UserRepository
	mu       sync.Mutex
	failures int
}

func (f *flakyCreate) Create(ctx context.Context, u *models.User) (bool, error) {
	f.mu.Lock()
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()
	if fail {
		return false, errStoreDown
	}
	return f.UserRepository.Create(ctx, u)
}

type testEnv struct {
	store    *repository.Store
	clock    *testclock.Clock
	engine   *workflow.Engine
	broker   *broker.LocalBroker
	mailer   *fakeMailer
	uploader *fakeUploader

	graph         *services.GraphService
	connections   *services.ConnectionService
	messages      *services.MessageService
	identity      *services.IdentitySync
	notifications *services.NotificationService
}

type envOption func(*repository.Store)

func withUsers(wrap func(repository.UserRepository) repository.UserRepository) envOption {
	return func(s *repository.Store) { s.Users = wrap(s.Users) }
}

func newEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	store := memstore.New()
	for _, opt := range opts {
		opt(store)
	}
	clk := testclock.NewClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	e := &testEnv{
		store:    store,
		clock:    clk,
		broker:   broker.NewLocalBroker(),
		mailer:   &fakeMailer{},
		uploader: &fakeUploader{},
	}
	e.engine = workflow.NewEngine(store.Jobs, clk, workflow.Config{
		MaxAttempts: 3,
		MinBackoff:  time.Second,
		MaxBackoff:  time.Minute,
	})

	limiter := ratelimit.NewStoreLimiter(store.Connections, clk, ratelimit.Policy{Limit: 20, Window: 24 * time.Hour})
	notifier := services.NewConnectionNotifier(store, notify.NewDispatcher(e.mailer, "https://bubt.example"), 24*time.Hour)

	e.notifications = services.NewNotificationService(store, e.broker, clk)
	e.graph = services.NewGraphService(store, e.notifications)
	e.connections = services.NewConnectionService(store, limiter, e.engine, e.notifications, clk)
	e.messages = services.NewMessageService(store, e.broker, e.uploader, clk)
	e.identity = services.NewIdentitySync(store, e.engine, clk)
	e.engine.Handle(services.NewJobDispatcher(notifier, e.identity).Dispatch)
	return e
}

func (e *testEnv) addUser(t *testing.T, id string) {
	t.Helper()
	_, err := e.store.Users.Create(context.Background(), &models.User{
		Id:       id,
		Email:    id + "@bubt.edu",
		FullName: "User " + id,
		Username: id,
	})
	require.NoError(t, err)
}

func (e *testEnv) user(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := e.store.Users.FindByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (e *testEnv) runJobs(t *testing.T) int {
	t.Helper()
	n, err := e.engine.RunDue(context.Background())
	require.NoError(t, err)
	return n
}

// drainJobs runs due jobs until none are left, advancing past any backoff.
func (e *testEnv) drainJobs(t *testing.T) int {
	t.Helper()
	total := 0
	for i := 0; i < 20; i++ {
		n := e.runJobs(t)
		if n == 0 {
			e.clock.Advance(time.Minute)
			if n = e.runJobs(t); n == 0 {
				return total
			}
		}
		total += n
	}
	return total
}
