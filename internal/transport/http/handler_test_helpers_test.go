package httptransport

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	appinstances "botdash/internal/app/instances"
	appusers "botdash/internal/app/users"
	"botdash/internal/livefeed"
	"botdash/internal/monitor"
	"botdash/internal/store"
)

// memRepo is an in-memory stand-in for the Postgres store.
type memRepo struct {
	mu        sync.Mutex
	seq       int
	bots      []store.Bot
	instances map[string]store.BotInstance
	bets      map[string][]store.Bet
}

func newMemRepo() *memRepo {
	return &memRepo{instances: map[string]store.BotInstance{}, bets: map[string][]store.Bet{}}
}

func (m *memRepo) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

func (m *memRepo) ListBots(ctx context.Context) ([]store.Bot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Bot{}, m.bots...), nil
}

func (m *memRepo) CreateBot(ctx context.Context, name, description, botType, version string, cfg json.RawMessage) (*store.Bot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bots {
		if b.Name == name {
			return nil, store.ErrDuplicate
		}
	}
	b := store.Bot{ID: m.nextID("bot"), Name: name, Description: description, Type: botType, Version: version, DefaultConfig: cfg}
	m.bots = append(m.bots, b)
	return &b, nil
}

func (m *memRepo) list(keep func(store.BotInstance) bool) []store.BotInstance {
	out := []store.BotInstance{}
	for _, in := range m.instances {
		if keep(in) {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memRepo) ListInstancesByUser(ctx context.Context, userID string) ([]store.BotInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(in store.BotInstance) bool { return in.UserID == userID }), nil
}

func (m *memRepo) ListAllInstances(ctx context.Context) ([]store.BotInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(store.BotInstance) bool { return true }), nil
}

func (m *memRepo) GetInstance(ctx context.Context, id, userID string) (*store.BotInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.instances[id]
	if !ok || in.UserID != userID {
		return nil, store.ErrNotFound
	}
	return &in, nil
}

func (m *memRepo) CreateInstance(ctx context.Context, userID, botID, name string, cfg []byte) (*store.BotInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var bot *store.Bot
	for i := range m.bots {
		if m.bots[i].ID == botID {
			bot = &m.bots[i]
		}
	}
	if bot == nil {
		return nil, store.ErrBadReference
	}
	in := store.BotInstance{ID: m.nextID("inst"), BotID: botID, UserID: userID, Name: name, Config: cfg, Status: store.InstanceStopped, Bot: bot, CreatedAt: time.Now()}
	m.instances[in.ID] = in
	return &in, nil
}

func (m *memRepo) UpdateInstance(ctx context.Context, id, userID string, patch store.InstancePatch) (*store.BotInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.instances[id]
	if !ok || in.UserID != userID {
		return nil, store.ErrNotFound
	}
	if patch.Name != nil {
		in.Name = *patch.Name
	}
	if patch.Status != nil {
		in.Status = *patch.Status
	}
	if len(patch.Config) > 0 {
		in.Config = patch.Config
	}
	m.instances[id] = in
	return &in, nil
}

func (m *memRepo) DeleteInstance(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.instances[id]
	if !ok || in.UserID != userID {
		return store.ErrNotFound
	}
	delete(m.instances, id)
	return nil
}

func (m *memRepo) ListBetHistory(ctx context.Context, instanceID string, limit int) ([]store.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bets := m.bets[instanceID]
	if len(bets) > limit {
		bets = bets[:limit]
	}
	return append([]store.Bet{}, bets...), nil
}

// memUsers is an in-memory user directory.
type memUsers struct {
	mu    sync.Mutex
	seq   int
	users map[string]store.User
}

func (m *memUsers) ListUsers(ctx context.Context) ([]store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.User{}
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) GetUser(ctx context.Context, id string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) CreateUser(ctx context.Context, id, name, email, role string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		m.seq++
		id = fmt.Sprintf("user%d", m.seq)
	}
	if _, ok := m.users[id]; ok {
		return nil, store.ErrDuplicate
	}
	for _, u := range m.users {
		if u.Email == email {
			return nil, store.ErrDuplicate
		}
	}
	u := store.User{ID: id, Name: name, Email: email, Role: role, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.users[id] = u
	return &u, nil
}

func (m *memUsers) UpdateUser(ctx context.Context, id string, patch store.UserPatch) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	m.users[id] = u
	return &u, nil
}

func (m *memUsers) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

type recordingControl struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (c *recordingControl) Start(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "start:"+id)
	return c.err
}

func (c *recordingControl) Stop(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "stop:"+id)
	return c.err
}

type staticBalance float64

func (b staticBalance) Balance(ctx context.Context, id string) (float64, error) {
	return float64(b), nil
}

type idleFeed struct {
	once   sync.Once
	events chan livefeed.Event
}

func (f *idleFeed) Events() <-chan livefeed.Event {
	return f.events
}

func (f *idleFeed) Close() error {
	f.once.Do(func() { close(f.events) })
	return nil
}

func idleSubscriber(ctx context.Context, id string) monitor.Feed {
	return &idleFeed{events: make(chan livefeed.Event)}
}

type testEnv struct {
	repo     *memRepo
	control  *recordingControl
	svc      *appinstances.Service
	users    *appusers.Service
	registry *monitor.Registry
}

func newTestEnv() *testEnv {
	repo := newMemRepo()
	control := &recordingControl{}
	svc := appinstances.NewService(repo, control)
	registry := monitor.NewRegistry(staticBalance(12.5), nil, idleSubscriber, monitor.Options{
		BalanceInterval: time.Hour,
		BetPollInterval: time.Hour,
	})
	users := appusers.NewService(&memUsers{users: map[string]store.User{}})
	return &testEnv{repo: repo, control: control, svc: svc, users: users, registry: registry}
}
