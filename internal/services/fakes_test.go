package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/focusboard/apiserver/internal/store"
	"github.com/focusboard/apiserver/types"
)

type memUserRepo struct {
	mu        sync.Mutex
	users     map[int64]types.User
	nextID    int64
	deleteErr error
	// skipLookup makes GetByEmail/GetByUsername miss so Create hits the
	// unique constraints, as it would under concurrent registration.
	skipLookup bool
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]types.User)}
}

func (r *memUserRepo) GetByID(_ context.Context, id int64) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *memUserRepo) find(match func(types.User) bool) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if match(user) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	if r.skipLookup {
		return types.User{}, store.ErrNotFound
	}
	return r.find(func(u types.User) bool { return u.Email == email })
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	if r.skipLookup {
		return types.User{}, store.ErrNotFound
	}
	return r.find(func(u types.User) bool { return u.Username == username })
}

func (r *memUserRepo) GetByLogin(_ context.Context, identifier string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Username == identifier || u.Email == identifier })
}

func (r *memUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return types.User{}, &pq.Error{Code: "23505", Constraint: "users_email_key"}
		}
		if existing.Username == user.Username {
			return types.User{}, &pq.Error{Code: "23505", Constraint: "users_username_key"}
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = user
	return user, nil
}

func (r *memUserRepo) Delete(_ context.Context, id int64) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *memUserRepo) snapshot() map[int64]types.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]types.User, len(r.users))
	for id, u := range r.users {
		out[id] = u
	}
	return out
}

func (r *memUserRepo) restore(users map[int64]types.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = users
}

// memTxRunner emulates a transaction by restoring the repository snapshot
// when fn fails.
func memTxRunner(repo *memUserRepo) UserTxRunner {
	return func(ctx context.Context, fn func(repo UserRepository) error) error {
		before := repo.snapshot()
		prevID := repo.nextID
		if err := fn(repo); err != nil {
			repo.restore(before)
			repo.nextID = prevID
			return err
		}
		return nil
	}
}

type memTaskRepo struct {
	mu     sync.Mutex
	tasks  map[int64]types.Task
	nextID int64
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[int64]types.Task)}
}

func (r *memTaskRepo) Get(_ context.Context, userID, id int64) (types.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.UserID != userID {
		return types.Task{}, store.ErrNotFound
	}
	return task, nil
}

func (r *memTaskRepo) ListByUser(_ context.Context, userID int64) ([]types.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tasks := make([]types.Task, 0)
	for _, task := range r.tasks {
		if task.UserID == userID {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID > tasks[j].ID })
	return tasks, nil
}

func (r *memTaskRepo) Create(_ context.Context, task types.Task) (types.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	task.ID = r.nextID
	task.CreatedAt = time.Now().UTC()
	task.UpdatedAt = task.CreatedAt
	r.tasks[task.ID] = task
	return task, nil
}

func (r *memTaskRepo) Update(_ context.Context, task types.Task) (types.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return types.Task{}, store.ErrNotFound
	}
	task.UpdatedAt = time.Now().UTC()
	r.tasks[task.ID] = task
	return task, nil
}

func (r *memTaskRepo) Delete(_ context.Context, userID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

type memPomodoroRepo struct {
	mu       sync.Mutex
	tasks    *memTaskRepo
	sessions map[int64]types.PomodoroSession
	nextID   int64
}

func newMemPomodoroRepo(tasks *memTaskRepo) *memPomodoroRepo {
	return &memPomodoroRepo{tasks: tasks, sessions: make(map[int64]types.PomodoroSession)}
}

func (r *memPomodoroRepo) owned(userID int64, session types.PomodoroSession) bool {
	_, err := r.tasks.Get(context.Background(), userID, session.TaskID)
	return err == nil
}

func (r *memPomodoroRepo) Get(_ context.Context, userID, id int64) (types.PomodoroSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok || !r.owned(userID, session) {
		return types.PomodoroSession{}, store.ErrNotFound
	}
	return session, nil
}

func (r *memPomodoroRepo) ListByUser(_ context.Context, userID int64, taskID *int64) ([]types.PomodoroSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessions := make([]types.PomodoroSession, 0)
	for _, session := range r.sessions {
		if !r.owned(userID, session) {
			continue
		}
		if taskID != nil && session.TaskID != *taskID {
			continue
		}
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID > sessions[j].ID })
	return sessions, nil
}

func (r *memPomodoroRepo) Create(_ context.Context, session types.PomodoroSession) (types.PomodoroSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	session.ID = r.nextID
	session.CreatedAt = time.Now().UTC()
	r.sessions[session.ID] = session
	return session, nil
}

func (r *memPomodoroRepo) MarkStarted(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok || session.StartedAt != nil {
		return store.ErrConflict
	}
	session.StartedAt = &at
	r.sessions[id] = session
	return nil
}

func (r *memPomodoroRepo) MarkCompleted(_ context.Context, id int64, at time.Time, actualMinutes int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok || session.StartedAt == nil || session.CompletedAt != nil {
		return store.ErrConflict
	}
	session.CompletedAt = &at
	session.ActualDurationMinutes = &actualMinutes
	r.sessions[id] = session
	return nil
}

func (r *memPomodoroRepo) UpdateTimes(_ context.Context, session types.PomodoroSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.sessions[session.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.StartedAt = session.StartedAt
	existing.CompletedAt = session.CompletedAt
	existing.ActualDurationMinutes = session.ActualDurationMinutes
	r.sessions[session.ID] = existing
	return nil
}

func (r *memPomodoroRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event types.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) eventTypes() []types.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type memObjects struct {
	objects     map[string][]byte
	contentType string
	ensureErr   error
}

func (m *memObjects) EnsureBucket(context.Context) error {
	return m.ensureErr
}

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = data
	m.contentType = contentType
	return nil
}

var errStoreDown = errors.New("store down")
