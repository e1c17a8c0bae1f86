//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/focusboard/apiserver/internal/store"
)

// seedSession registers a user and creates one task with one session.
func seedSession(t *testing.T, prefix string) (token string, me userResponse, task taskResponse, session sessionResponse) {
	t.Helper()
	token = registerAndLogin(t, prefix)

	if status := doJSON(t, http.MethodGet, "/api/v1/auth/me", token, nil, &me); status != http.StatusOK {
		t.Fatalf("me status = %d", status)
	}
	if status := doJSON(t, http.MethodPost, "/api/v1/tasks", token, map[string]any{"title": prefix + " task"}, &task); status != http.StatusCreated {
		t.Fatalf("create task status = %d", status)
	}
	status := doJSON(t, http.MethodPost, "/api/v1/pomodoro", token, map[string]any{
		"task_id":          task.ID,
		"duration_minutes": 25,
		"session_type":     "work",
	}, &session)
	if status != http.StatusCreated {
		t.Fatalf("create session status = %d", status)
	}
	return token, me, task, session
}

func TestDeletingUserCascadesToTasksAndSessions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	token, me, task, session := seedSession(t, "cascade")

	if _, err := testDB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, me.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	counts := []struct {
		query string
		arg   int64
	}{
		{query: `SELECT count(*) FROM tasks WHERE user_id = $1`, arg: me.ID},
		{query: `SELECT count(*) FROM pomodoro_sessions WHERE task_id = $1`, arg: task.ID},
		{query: `SELECT count(*) FROM pomodoro_sessions WHERE id = $1`, arg: session.ID},
	}
	for _, c := range counts {
		var n int
		if err := testDB.QueryRowContext(ctx, c.query, c.arg).Scan(&n); err != nil {
			t.Fatalf("%s: %v", c.query, err)
		}
		if n != 0 {
			t.Errorf("%s [%d] = %d, want 0", c.query, c.arg, n)
		}
	}

	if status := doJSON(t, http.MethodGet, "/api/v1/auth/me", token, nil, nil); status != http.StatusUnauthorized {
		t.Errorf("token of deleted user: status = %d, want 401", status)
	}
}

func TestBackupSnapshotIsReferentiallyComplete(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, me, task, session := seedSession(t, "backup")

	snap, err := store.NewBackupReader(testDB).Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	users := make(map[int64]bool, len(snap.Users))
	for _, u := range snap.Users {
		users[u.ID] = true
	}
	tasks := make(map[int64]bool, len(snap.Tasks))
	for _, tk := range snap.Tasks {
		tasks[tk.ID] = true
		if !users[tk.UserID] {
			t.Errorf("task %d references user %d missing from snapshot", tk.ID, tk.UserID)
		}
	}
	sessions := make(map[int64]bool, len(snap.Sessions))
	for _, s := range snap.Sessions {
		sessions[s.ID] = true
		if !tasks[s.TaskID] {
			t.Errorf("session %d references task %d missing from snapshot", s.ID, s.TaskID)
		}
	}

	for name, ok := range map[string]bool{
		fmt.Sprintf("user %d", me.ID):         users[me.ID],
		fmt.Sprintf("task %d", task.ID):       tasks[task.ID],
		fmt.Sprintf("session %d", session.ID): sessions[session.ID],
	} {
		if !ok {
			t.Errorf("%s missing from snapshot", name)
		}
	}
}
