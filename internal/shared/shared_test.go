package shared

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTimeAgo(t *testing.T) {
	t.Run("zero time", func(t *testing.T) {
		if got := TimeAgo(time.Time{}); got != "never" {
			t.Errorf("expected never, got %s", got)
		}
	})

	t.Run("past time", func(t *testing.T) {
		got := TimeAgo(time.Now().Add(-3 * time.Minute))
		if !strings.HasSuffix(got, "ago") {
			t.Errorf("expected relative label ending in ago, got %s", got)
		}
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique ids")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("expected a valid uuid, got %s: %v", a, err)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := WithLogger(NewLogger(&buf), "component", "test")
	logger.Info("hello", "id", "abc")

	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "component=test") {
		t.Errorf("expected message with inherited fields, got %q", out)
	}
}

func TestBrowserCommand(t *testing.T) {
	tt := []struct {
		goos    string
		want    string
		wantErr bool
	}{
		{goos: "darwin", want: "open"},
		{goos: "linux", want: "xdg-open"},
		{goos: "windows", want: "cmd"},
		{goos: "plan9", wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.goos, func(t *testing.T) {
			cmd, err := browserCommand(tc.goos, "http://localhost:3000/dashboard")
			if tc.wantErr {
				if err == nil {
					t.Error("expected error for unsupported platform")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if filepath.Base(cmd.Args[0]) != tc.want {
				t.Errorf("expected %s, got %s", tc.want, cmd.Args[0])
			}
			if cmd.Args[len(cmd.Args)-1] != "http://localhost:3000/dashboard" {
				t.Errorf("expected url as last argument, got %v", cmd.Args)
			}
		})
	}
}

func TestSessionLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dashboard.lock")

	lock, err := AcquireSessionLock(path)
	if err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	if lock.Path() != path {
		t.Errorf("expected path %s, got %s", path, lock.Path())
	}

	if _, err := AcquireSessionLock(path); !errors.Is(err, ErrSessionLocked) {
		t.Errorf("expected ErrSessionLocked, got %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("failed to release lock: %v", err)
	}

	again, err := AcquireSessionLock(path)
	if err != nil {
		t.Fatalf("expected lock to be free after release: %v", err)
	}
	defer again.Release()

	var nilLock *SessionLock
	if err := nilLock.Release(); err != nil {
		t.Errorf("releasing nil lock should be a no-op, got %v", err)
	}
}
