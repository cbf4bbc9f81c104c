//go:build unix

package singleinstance

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestTryLock(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T, path string)
	}{
		{
			name: "first lock succeeds",
			run: func(t *testing.T, path string) {
				lock, err := TryLock(path)
				if err != nil {
					t.Fatalf("TryLock() error = %v", err)
				}
				if err := lock.Release(); err != nil {
					t.Fatalf("Release() error = %v", err)
				}
			},
		},
		{
			name: "second lock returns ErrAlreadyRunning",
			run: func(t *testing.T, path string) {
				lock1, err := TryLock(path)
				if err != nil {
					t.Fatalf("first TryLock() error = %v", err)
				}
				defer lock1.Release()

				lock2, err := TryLock(path)
				if !errors.Is(err, ErrAlreadyRunning) {
					t.Fatalf("second TryLock() error = %v, want ErrAlreadyRunning", err)
				}
				if lock2 != nil {
					t.Fatal("second TryLock() returned non-nil lock")
				}
			},
		},
		{
			name: "lock reacquirable after release",
			run: func(t *testing.T, path string) {
				lock1, err := TryLock(path)
				if err != nil {
					t.Fatalf("first TryLock() error = %v", err)
				}
				if err := lock1.Release(); err != nil {
					t.Fatalf("Release() error = %v", err)
				}
				lock2, err := TryLock(path)
				if err != nil {
					t.Fatalf("TryLock() after release error = %v", err)
				}
				lock2.Release()
			},
		},
		{
			name: "release is idempotent",
			run: func(t *testing.T, path string) {
				lock, err := TryLock(path)
				if err != nil {
					t.Fatalf("TryLock() error = %v", err)
				}
				if err := lock.Release(); err != nil {
					t.Fatalf("first Release() error = %v", err)
				}
				if err := lock.Release(); err != nil {
					t.Fatalf("second Release() error = %v", err)
				}
				var nilLock *Lock
				if err := nilLock.Release(); err != nil {
					t.Fatalf("nil Release() error = %v", err)
				}
			},
		},
		{
			name: "empty name rejected",
			run: func(t *testing.T, _ string) {
				if _, err := TryLock(""); err == nil {
					t.Fatal("TryLock(\"\") expected error")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, filepath.Join(t.TempDir(), "test.lock"))
		})
	}
}

func TestDefaultName(t *testing.T) {
	t.Setenv("USERNAME", "")
	t.Setenv("USER", "tester")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	got := DefaultName()
	if want := "/run/user/1000/termlaunch-tester.lock"; got != want {
		t.Fatalf("DefaultName() = %q, want %q", got, want)
	}
	if !strings.HasSuffix(DefaultName(), ".lock") {
		t.Fatalf("DefaultName() = %q, want .lock suffix", got)
	}
}
