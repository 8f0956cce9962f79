package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func makeWorkDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "job_test")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "video.mp4"), []byte("data"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return dir
}

func waitGone(t *testing.T, path string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%s still exists after %v", path, timeout)
}

func TestCleanerRemovesDirWithContents(t *testing.T) {
	cleaner := NewCleaner(10 * time.Millisecond)
	dir := makeWorkDir(t)

	cleaner.Schedule(dir)

	if got := cleaner.Outstanding(); got != 1 {
		t.Errorf("expected 1 outstanding removal, got %d", got)
	}

	waitGone(t, dir, time.Second)

	deadline := time.Now().Add(time.Second)
	for cleaner.Outstanding() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := cleaner.Outstanding(); got != 0 {
		t.Errorf("expected registry drained, got %d", got)
	}
}

// Повторное планирование той же директории не создает второго таймера.
func TestCleanerScheduleIdempotent(t *testing.T) {
	cleaner := NewCleaner(time.Hour)
	dir := makeWorkDir(t)

	cleaner.Schedule(dir)
	cleaner.Schedule(dir)

	if got := cleaner.Outstanding(); got != 1 {
		t.Errorf("expected 1 outstanding removal, got %d", got)
	}

	cleaner.Stop()
}

// Удаление уже исчезнувшей директории — не ошибка, только запись в лог.
func TestCleanerDoubleRemoval(t *testing.T) {
	cleaner := NewCleaner(10 * time.Millisecond)
	dir := makeWorkDir(t)

	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("pre-removal failed: %v", err)
	}

	cleaner.Schedule(dir)
	waitGone(t, dir, time.Second)
	// os.RemoveAll по несуществующему пути возвращает nil — паник нет
	cleaner.remove(dir)
}

func TestCleanerStopRemovesImmediately(t *testing.T) {
	cleaner := NewCleaner(time.Hour)
	dir := makeWorkDir(t)

	cleaner.Schedule(dir)
	cleaner.Stop()

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("expected %s removed on Stop, stat err = %v", dir, err)
	}
	if got := cleaner.Outstanding(); got != 0 {
		t.Errorf("expected empty registry after Stop, got %d", got)
	}
}
