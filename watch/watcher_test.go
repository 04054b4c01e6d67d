package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startWatcher(t *testing.T, paths []string) (*Watcher, context.CancelFunc) {
	t.Helper()
	w, err := New(paths, 50*time.Millisecond, quietLogger())
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	w.Start(ctx)
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})
	// Give watcher time to set up
	time.Sleep(100 * time.Millisecond)
	return w, cancel
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestNew_DefaultDebounce(t *testing.T) {
	w, err := New(nil, 0, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()
	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}
}

func TestWatcher_ReportsModification(t *testing.T) {
	dir := t.TempDir()
	csv := filepath.Join(dir, "people.csv")
	writeFile(t, csv, "id,name\n1,Ada\n")

	w, _ := startWatcher(t, []string{csv})
	writeFile(t, csv, "id,name\n1,Ada\n2,Grace\n")

	select {
	case changed := <-w.Changes():
		if len(changed) != 1 || changed[0] != csv {
			t.Errorf("changed = %v, want [%s]", changed, csv)
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for change")
	}
}

func TestWatcher_IgnoresUnwatchedFiles(t *testing.T) {
	dir := t.TempDir()
	csv := filepath.Join(dir, "people.csv")
	writeFile(t, csv, "id\n1\n")

	w, _ := startWatcher(t, []string{csv})
	writeFile(t, filepath.Join(dir, "other.csv"), "id\n2\n")

	select {
	case changed := <-w.Changes():
		t.Errorf("unexpected change for unwatched file: %v", changed)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IgnoresUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	csv := filepath.Join(dir, "people.csv")
	writeFile(t, csv, "id\n1\n")

	w, _ := startWatcher(t, []string{csv})
	writeFile(t, csv, "id\n1\n")

	select {
	case changed := <-w.Changes():
		t.Errorf("unexpected change when content unchanged: %v", changed)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_ReportsRemoval(t *testing.T) {
	dir := t.TempDir()
	csv := filepath.Join(dir, "people.csv")
	writeFile(t, csv, "id\n1\n")

	w, _ := startWatcher(t, []string{csv})
	if err := os.Remove(csv); err != nil {
		t.Fatalf("failed to remove: %v", err)
	}

	select {
	case changed := <-w.Changes():
		if len(changed) != 1 || changed[0] != csv {
			t.Errorf("changed = %v, want [%s]", changed, csv)
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for removal")
	}
}

func TestWatcher_Update(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.csv")
	second := filepath.Join(dir, "b.csv")
	writeFile(t, first, "id\n1\n")
	writeFile(t, second, "id\n1\n")

	w, _ := startWatcher(t, []string{first})
	if err := w.Update([]string{second}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	writeFile(t, first, "id\n2\n")
	writeFile(t, second, "id\n2\n")

	select {
	case changed := <-w.Changes():
		if len(changed) != 1 || changed[0] != second {
			t.Errorf("changed = %v, want [%s]", changed, second)
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for change")
	}
}

func TestWatcher_ClosesChangesOnCancel(t *testing.T) {
	dir := t.TempDir()
	csv := filepath.Join(dir, "people.csv")
	writeFile(t, csv, "id\n1\n")

	w, cancel := startWatcher(t, []string{csv})
	cancel()

	select {
	case _, ok := <-w.Changes():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for close")
	}
}

func TestWatcher_UpdateUnwatchesUnusedDirectories(t *testing.T) {
	oldDir := t.TempDir()
	newDir := t.TempDir()
	oldFile := filepath.Join(oldDir, "a.csv")
	newFile := filepath.Join(newDir, "b.csv")
	writeFile(t, oldFile, "id\n1\n")
	writeFile(t, newFile, "id\n1\n")

	w, _ := startWatcher(t, []string{oldFile})
	if err := w.Update([]string{newFile}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	w.mu.Lock()
	watchingOld, watchingNew := w.dirs[oldDir], w.dirs[newDir]
	_, oldHash := w.hashes[oldFile]
	w.mu.Unlock()
	if watchingOld {
		t.Errorf("directory %s still watched", oldDir)
	}
	if !watchingNew {
		t.Errorf("directory %s not watched", newDir)
	}
	if oldHash {
		t.Errorf("hash for %s still recorded", oldFile)
	}
	for _, dir := range w.watcher.WatchList() {
		if dir == oldDir {
			t.Errorf("fsnotify still watches %s", oldDir)
		}
	}

	writeFile(t, oldFile, "id\n2\n")
	select {
	case changed := <-w.Changes():
		t.Errorf("unexpected change after unwatching: %v", changed)
	case <-time.After(300 * time.Millisecond):
	}
}
