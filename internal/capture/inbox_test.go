package capture

import (
	"context"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, testImage(color.White)))
	require.NoError(t, f.Close())
}

func TestIsImageFile(t *testing.T) {
	require.True(t, IsImageFile("a.JPG"))
	require.True(t, IsImageFile("/x/y.png"))
	require.False(t, IsImageFile("notes.txt"))
	require.False(t, IsImageFile("png"))
}

func TestInbox_Run(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "before.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0644))

	var mu sync.Mutex
	var seen []string
	inbox := NewInbox(dir, func(ctx context.Context, path string) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, filepath.Base(path))
		if filepath.Base(path) == "broken.png" {
			return errors.New("not an image")
		}
		return nil
	})
	inbox.Settle = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- inbox.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "before.png"))
		return os.IsNotExist(err)
	}, 5*time.Second, 10*time.Millisecond, "existing files are imported on start")

	writePNG(t, filepath.Join(dir, "after.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("nope"), 0644))

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "after.png"))
		return os.IsNotExist(err)
	}, 5*time.Second, 10*time.Millisecond, "new files are imported")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, s := range seen {
			if s == "broken.png" {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	_, err := os.Stat(filepath.Join(dir, "broken.png"))
	require.NoError(t, err, "failed imports stay in the inbox")
	_, err = os.Stat(filepath.Join(dir, "readme.txt"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotContains(t, seen, "readme.txt")
}

func TestInbox_WatchStopsWhenEventsClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late.png")
	writePNG(t, path)

	var mu sync.Mutex
	calls := 0
	inbox := NewInbox(dir, func(ctx context.Context, path string) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil
	})
	inbox.Settle = 10 * time.Millisecond

	events := make(chan fsnotify.Event, 1)
	errs := make(chan error)
	events <- fsnotify.Event{Name: path, Op: fsnotify.Create}
	close(events)

	require.NoError(t, inbox.watch(context.Background(), events, errs))

	// the pending file is dropped, not processed after watch returned
	time.Sleep(5 * inbox.Settle)
	mu.Lock()
	defer mu.Unlock()
	require.Zero(t, calls)
	require.FileExists(t, path)
}

func TestDeliver(t *testing.T) {
	ready := make(chan string, 1)
	done := make(chan struct{})

	require.True(t, deliver(ready, done, "a.png"))
	require.Equal(t, "a.png", <-ready)

	// nobody reads ready any more
	ready <- "full"
	close(done)
	returned := make(chan bool)
	go func() { returned <- deliver(ready, done, "b.png") }()
	select {
	case ok := <-returned:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("deliver blocked after the loop stopped")
	}
}
