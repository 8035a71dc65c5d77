package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultSettle is how long a file must stay unchanged before it is imported
const DefaultSettle = 500 * time.Millisecond

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// IsImageFile reports whether name has an image extension the cameras decode
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// InboxHandler imports one file. The file is deleted when it returns nil.
type InboxHandler func(ctx context.Context, path string) error

// Inbox watches a directory and hands every image file dropped there to a handler
type Inbox struct {
	Dir    string
	Settle time.Duration

	handle InboxHandler
}

// NewInbox creates an Inbox over dir
func NewInbox(dir string, handle InboxHandler) *Inbox {
	return &Inbox{Dir: dir, Settle: DefaultSettle, handle: handle}
}

// Run imports the files already in the inbox, then watches it until ctx is done
func (in *Inbox) Run(ctx context.Context) error {
	if err := os.MkdirAll(in.Dir, 0755); err != nil {
		return fmt.Errorf("while creating inbox dir '%s': %w", in.Dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create inbox watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(in.Dir); err != nil {
		return fmt.Errorf("failed to watch inbox '%s': %w", in.Dir, err)
	}
	log.Ctx(ctx).Info().Str("dir", in.Dir).Msg("inbox: watching")

	entries, err := os.ReadDir(in.Dir)
	if err != nil {
		return fmt.Errorf("while listing inbox '%s': %w", in.Dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && IsImageFile(e.Name()) {
			in.process(ctx, filepath.Join(in.Dir, e.Name()))
		}
	}

	return in.watch(ctx, watcher.Events, watcher.Errors)
}

// watch debounces events per file and processes each once it settles. It
// returns when ctx is done or either channel is closed.
func (in *Inbox) watch(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	settle := in.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	pending := make(map[string]*time.Timer)
	ready := make(chan string)
	// closed on return so timers that already fired do not block
	done := make(chan struct{})
	defer func() {
		close(done)
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Ctx(ctx).Info().Str("dir", in.Dir).Msg("inbox: stopped")
			return nil

		case event, ok := <-events:
			if !ok {
				return nil
			}
			if !IsImageFile(event.Name) {
				continue
			}
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create, event.Op&fsnotify.Write == fsnotify.Write:
				name := event.Name
				if t, ok := pending[name]; ok {
					t.Reset(settle)
					continue
				}
				pending[name] = time.AfterFunc(settle, func() {
					deliver(ready, done, name)
				})
			case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
				if t, ok := pending[event.Name]; ok {
					t.Stop()
					delete(pending, event.Name)
				}
			}

		case name := <-ready:
			delete(pending, name)
			in.process(ctx, name)

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			log.Ctx(ctx).Warn().Err(err).Msg("inbox: watcher error")
		}
	}
}

// deliver hands name to the watch loop, or gives up once the loop is gone
func deliver(ready chan<- string, done <-chan struct{}, name string) bool {
	select {
	case ready <- name:
		return true
	case <-done:
		return false
	}
}

func (in *Inbox) process(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := in.handle(ctx, path); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("file", path).Msg("inbox: import failed, leaving file in place")
		return
	}
	if err := os.Remove(path); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("file", path).Msg("inbox: could not remove imported file")
		return
	}
	log.Ctx(ctx).Info().Str("file", path).Msg("inbox: imported")
}
