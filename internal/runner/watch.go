package runner

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/kwgraph/internal/ctxlog"
)

// watch logs a warning whenever one of files changes until the returned
// stop function is called. Runs are realized before execution starts, so a
// change never reaches them; the warning tells the operator so.
func (r *Runner) watch(ctx context.Context, files []string) (stop func()) {
	logger := ctxlog.FromContext(ctx)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("Cannot watch configuration files.", "error", err)
		return func() {}
	}
	for _, f := range files {
		if err := w.Add(f); err != nil {
			logger.Warn("Cannot watch configuration file.", "file", f, "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					logger.Warn("Configuration file changed during the sweep; realized runs keep the configuration they were started with.",
						"file", ev.Name, "op", ev.Op.String())
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("Configuration file watch failed.", "error", err)
			}
		}
	}()

	return func() {
		w.Close()
		<-done
	}
}
