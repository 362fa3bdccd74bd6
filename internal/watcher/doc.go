// Package watcher reports changes to a small, fixed set of files such as a
// Hexo site's db.json and _config.yml.
//
// fsnotify watches each file's parent directory, so write-to-temp-then-rename
// updates are caught. Where fsnotify fails (network mounts, Docker volumes)
// the watcher polls file metadata instead. Bursts of events are debounced
// into one batch per quiet period.
//
// Usage:
//
//	w, err := watcher.NewFileWatcher(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go func() { _ = w.Start(ctx, []string{"db.json", "_config.yml"}) }()
//
//	for batch := range w.Events() {
//	    // run a sync
//	}
package watcher
