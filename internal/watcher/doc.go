// Package watcher reports changes to a small set of files, such as an index
// and its manifest, so that long-running hosts can drop cached state.
//
// Watching is event based through fsnotify with a polling fallback for
// filesystems where inotify is unavailable. The parent directories are
// watched rather than the files themselves, because index writers replace
// files by rename and a watch on the old inode would go silent.
//
// Events are debounced: a rebuild that writes a temp file, renames it and
// then writes the manifest produces a single callback.
//
//	w, err := watcher.New([]string{indexPath, manifestPath}, watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	go w.Run(ctx, func(events []watcher.FileEvent) {
//	    idx.Invalidate()
//	})
package watcher
