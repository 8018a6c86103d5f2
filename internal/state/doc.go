// Package state holds the most recently loaded vehicle list.
//
// The feed poller and file watcher write into a Store; the UI reads
// Snapshots on its own tick. Snapshots are copies, so the UI never shares a
// slice with a writer.
//
// A failed load keeps the previous list and records the error:
//
//	store.Update(src, vehicles, nil) // replaces the list, clears LastError
//	store.Update(src, nil, err)      // keeps the list, sets LastError
//
// Two consecutive failures mark the snapshot offline.
package state
