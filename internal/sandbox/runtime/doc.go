// Package runtime runs a mini-app's script once, server side, before the app
// reaches the feed.
//
// The browser is the real execution environment; preflight only answers
// "does this script blow up on load?". A goja VM gets a DOM proxy built from
// the app's own markup (goquery), console capture, timers that never fire
// and no network globals. After the top-level script it fires
// DOMContentLoaded and load listeners, then optionally each interaction
// listener once with a stub event. A watchdog interrupts the VM when the
// wall clock budget runs out or the heap grows past MaxHeapGrowth.
//
// Example Usage:
//
//	pool, _ := runtime.NewPool(runtime.DefaultConfig(), 4)
//	defer pool.Close()
//
//	res, err := pool.Preflight(ctx, runtime.Content{HTML: app.HTMLContent, JS: app.JSContent})
//	if err == nil && !res.OK {
//		// res.Errors lists exceptions with phase and line
//	}
package runtime
