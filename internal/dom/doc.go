// Package dom is a small in-process document host: an HTML tree parsed with
// golang.org/x/net/html, CSS selector queries through cascadia, a window with
// capture/bubble event dispatch, mutation observers, and a replaceable network
// transport.
//
// A Document executes work as tasks. Run holds the document lock for the
// duration of one task and delivers queued mutation records to observers
// before releasing it. Tree methods, queries, and DispatchEvent are on-task
// calls: use them inside Run or from a listener or observer callback. Calling
// Run or Window.Dispatch from on-task code deadlocks.
package dom
