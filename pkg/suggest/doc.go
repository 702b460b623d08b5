// Package suggest drives live search suggestions for a single input box.
//
// An Orchestrator receives keystrokes through Input, waits for the user to
// pause (the debounce interval), runs one search for the latest text and
// publishes the resulting Snapshot to its subscribers:
//
//	o := suggest.New(svc, suggest.WithRecents(suggest.NewMemoryRecents(5)))
//	defer o.Close()
//	id, events := o.Subscribe()
//	defer o.Unsubscribe(id)
//	o.Input("caf")
//
// Every Input bumps a generation counter and cancels the search in flight,
// so a slow response for "ca" can never overwrite the results for "caf".
//
// Select turns a suggestion into a navigation Target (see Resolve), collapses
// the suggestion list and remembers the suggestion title as a recent search.
package suggest
