// Package fetch implements the fetch-state controller: one authoritative
// request per view, automatic supersession of stale requests, and a
// Idle/Loading/Loaded/Failed state machine exposed to the presentation layer.
//
// A Controller owns at most one live Handle. Submitting new parameters cancels
// the previous handle before the new request is dispatched, and a cancelled
// handle's late result never reaches the view state. Identical consecutive
// parameter records are not re-requested. Failures are surfaced as
// Failed(message) with no retry; callers recover by changing parameters or
// calling Refresh.
//
// Observers either poll State, block on the channel returned by Snapshot
// (closed on the next transition), or register an OnChange callback.
package fetch
