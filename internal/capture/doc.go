// Package capture implements the operator capture workflow: identify the
// worker, scan one code, enter a quantity, submit.
//
// A Session owns the workflow State and is driven from the bubbletea event
// loop. It delegates to two collaborators:
//
//   - Scanner binds a decoder.Capability while the session is scanning and
//     turns decoder callbacks into DecodedMsg values on a per-attachment
//     channel. Each attachment carries a generation number, and messages
//     from a released attachment are dropped.
//   - Gateway sends the completed record through a submit.Client, one
//     request at a time, and reports back with SubmitResultMsg.
//
// Every asynchronous result re-enters through Session.Update, so State is
// only ever touched by one goroutine.
package capture
