// Package engine implements the bsync behavioral programming engine.
//
// A program coordinates independent strands. At each synchronization point
// a strand declares which events it requests, which it waits for, which it
// blocks, and which interrupt it. The engine selects exactly one unblocked
// requested event per step and resumes every strand that requested or waited
// for it.
//
// ARCHITECTURE:
//
// Strands are iterators (iter.Seq[RuleSet]) pulled one yield at a time with
// iter.Pull. A Program keeps two insertion-ordered collections:
//   - running: strands due to resume this step
//   - pending: strands parked on their last yielded RuleSet
//
// Step:
// 1. Resume every running strand once; it moves to pending or terminates
// 2. Collect candidates (pending requests) and blocked idioms
// 3. The Strategy selects one unblocked candidate, or none
// 4. Pending strands whose request, waitFor or interrupt matches move back
// to running; interrupted strands are stopped first
// 5. A select message is published; Feedback handlers run here
// 6. Repeat while anything is running
//
// Trigger injects an external event as a one-shot strand with priority 0 and
// runs the steps synchronously on the caller's goroutine.
//
// DETERMINISM:
//
// Under the Priority strategy the selected sequence depends only on
// registration order and the trigger sequence. Randomized strategies take an
// explicit seed. Every trigger and selection is stamped from a logical Clock,
// never from wall-clock time.
//
// The engine is single-threaded. EventLoop serializes triggers from many
// goroutines onto one Program.
package engine
