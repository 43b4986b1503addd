// Package eventloop provides a fixed-rate cooperative task loop.
//
// # Overview
//
// A Loop owns an ordered set of Tasks and ticks every live task once per
// frame at a configured target frame rate. Tasks are single-threaded and
// cooperative: they run in registration order, never in parallel, and must
// not block inside Tick. After the tick pass the loop sleeps for whatever is
// left of the frame budget; when a frame overruns, the loop simply starts the
// next frame immediately and records the negative slack for diagnostics.
// There is no catch-up: missed budget is never compensated.
//
// # Task lifecycle
//
// Each task moves through New -> Setup -> Running -> Finished. Setup runs
// exactly once before the first tick, Finish runs exactly once when a task
// signals completion (Tick returning false), is unscheduled, or the loop
// shuts down. Both hooks are idempotent from the loop's point of view: the
// lifecycle guard makes repeated invocations no-ops.
//
// # Mutation during a frame
//
// A task may call Schedule or Unschedule from inside its own Tick. The tick
// pass iterates over a snapshot taken at the frame start, so a task scheduled
// during frame N is first ticked in frame N+1 and an unscheduled task stops
// receiving ticks immediately after the in-flight pass.
//
// # Errors
//
// A Setup failure aborts the run before any ticking starts (later tasks may
// depend on ordering guarantees from earlier ones). Tick and Finish errors
// are isolated to the offending task: the frame's remaining tasks still run,
// teardown always covers every task, and Run returns all collected errors
// joined together after teardown completes.
package eventloop
