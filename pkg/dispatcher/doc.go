// Package dispatcher fans the inspector out to every running execution
// context with a bounded worker pool and collects one report per context.
// A context that errors, panics or times out is recorded as a failure and
// never affects the reports of the others.
package dispatcher
