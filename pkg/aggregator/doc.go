// Package aggregator computes the four router health counters of a run.
package aggregator
