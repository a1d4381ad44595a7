// Package progress keeps the counted scheduler state: how many behaviors
// are pending, ready, running and finished. Quiescence is defined directly
// over these counters, so reaching the terminal no-pending-work state is an
// explicit, observable condition instead of an ambient global. Each
// scheduler instance owns its own tracker, which lets several instances
// coexist in one process.
package progress
