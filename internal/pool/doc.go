// Package pool reuses copy buffers for streaming transfers.
//
// Transfers between a remote body and a local file go through Copy, which draws a
// buffer sized for the expected payload and reports destination failures as
// *WriteError so callers can tell local and remote faults apart.
package pool
