// Package api
// Author: momentics
//
// Buffer pool accounting shared by the pool and control packages.

package api

// BufferPoolStats aggregates buffer allocation/reuse stats.
type BufferPoolStats struct {
	TotalAlloc int64
	TotalFree  int64
	InUse      int64
	Reused     int64
}
