package server

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// NodeMetrics holds granular health metrics for the node.
type NodeMetrics struct {
	UptimeSeconds    int64   `json:"uptime_seconds"`
	BlockHeight      uint64  `json:"block_height"`
	PendingTxs       int     `json:"pending_txs"`
	CPULoadPercent   float64 `json:"cpu_load_percent"`
	HeapMB           float64 `json:"heap_mb"`
	SystemMemPercent float64 `json:"system_mem_percent"`
	DiskFreeMB       float64 `json:"disk_free_mb"`
	TipAgeSeconds    int64   `json:"tip_age_seconds"`
	LastBlockTime    string  `json:"last_block_time"`
}

// GetNodeMetrics returns current health metrics for the node. Host
// figures that cannot be read are left at zero.
func (s *Server) GetNodeMetrics() NodeMetrics {
	tip := s.chain.Tip()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	metrics := NodeMetrics{
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		BlockHeight:   tip.Index,
		PendingTxs:    len(s.chain.PendingTransactions()),
		HeapMB:        float64(m.Alloc) / (1024 * 1024),
		TipAgeSeconds: int64(time.Since(tip.Timestamp).Seconds()),
		LastBlockTime: tip.Timestamp.UTC().Format(time.RFC3339),
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		metrics.CPULoadPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		metrics.SystemMemPercent = vm.UsedPercent
	}
	dir := s.cfg.DataDir
	if dir == "" {
		dir = "."
	}
	if usage, err := disk.Usage(dir); err == nil {
		metrics.DiskFreeMB = float64(usage.Free) / (1024 * 1024)
	}
	return metrics
}

// stallAfter is how long transactions may wait without a new block before
// the node reports itself stalled.
const stallAfter = time.Minute

func (m NodeMetrics) status() string {
	switch {
	case m.BlockHeight == 0 && m.PendingTxs == 0:
		return "initializing"
	case m.PendingTxs > 0 && m.TipAgeSeconds > int64(stallAfter/time.Second):
		return "stalled"
	default:
		return "healthy"
	}
}
