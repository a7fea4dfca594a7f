// Package models holds the JSON shapes parqd's handlers serialize.
package models

import "time"

// StatusResponse is the /health response body.
type StatusResponse struct {
	Status string `json:"status"`
}

// ResolveResponse is the /resolve response body on success.
type ResolveResponse struct {
	Hostname    string `json:"hostname"`
	Address     string `json:"address"`
	TTL         uint32 `json:"ttl"`
	ServerIndex int    `json:"server_index"`
}

// ResolveErrorResponse is the /resolve response body on failure.
type ResolveErrorResponse struct {
	Hostname string `json:"hostname"`
	Kind     string `json:"kind"`
	Error    string `json:"error"`
}

// MemoryStats mirrors gopsutil's virtual memory snapshot, trimmed to the
// fields worth surfacing over the wire.
type MemoryStats struct {
	TotalMB     float64 `json:"total_mb"`
	FreeMB      float64 `json:"free_mb"`
	UsedMB      float64 `json:"used_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// CPUStats mirrors gopsutil's CPU percent snapshot.
type CPUStats struct {
	NumCPU      int     `json:"num_cpu"`
	UsedPercent float64 `json:"used_percent"`
	IdlePercent float64 `json:"idle_percent"`
}

// ResolutionStats summarizes counters the handler layer tracks across
// every call to the engine.
type ResolutionStats struct {
	Total      uint64 `json:"total"`
	Successful uint64 `json:"successful"`
	NXDomain   uint64 `json:"nxdomain"`
	Failed     uint64 `json:"failed"`
}

// ServerStatsResponse is the /stats response body.
type ServerStatsResponse struct {
	Uptime        string          `json:"uptime"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     time.Time       `json:"start_time"`
	CPU           CPUStats        `json:"cpu"`
	Memory        MemoryStats     `json:"memory"`
	Resolutions   ResolutionStats `json:"resolutions"`
}
