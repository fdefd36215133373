package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// RelayStats is the snapshot served to operators.
type RelayStats struct {
	MessagesRelayed   uint64    `json:"messages_relayed"`
	MessagesPerSecond float64   `json:"messages_per_second"`
	Deliveries        uint64    `json:"deliveries"`
	FailedDeliveries  uint64    `json:"failed_deliveries"`
	DroppedJobs       uint64    `json:"dropped_jobs"`
	Rooms             int       `json:"rooms"`
	AllocMemMb        uint64    `json:"alloc_mem_mb"`
	NumGC             uint32    `json:"num_gc"`
	CPUPercent        float64   `json:"cpu_percent"`
	MemoryPercent     float32   `json:"memory_percent"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// MonitoringManager counts relay activity and publishes a snapshot every interval.
// A nil manager ignores every increment.
type MonitoringManager struct {
	log      *slog.Logger
	rooms    func() int
	interval time.Duration
	self     *process.Process

	relayed   atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64

	mu          sync.RWMutex
	latest      RelayStats
	lastRelayed uint64
	lastCheck   time.Time
}

func NewMonitoringManager(log *slog.Logger, rooms func() int, interval time.Duration) *MonitoringManager {
	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Process metrics unavailable", "error", err)
	}
	return &MonitoringManager{
		log:       log,
		rooms:     rooms,
		interval:  interval,
		self:      self,
		lastCheck: time.Now(),
	}
}

func (mm *MonitoringManager) IncrRelayed() {
	if mm != nil {
		mm.relayed.Add(1)
	}
}

func (mm *MonitoringManager) AddDeliveries(delivered, failed int) {
	if mm == nil {
		return
	}
	mm.delivered.Add(uint64(delivered))
	mm.failed.Add(uint64(failed))
}

func (mm *MonitoringManager) IncrDropped() {
	if mm != nil {
		mm.dropped.Add(1)
	}
}

// Run refreshes the snapshot until ctx is done. It is meant to be supervised.
func (mm *MonitoringManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(mm.interval)
	defer ticker.Stop()
	mm.updateStats()

	for {
		select {
		case <-ctx.Done():
			mm.log.Debug("Monitoring stopped")
			return nil
		case <-ticker.C:
			mm.updateStats()
		}
	}
}

func (mm *MonitoringManager) updateStats() {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	now := time.Now()
	relayed := mm.relayed.Load()
	if duration := now.Sub(mm.lastCheck).Seconds(); duration > 0 {
		mm.latest.MessagesPerSecond = float64(relayed-mm.lastRelayed) / duration
	}
	mm.lastRelayed = relayed
	mm.lastCheck = now

	mm.latest.MessagesRelayed = relayed
	mm.latest.Deliveries = mm.delivered.Load()
	mm.latest.FailedDeliveries = mm.failed.Load()
	mm.latest.DroppedJobs = mm.dropped.Load()
	if mm.rooms != nil {
		mm.latest.Rooms = mm.rooms()
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	mm.latest.AllocMemMb = m.Alloc / 1024 / 1024
	mm.latest.NumGC = m.NumGC
	if mm.self != nil {
		if cpu, err := mm.self.CPUPercent(); err == nil {
			mm.latest.CPUPercent = cpu
		}
		if ram, err := mm.self.MemoryPercent(); err == nil {
			mm.latest.MemoryPercent = ram
		}
	}
	mm.latest.UpdatedAt = now.UTC()

	mm.log.Debug("Relay stats updated",
		"messages_relayed", mm.latest.MessagesRelayed,
		"messages_per_second", mm.latest.MessagesPerSecond,
		"rooms", mm.latest.Rooms,
		"dropped_jobs", mm.latest.DroppedJobs,
	)
}

func (mm *MonitoringManager) GetLatest() RelayStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latest
}
