package observability

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// RelayStats aggregates the counters exposed by the inspection endpoint.
type RelayStats struct {
	MessagesPosted   uint64  `json:"messages_posted"`
	MessagesRejected uint64  `json:"messages_rejected"`
	Delivered        uint64  `json:"delivered"`
	DeliveryFailures uint64  `json:"delivery_failures"`
	PostRate         float64 `json:"post_rate"` // messages per second since last tick
	CreatedSessions  int     `json:"created_sessions"`
	ActiveSessions   int     `json:"active_sessions"`
	AllocMemMb       uint64  `json:"alloc_mem_mb"`
	NumGC            uint32  `json:"num_gc"`
	NumGoroutine     int     `json:"num_goroutine"`
	ProcessCPU       float64 `json:"process_cpu_percent"`
	ProcessRAM       float32 `json:"process_ram_percent"`
	ProcessThreads   int32   `json:"process_threads"`
}

// SessionCounter is satisfied by the session registry.
type SessionCounter interface {
	Count() (created, active int)
}

// MonitoringManager keeps lightweight in-process counters next to the Prometheus collectors.
type MonitoringManager struct {
	log         *slog.Logger
	sessions    SessionCounter
	mu          sync.RWMutex
	latestStats RelayStats

	posted    uint64
	rejected  uint64
	delivered uint64
	failed    uint64
	sinceTick uint64
	LastCheck time.Time
}

func NewMonitoringManager(log *slog.Logger, sessions SessionCounter) *MonitoringManager {
	return &MonitoringManager{
		log:       log,
		sessions:  sessions,
		LastCheck: time.Now(),
	}
}

func (mm *MonitoringManager) IncrPosted() {
	atomic.AddUint64(&mm.posted, 1)
	atomic.AddUint64(&mm.sinceTick, 1)
	MessagesPersisted.Inc()
}

func (mm *MonitoringManager) IncrRejected(reason string) {
	atomic.AddUint64(&mm.rejected, 1)
	MessagesRejected.WithLabelValues(reason).Inc()
}

func (mm *MonitoringManager) AddDeliveries(delivered, failed int) {
	atomic.AddUint64(&mm.delivered, uint64(delivered))
	atomic.AddUint64(&mm.failed, uint64(failed))
	BroadcastDeliveries.WithLabelValues("delivered").Add(float64(delivered))
	BroadcastDeliveries.WithLabelValues("failed").Add(float64(failed))
}

// Listen refreshes the snapshot on every tick until ctx is done.
func (mm *MonitoringManager) Listen(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mm.log.Debug("Monitoring manager stopped")
			return
		case <-ticker.C:
			mm.Refresh()
		}
	}
}

// Refresh recomputes the snapshot immediately.
func (mm *MonitoringManager) Refresh() {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	now := time.Now()
	duration := now.Sub(mm.LastCheck).Seconds()
	count := atomic.SwapUint64(&mm.sinceTick, 0)
	if duration > 0 {
		mm.latestStats.PostRate = float64(count) / duration
	}
	mm.LastCheck = now

	mm.latestStats.MessagesPosted = atomic.LoadUint64(&mm.posted)
	mm.latestStats.MessagesRejected = atomic.LoadUint64(&mm.rejected)
	mm.latestStats.Delivered = atomic.LoadUint64(&mm.delivered)
	mm.latestStats.DeliveryFailures = atomic.LoadUint64(&mm.failed)
	if mm.sessions != nil {
		mm.latestStats.CreatedSessions, mm.latestStats.ActiveSessions = mm.sessions.Count()
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	mm.latestStats.AllocMemMb = m.Alloc / 1024 / 1024
	mm.latestStats.NumGC = m.NumGC
	mm.latestStats.NumGoroutine = runtime.NumGoroutine()

	mm.log.Debug("Stats updated",
		"posted", mm.latestStats.MessagesPosted,
		"delivered", mm.latestStats.Delivered,
		"active_sessions", mm.latestStats.ActiveSessions,
		"mem_mb", mm.latestStats.AllocMemMb,
	)
}

// SetProcessStats records the last OS-level sample of the relay process.
func (mm *MonitoringManager) SetProcessStats(cpu float64, ram float32, threads int32) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.latestStats.ProcessCPU = cpu
	mm.latestStats.ProcessRAM = ram
	mm.latestStats.ProcessThreads = threads
}

func (mm *MonitoringManager) GetLatest() RelayStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latestStats
}
