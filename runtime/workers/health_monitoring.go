package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthMonitoringWorker samples the relay process (CPU, RAM, threads)
// and refreshes the monitoring snapshot on every tick.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	monitor        *observability.MonitoringManager
	metricInterval time.Duration
}

func NewHealthMonitoringWorker(log *slog.Logger, monitor *observability.MonitoringManager,
	metricInterval time.Duration) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{log: log, monitor: monitor, metricInterval: metricInterval}
}

// Run returns nil right away when the interval is not positive, so the supervisor never restarts it.
func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	if w.metricInterval <= 0 {
		w.log.Info("Health monitoring disabled", "metric_interval", w.metricInterval)
		return nil
	}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			w.sample(p)
			w.monitor.Refresh()
		}
	}
}

// sample keeps whatever could be read; a failing probe only zeroes its own value.
func (w *HealthMonitoringWorker) sample(p *process.Process) {
	cpu, err := p.CPUPercent()
	if err != nil {
		w.log.Debug("Error while finding process cpu usage", "err", err)
	}
	ram, err := p.MemoryPercent()
	if err != nil {
		w.log.Debug("Error while finding process ram usage", "err", err)
	}
	threads, err := p.NumThreads()
	if err != nil {
		w.log.Debug("Error while finding process threads", "err", err)
	}
	w.monitor.SetProcessStats(cpu, ram, threads)
}
