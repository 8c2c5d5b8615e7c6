package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestHealthMonitoringWorker_Samples_Current_Process(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitor := observability.NewMonitoringManager(log, nil)
	worker := NewHealthMonitoringWorker(log, monitor, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// Then the snapshot eventually carries process stats
	req.Eventually(func() bool {
		stats := monitor.GetLatest()
		return stats.ProcessThreads > 0 && stats.NumGoroutine > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	req.NoError(<-done)
}

func TestHealthMonitoringWorker_Zero_Interval_Disables_Sampling(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	monitor := observability.NewMonitoringManager(log, nil)

	for _, interval := range []time.Duration{0, -time.Second} {
		worker := NewHealthMonitoringWorker(log, monitor, interval)

		// When the worker runs with a non positive interval
		var err error
		req.NotPanics(func() { err = worker.Run(context.Background()) })

		// Then it finishes cleanly and nothing is sampled
		req.NoError(err)
		req.Zero(monitor.GetLatest().ProcessThreads)
	}
}

func TestSupervisor_Does_Not_Restart_Disabled_Health_Worker(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	supervisor := NewSupervisor(log, time.Millisecond)
	supervisor.Add(NewHealthMonitoringWorker(log, observability.NewMonitoringManager(log, nil), 0))

	// Run returns once every worker finished, a restart loop would block it
	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		supervisor.Stop()
		req.Fail("disabled health worker kept being restarted")
	}
}
