package observability

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestMonitoringManager_Snapshot(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mm := NewMonitoringManager(log, func() int { return 3 }, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Given some relay activity
	mm.IncrRelayed()
	mm.IncrRelayed()
	mm.AddDeliveries(3, 1)
	mm.IncrDropped()

	// When the manager runs
	go func() { _ = mm.Run(ctx) }()

	// Then the snapshot reflects it
	req.Eventually(func() bool {
		return mm.GetLatest().MessagesRelayed == 2
	}, time.Second, 10*time.Millisecond)
	stats := mm.GetLatest()
	req.Equal(uint64(3), stats.Deliveries)
	req.Equal(uint64(1), stats.FailedDeliveries)
	req.Equal(uint64(1), stats.DroppedJobs)
	req.Equal(3, stats.Rooms)
	req.False(stats.UpdatedAt.IsZero())
}

func TestMonitoringManager_Nil_Is_Noop(t *testing.T) {
	var mm *MonitoringManager

	require.NotPanics(t, func() {
		mm.IncrRelayed()
		mm.AddDeliveries(1, 1)
		mm.IncrDropped()
	})
}
