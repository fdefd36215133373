package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestChannelCapacityWorker_Samples_Until_Done(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given a saturated queue, an empty one and something that is not a channel
	full := make(chan NotifyJob, 2)
	full <- NotifyJob{}
	full <- NotifyJob{}
	worker := NewChannelCapacityWorker(log, []NamedChannel{
		{Name: "notify", Channel: (<-chan NotifyJob)(full)},
		{Name: "activity", Channel: make(chan ActivityJob, 4)},
		{Name: "broken", Channel: 42},
	}, 5*time.Millisecond)

	// When it runs for a few ticks
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := worker.Run(ctx)

	// Then it stops cleanly and never drains the queues
	req.NoError(err)
	req.Len(full, 2)
}
