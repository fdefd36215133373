package workers

import (
	"context"
	"log/slog"
	"reflect"
	"time"
)

// saturationRatio is the fill level above which a queue is reported as a warning.
const saturationRatio = 0.8

type NamedChannel struct {
	Name    string
	Channel any
}

// ChannelCapacityWorker periodically samples the length of the relay queues.
// Reading len(channel) and cap(channel) is non-blocking, so this won't interfere
// with producers or consumers. Queues close to saturation are logged as warnings
// since a full queue drops side-channel jobs.
type ChannelCapacityWorker struct {
	log            *slog.Logger
	channels       []NamedChannel
	metricInterval time.Duration
}

func NewChannelCapacityWorker(log *slog.Logger, channels []NamedChannel, metricInterval time.Duration) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{log: log, channels: channels, metricInterval: metricInterval}
}

func (w ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping channel capacity sampling")
			return nil
		case <-ticker.C:
			w.sample()
		}
	}
}

func (w ChannelCapacityWorker) sample() {
	for _, nc := range w.channels {
		v := reflect.ValueOf(nc.Channel)
		if v.Kind() != reflect.Chan {
			w.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		capacity, length := v.Cap(), v.Len()
		if capacity > 0 && float64(length) >= saturationRatio*float64(capacity) {
			w.log.Warn("Queue close to saturation", "name", nc.Name, "length", length, "capacity", capacity)
			continue
		}
		w.log.Debug("Queue sampled", "name", nc.Name, "length", length, "capacity", capacity)
	}
}
