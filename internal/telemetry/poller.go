// internal/telemetry/poller.go
package telemetry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"gcu-service/internal/model"
	"gcu-service/internal/service"
)

// Sampler reads and publishes live values
type Sampler interface {
	Sample(ctx context.Context) (*model.TelemetrySample, error)
	PublishTelemetry(sample *model.TelemetrySample)
}

// Poller samples the device at a fixed interval while it is connected
type Poller struct {
	sampler  Sampler
	interval time.Duration
	logger   *zap.Logger
}

// NewPoller creates a new telemetry poller
func NewPoller(sampler Sampler, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		sampler:  sampler,
		interval: interval,
		logger:   logger.With(zap.String("component", "telemetry")),
	}
}

// Run polls until ctx is done
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("Telemetry poller started", zap.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Telemetry poller stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	sample, err := p.sampler.Sample(ctx)
	if err != nil {
		if !errors.Is(err, service.ErrNotConnected) && ctx.Err() == nil {
			p.logger.Warn("Telemetry sample failed", zap.Error(err))
		}
		return
	}
	p.sampler.PublishTelemetry(sample)
}
