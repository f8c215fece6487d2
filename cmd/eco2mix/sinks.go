package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jgoulah/eco2mix/internal/config"
	"github.com/jgoulah/eco2mix/internal/publisher"
	"github.com/jgoulah/eco2mix/internal/sensors"
	"github.com/jgoulah/eco2mix/pkg/models"
)

// sink receives every snapshot the daemon produces
type sink interface {
	Publish(ctx context.Context, snapshot *models.Snapshot) error
	MarkUnavailable(ctx context.Context) error
}

// openSinks creates a publisher for every enabled Home Assistant transport.
// The returned func closes them.
func openSinks(cfg *config.Config, selected []sensors.Description, logger logrus.FieldLogger) ([]sink, func(), error) {
	var sinks []sink
	closers := []func(){}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.MQTT.Enabled {
		pub, err := publisher.NewMQTT(cfg, selected, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("creating MQTT publisher: %w", err)
		}
		sinks = append(sinks, pub)
		closers = append(closers, pub.Close)
	}

	if cfg.HomeAssistant.Enabled {
		pub, err := publisher.NewHTTP(cfg.HomeAssistant, selected, logger)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("creating Home Assistant publisher: %w", err)
		}
		sinks = append(sinks, pub)
	}

	return sinks, closeAll, nil
}

// publishAll pushes the snapshot to every sink in parallel
func publishAll(ctx context.Context, sinks []sink, snapshot *models.Snapshot) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range sinks {
		s := s
		g.Go(func() error {
			return s.Publish(gctx, snapshot)
		})
	}
	return g.Wait()
}

// markAllUnavailable flags the device offline on every sink
func markAllUnavailable(ctx context.Context, sinks []sink) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range sinks {
		s := s
		g.Go(func() error {
			return s.MarkUnavailable(gctx)
		})
	}
	return g.Wait()
}
