package service

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/007-hpr/orbitdeterminator/internal/mqtt"
)

const mqttIngestTimeout = 30 * time.Second

// registerMQTTHandler stores each MQTT payload as one report, using the
// topic as its source.
func registerMQTTHandler(subscriber mqtt.MQTTSubscriber, svc *Service, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(topic string, payload []byte) error {
		logger.Debug("processing iod report",
			"topic", topic,
			"bytes", len(payload),
		)

		ctx, cancel := context.WithTimeout(context.Background(), mqttIngestTimeout)
		defer cancel()

		n, err := svc.Ingest(ctx, topic, bytes.NewReader(payload))
		if err != nil {
			logger.Error("failed to ingest report",
				"topic", topic,
				"malformed", IsMalformed(err),
				"error", err,
			)
			return err
		}

		logger.Debug("successfully stored report",
			"topic", topic,
			"observations", n,
		)
		return nil
	})
}
