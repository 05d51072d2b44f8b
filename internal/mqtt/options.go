package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/007-hpr/orbitdeterminator/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var errStopped = errors.New("mqtt client stopped")

// ReportTopic is the topic an observer publishes IOD reports on.
func ReportTopic(observer string) string {
	return fmt.Sprintf("observers/%s/iod", observer)
}

// ObserverFromTopic returns the observer segment of an observers/<id>/iod
// topic, or "" when topic has a different shape.
func ObserverFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "observers" || parts[2] != "iod" {
		return ""
	}
	return parts[1]
}

func newClientOptions(cfg config.Config, clientID string) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(clientID)

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	return opts
}

// waitConnect blocks until token completes, ctx ends or stop is closed.
func waitConnect(ctx context.Context, client mqtt.Client, token mqtt.Token, stop <-chan struct{}) error {
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			client.Disconnect(0)
			return ctx.Err()
		case <-stop:
			client.Disconnect(0)
			return errStopped
		default:
		}
	}
}
