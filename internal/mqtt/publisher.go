package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/007-hpr/orbitdeterminator/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher sends IOD reports on behalf of an observer.
type Publisher struct {
	client    mqtt.Client
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	p := &Publisher{
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := newClientOptions(cfg, cfg.MQTTClientID)
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p
}

// Connect waits for the broker connection, honouring ctx and Disconnect.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return errStopped
	default:
	}
	if p.IsConnected() {
		return nil
	}
	return waitConnect(ctx, p.client, p.client.Connect(), p.stopCh)
}

// PublishReport sends lines as one newline-joined message on the observer's
// report topic.
func (p *Publisher) PublishReport(observer string, lines []string) error {
	if observer == "" || strings.ContainsAny(observer, "/+#") {
		return fmt.Errorf("invalid observer id %q", observer)
	}
	if len(lines) == 0 {
		return errors.New("empty report")
	}
	if !p.IsConnected() {
		return errors.New("mqtt client not connected")
	}

	topic := ReportTopic(observer)
	payload := strings.Join(lines, "\n") + "\n"

	token := p.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if token.Error() != nil {
		p.logger.Error("failed to publish report", "topic", topic, "error", token.Error())
		return fmt.Errorf("publish report: %w", token.Error())
	}

	p.logger.Debug("published report", "topic", topic, "lines", len(lines))
	return nil
}

// IsConnected returns whether the client is connected.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect stops the publisher. Idempotent; after it Connect fails.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.client.Disconnect(250)
	p.setConnected(false)
	p.logger.Info("mqtt disconnected")
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
