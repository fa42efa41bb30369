package transport

import (
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/accelerometer_bridge/internal/bridge"
	"github.com/relabs-tech/accelerometer_bridge/internal/plugin"
)

// Publisher forwards measurement events to an MQTT topic. Messages are
// retained so late subscribers see the last measurement.
type Publisher struct {
	client mqtt.Client
	topic  string
	log    zerolog.Logger
}

func NewPublisher(client mqtt.Client, topic string, log zerolog.Logger) *Publisher {
	return &Publisher{
		client: client,
		topic:  topic,
		log:    log.With().Str("topic", topic).Logger(),
	}
}

// Attach subscribes the publisher to the measurement event of ls.
func (p *Publisher) Attach(ls *plugin.Listeners) *plugin.Handle {
	return ls.Add(bridge.EventMeasurement, p.Publish)
}

// Publish sends one payload without waiting for the broker. Failures
// already known when the call returns are logged.
func (p *Publisher) Publish(payload map[string]any) {
	b, err := json.Marshal(payload)
	if err != nil {
		p.log.Error().Err(err).Msg("json marshal error (measurement)")
		return
	}

	token := p.client.Publish(p.topic, 0, true, b)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			p.log.Warn().Err(err).Msg("MQTT publish error (measurement)")
		}
	default:
	}
}

// Connect dials the broker the way every MQTT component here does.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetOrderMatters(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return client, nil
}
