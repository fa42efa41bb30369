package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/accelerometer_bridge/internal/accel"
	"github.com/relabs-tech/accelerometer_bridge/internal/orientation"
	"github.com/relabs-tech/accelerometer_bridge/internal/plugin"
	"github.com/relabs-tech/accelerometer_bridge/internal/transport"
)

// FormatMeasurement renders one console line.
func FormatMeasurement(m accel.Measurement) string {
	t := orientation.FromMeasurement(m)
	return fmt.Sprintf(
		"[ACCEL] x=%+7.3f y=%+7.3f z=%+7.3f |a|=%6.3f  ROLL=%6.2f  PITCH=%6.2f",
		m.X, m.Y, m.Z, m.Magnitude(), t.Roll, t.Pitch,
	)
}

func decodeMeasurement(data map[string]any) accel.Measurement {
	f := func(k string) float64 {
		v, _ := data[k].(float64)
		return v
	}
	return accel.Measurement{X: f("x"), Y: f("y"), Z: f("z")}
}

// RunConsole starts updates on the bridge at baseURL and prints every
// measurement event until ctx is cancelled.
func RunConsole(ctx context.Context, baseURL string, out io.Writer, log zerolog.Logger) error {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return fmt.Errorf("invalid bridge url: %w", err)
	}

	start := base.String() + "/plugins/" + plugin.AccelerometerName + "/startMeasurementUpdates"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, start, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to start updates: %w", err)
	}
	defer resp.Body.Close()

	var res plugin.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return fmt.Errorf("failed to start updates: %s: unreadable response: %w", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK || !res.OK() {
		return fmt.Errorf("failed to start updates: %s: %s", resp.Status, res.Error)
	}

	ws := *base
	ws.Scheme = "ws"
	if base.Scheme == "https" {
		ws.Scheme = "wss"
	}
	ws.Path += "/plugins/" + plugin.AccelerometerName + "/events"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, ws.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket dial error: %w", err)
	}
	defer conn.Close()
	log.Info().Str("url", ws.String()).Msg("console: subscribed to measurement events")

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var msg transport.EventMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("console: shutting down")
				return nil
			}
			return fmt.Errorf("websocket read error: %w", err)
		}
		fmt.Fprintln(out, FormatMeasurement(decodeMeasurement(msg.Data)))
	}
}

// RunConsoleMQTT prints measurements published on topic by a bridge
// running with mqtt.measurement_topic set.
func RunConsoleMQTT(ctx context.Context, broker, clientID, topic string, out io.Writer, log zerolog.Logger) error {
	client, err := transport.Connect(broker, clientID)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Info().Str("broker", broker).Msg("console: connected to MQTT broker")

	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var m accel.Measurement
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Warn().Err(err).Msg("console: measurement unmarshal error")
			return
		}
		fmt.Fprintln(out, FormatMeasurement(m))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Info().Str("topic", topic).Msg("console: subscribed")

	<-ctx.Done()
	log.Info().Msg("console: shutting down")
	return nil
}
