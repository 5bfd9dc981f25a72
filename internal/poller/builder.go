// internal/poller/builder.go
package poller

import (
	"log/slog"

	"github.com/tamzrod/caparoc/internal/config"
	"github.com/tamzrod/caparoc/internal/device"
	tmodbus "github.com/tamzrod/caparoc/internal/transport/modbus"
)

// Build constructs a Poller over a new Modbus TCP connection to the
// configured device. Call after config.Normalize.
// The returned closer releases the connection.
func Build(c *config.Config, log *slog.Logger) (*Poller, func() error, error) {
	client, err := tmodbus.New(tmodbus.Config{
		Endpoint: c.Device.Endpoint,
		UnitID:   c.Device.UnitID,
		Timeout:  c.Device.Timeout(),
		FrameLog: tmodbus.FrameLogger(log),
	})
	if err != nil {
		return nil, nil, err
	}

	dev := device.New(client, device.WithLogger(log))

	p, err := New(
		Config{
			Device:   c.Device.Endpoint,
			Interval: c.Export.Interval(),
		},
		dev,
	)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	return p, client.Close, nil
}
