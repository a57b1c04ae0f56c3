// internal/remoteio/builder.go
package remoteio

import (
	"time"

	cfg "github.com/tamzrod/shaft-blaster/internal/config"
	rmodbus "github.com/tamzrod/shaft-blaster/internal/remoteio/modbus"
)

// Build constructs a Bank from config and wires the Modbus client lifecycle.
// Connection failures at startup are fatal to the caller; no retries here.
func Build(rc cfg.RemoteIOConfig) (*Bank, func() error, error) {
	client, err := rmodbus.NewEndpointClient(rmodbus.Config{
		Endpoint: rc.Endpoint,
		Timeout:  time.Duration(rc.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}

	b, err := New(
		Config{
			Name:       rc.Endpoint,
			UnitID:     rc.UnitID,
			InputBase:  rc.InputBase,
			InputCount: rc.InputCount,
		},
		client,
	)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	return b, client.Close, nil
}
