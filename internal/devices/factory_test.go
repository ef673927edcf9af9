package devices

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-toon/internal/infrastructure/config"
)

func TestNew(t *testing.T) {
	d, err := New(config.DeviceConfig{ID: "toon-display", Type: config.DeviceTypeDisplay, Name: "Hall"}, Sinks{})
	require.NoError(t, err)
	assert.IsType(t, &Display{}, d)
	assert.Equal(t, "toon-display", d.ID())
	assert.Equal(t, "Hall", d.Name())

	d, err = New(config.DeviceConfig{ID: "washer", Type: config.DeviceTypePlug, DevUUID: "u-1"}, Sinks{})
	require.NoError(t, err)
	assert.IsType(t, &Plug{}, d)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DeviceConfig
		want error
	}{
		{"missing id", config.DeviceConfig{Type: config.DeviceTypeDisplay}, ErrInvalidDevice},
		{"plug without uuid", config.DeviceConfig{ID: "p", Type: config.DeviceTypePlug}, ErrInvalidDevice},
		{"unknown type", config.DeviceConfig{ID: "x", Type: "thermostat"}, ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, Sinks{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
