package devices

import (
	"fmt"

	"github.com/nerrad567/gray-logic-toon/internal/infrastructure/config"
)

// New creates the device declared by cfg.
//
// Returns:
//   - Device: A Display or Plug wired to sinks
//   - error: ErrUnknownType or ErrInvalidDevice
func New(cfg config.DeviceConfig, sinks Sinks) (Device, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidDevice)
	}

	switch cfg.Type {
	case config.DeviceTypeDisplay:
		return NewDisplay(cfg.ID, cfg.Name, sinks), nil
	case config.DeviceTypePlug:
		if cfg.DevUUID == "" {
			return nil, fmt.Errorf("%w: plug %s has no dev_uuid", ErrInvalidDevice, cfg.ID)
		}
		return NewPlug(cfg.ID, cfg.Name, cfg.DevUUID, sinks), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
}
