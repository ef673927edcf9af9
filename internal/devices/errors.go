package devices

import "errors"

var (
	// ErrPlugNotFound is returned when a snapshot does not contain the plug.
	ErrPlugNotFound = errors.New("devices: plug not found in snapshot")

	// ErrNoDisplayData is returned when a snapshot has no display readings.
	ErrNoDisplayData = errors.New("devices: snapshot has no display readings")

	// ErrUnknownType is returned by New for unsupported device types.
	ErrUnknownType = errors.New("devices: unknown device type")

	// ErrInvalidDevice is returned by New for incomplete device config.
	ErrInvalidDevice = errors.New("devices: invalid device configuration")

	// ErrPublish wraps a failed state publish.
	ErrPublish = errors.New("devices: publishing state failed")

	// ErrHistory wraps a failed history write.
	ErrHistory = errors.New("devices: recording history failed")
)
