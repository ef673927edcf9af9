package hub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-toon/internal/infrastructure/mqtt"
)

// HandleCommand is the mqtt.MessageHandler for graylogic/command/toon/#.
//
// Commands addressed to the bridge ID go to the bridge. Child devices are
// read-only, so commands to them are refused. Every command that names a
// device gets an ack; the returned error is only for logging.
func (h *Hub) HandleCommand(topic string, payload []byte) error {
	deviceID, ok := mqtt.CommandDevice(topic)
	if !ok {
		return fmt.Errorf("hub: not a command topic: %s", topic)
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		h.ack(deviceID, CommandMessage{ID: uuid.NewString()}, fmt.Errorf("invalid command payload: %w", err))
		return fmt.Errorf("hub: decoding command: %w", err)
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	err := h.dispatch(deviceID, cmd)
	h.ack(deviceID, cmd, err)
	return err
}

func (h *Hub) dispatch(deviceID string, cmd CommandMessage) error {
	if deviceID == h.bridgeID {
		h.mu.RLock()
		bridge := h.bridge
		h.mu.RUnlock()

		if bridge == nil {
			return fmt.Errorf("hub: bridge not attached")
		}
		return bridge.HandleCommand(cmd.Channel, cmd.Command)
	}

	if _, ok := h.Device(deviceID); ok {
		return fmt.Errorf("hub: device %s does not accept commands", deviceID)
	}
	return fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
}

func (h *Hub) ack(deviceID string, cmd CommandMessage, cmdErr error) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return
	}

	msg := AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  deviceID,
		Status:    AckAccepted,
		Protocol:  Protocol,
	}
	if cmdErr != nil {
		msg.Status = AckFailed
		msg.Error = cmdErr.Error()
	}

	payload, err := json.Marshal(msg)
	if err == nil {
		err = h.publisher.Publish(mqtt.Topics{}.Ack(deviceID), payload, 1, false)
	}
	if err != nil {
		h.logError("failed to publish command ack", err)
	}
}
