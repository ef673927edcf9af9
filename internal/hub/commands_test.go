package hub

import (
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-toon/internal/devices"
	"github.com/nerrad567/gray-logic-toon/internal/toon"
)

func TestHandleCommandRefresh(t *testing.T) {
	pub := &mockPublisher{}
	bridge := &mockBridge{}
	h := newTestHub(pub)
	h.SetBridge(bridge)

	err := h.HandleCommand("graylogic/command/toon/toon-bridge-01", []byte(`{"id":"cmd-1","channel":"refresh","command":"REFRESH"}`))
	if err != nil {
		t.Fatalf("HandleCommand() error = %v", err)
	}
	if len(bridge.commands) != 1 || bridge.commands[0] != toon.CommandRefresh {
		t.Errorf("bridge commands = %v", bridge.commands)
	}

	acks := pub.On("graylogic/ack/toon/toon-bridge-01")
	if len(acks) != 1 || acks[0].retained {
		t.Fatalf("acks = %+v", acks)
	}
	ack := decode[AckMessage](t, acks[0].payload)
	if ack.CommandID != "cmd-1" || ack.Status != AckAccepted || ack.Protocol != "toon" {
		t.Errorf("ack = %+v", ack)
	}
}

func TestHandleCommandUnsupported(t *testing.T) {
	pub := &mockPublisher{}
	h := newTestHub(pub)
	h.SetBridge(&mockBridge{})

	err := h.HandleCommand("graylogic/command/toon/toon-bridge-01", []byte(`{"channel":"setpoint","command":"21.5"}`))
	if !errors.Is(err, toon.ErrUnsupportedCommand) {
		t.Errorf("HandleCommand() error = %v, want ErrUnsupportedCommand", err)
	}

	ack := decode[AckMessage](t, pub.On("graylogic/ack/toon/toon-bridge-01")[0].payload)
	if ack.Status != AckFailed || ack.Error == "" || ack.CommandID == "" {
		t.Errorf("ack = %+v, want failed with generated id", ack)
	}
}

func TestHandleCommandToChildOrUnknown(t *testing.T) {
	pub := &mockPublisher{}
	h := newTestHub(pub)
	h.SetBridge(&mockBridge{})
	if err := h.AddDevice(devices.NewPlug("washer", "", "u-1", devices.Sinks{})); err != nil {
		t.Fatal(err)
	}

	if err := h.HandleCommand("graylogic/command/toon/washer", []byte(`{"command":"ON"}`)); err == nil {
		t.Error("child device accepted a command")
	}
	if err := h.HandleCommand("graylogic/command/toon/ghost", []byte(`{"command":"ON"}`)); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("unknown device error = %v", err)
	}
	if len(pub.On("graylogic/ack/toon/washer")) != 1 || len(pub.On("graylogic/ack/toon/ghost")) != 1 {
		t.Error("every addressed command should be acknowledged")
	}
}

func TestHandleCommandBadInput(t *testing.T) {
	pub := &mockPublisher{}
	h := newTestHub(pub)

	if err := h.HandleCommand("graylogic/state/toon/x", []byte(`{}`)); err == nil {
		t.Error("non-command topic accepted")
	}
	if err := h.HandleCommand("graylogic/command/toon/toon-bridge-01", []byte(`not json`)); err == nil {
		t.Error("invalid JSON accepted")
	}
	if len(pub.On("graylogic/ack/toon/toon-bridge-01")) != 1 {
		t.Error("invalid payload should still be acknowledged as failed")
	}

	// No bridge attached yet.
	if err := h.HandleCommand("graylogic/command/toon/toon-bridge-01", []byte(`{"command":"REFRESH"}`)); err == nil {
		t.Error("command accepted without a bridge")
	}
}

func TestAckPublishFailureIsLogged(t *testing.T) {
	pub := &mockPublisher{err: errBoom}
	h := newTestHub(pub)
	h.SetBridge(&mockBridge{})

	if err := h.HandleCommand("graylogic/command/toon/toon-bridge-01", []byte(`{"command":"REFRESH"}`)); err != nil {
		t.Errorf("HandleCommand() error = %v; ack failure must not fail the command", err)
	}
}
