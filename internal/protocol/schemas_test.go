package protocol_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"factorycraft.ai/internal/protocol"
)

func TestDecodeCommand_ValidSamples(t *testing.T) {
	samples := map[string]string{
		protocol.TypeAdvanceTick:     `{"type":"ADVANCE_TICK"}`,
		protocol.TypeBuildMachine:    `{"type":"BUILD_MACHINE","x":0,"y":2}`,
		protocol.TypeRemoveMachine:   `{"type":"REMOVE_MACHINE","id":"M1"}`,
		protocol.TypeAssignRecipe:    `{"type":"ASSIGN_RECIPE","machine_id":"M1","recipe_id":"planks"}`,
		protocol.TypeBuildGenerator:  `{"type":"BUILD_GENERATOR","generator_type":"hand_crank","x":3,"y":0}`,
		protocol.TypeRemoveGenerator: `{"type":"REMOVE_GENERATOR","id":"G1"}`,
		protocol.TypeExpandFloor:     `{"type":"EXPAND_FLOOR"}`,
		protocol.TypeSell:            `{"type":"SELL","item":"planks","quantity":5}`,
		protocol.TypeToggleResearch:  `{"type":"TOGGLE_RESEARCH","active":false}`,
		protocol.TypeUnlockRecipe:    `{"type":"UNLOCK_RECIPE","recipe_id":"charcoal"}`,
		protocol.TypeUnblockMachine:  `{"type":"UNBLOCK_MACHINE","id":"M2"}`,
		protocol.TypeToggleMachine:   `{"type":"TOGGLE_MACHINE","id":"M2"}`,
		protocol.TypeExpandStorage:   `{"type":"EXPAND_STORAGE","protocol_version":"1.0"}`,
	}
	if len(samples) != len(protocol.CommandTypes) {
		t.Fatalf("expected a sample per command type")
	}
	for typ, raw := range samples {
		msg, err := protocol.DecodeCommand([]byte(raw))
		if err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		if msg.Type != typ {
			t.Fatalf("expected type %s got %s", typ, msg.Type)
		}
	}
}

func TestDecodeCommand_ZeroCoordinatesSurviveEncode(t *testing.T) {
	msg := protocol.CommandMsg{Type: protocol.TypeBuildMachine, X: protocol.IntPtr(0), Y: protocol.IntPtr(0)}
	b, err := protocol.EncodeCommand(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := protocol.DecodeCommand(b)
	if err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	if got.X == nil || *got.X != 0 || got.Y == nil || *got.Y != 0 {
		t.Fatalf("lost coordinates: %+v", got)
	}
}

func TestDecodeCommand_Rejections(t *testing.T) {
	cases := []struct {
		raw  string
		code string
	}{
		{`{"type":"LAUNCH_ROCKET"}`, protocol.ErrUnknownCommand},
		{`{"type":""}`, protocol.ErrUnknownCommand},
		{`not json`, protocol.ErrProtoBadRequest},
		{`{"type":"BUILD_MACHINE","x":1}`, protocol.ErrProtoBadRequest},
		{`{"type":"SELL","item":"wood"}`, protocol.ErrProtoBadRequest},
		{`{"type":"SELL","item":"wood","quantity":"five"}`, protocol.ErrProtoBadRequest},
		{`{"type":"TOGGLE_RESEARCH"}`, protocol.ErrProtoBadRequest},
		{`{"type":"EXPAND_FLOOR","bonus":true}`, protocol.ErrProtoBadRequest},
		{`{"type":"BUILD_MACHINE","x":1.5,"y":0}`, protocol.ErrProtoBadRequest},
		{`{"type":"ADVANCE_TICK"} {"type":"ADVANCE_TICK"}`, protocol.ErrProtoBadRequest},
	}
	for _, c := range cases {
		_, err := protocol.DecodeCommand([]byte(c.raw))
		var de *protocol.DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("%s: expected DecodeError got %v", c.raw, err)
		}
		if de.Code != c.code {
			t.Fatalf("%s: expected code %s got %s (%s)", c.raw, c.code, de.Code, de.Message)
		}
	}
}

func TestDecodeCommand_LargeCoordinatesAreExact(t *testing.T) {
	raw := fmt.Sprintf(`{"type":"BUILD_MACHINE","x":%d,"y":0}`, math.MaxInt)
	msg, err := protocol.DecodeCommand([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.X == nil || *msg.X != math.MaxInt {
		t.Fatalf("x=%v want %d", msg.X, math.MaxInt)
	}
}
