package services

import (
	"encoding/json"
	"testing"

	"coinarena/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	tests := map[string]struct {
		input string
		exp   game.Inbound
	}{
		"join with name": {
			input: `{"type":"join","payload":{"name":"alice"}}`,
			exp:   game.Join{Name: "alice"},
		},
		"join without payload": {
			input: `{"type":"join"}`,
			exp:   game.Join{},
		},
		"toggle ready": {
			input: `{"type":"toggle_ready","payload":{}}`,
			exp:   game.ToggleReady{},
		},
		"start": {
			input: `{"type":"start"}`,
			exp:   game.Start{},
		},
		"move": {
			input: `{"type":"move","payload":{"ax":0.5,"ay":-1,"aim":1.25}}`,
			exp:   game.Move{AX: 0.5, AY: -1, Aim: 1.25},
		},
		"shoot": {
			input: `{"type":"shoot","payload":{"angle":3.14}}`,
			exp:   game.Shoot{Angle: 3.14},
		},
		"coin claim": {
			input: `{"type":"coin_claim","payload":{"coinId":17}}`,
			exp:   game.CoinClaim{CoinID: 17},
		},
		"ping": {
			input: `{"type":"ping","payload":"ping"}`,
			exp:   game.Ping{},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ev, err := DecodeInbound([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.exp, ev)
		})
	}
}

func TestDecodeInboundRejectsBadFrames(t *testing.T) {
	tests := map[string]struct {
		input   string
		unknown bool
	}{
		"not json":           {input: `{"type":`},
		"unknown type":       {input: `{"type":"teleport","payload":{}}`, unknown: true},
		"missing type":       {input: `{"payload":{}}`, unknown: true},
		"move without body":  {input: `{"type":"move"}`},
		"shoot null payload": {input: `{"type":"shoot","payload":null}`},
		"wrong field type":   {input: `{"type":"coin_claim","payload":{"coinId":"abc"}}`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ev, err := DecodeInbound([]byte(tt.input))
			require.Error(t, err)
			assert.Nil(t, ev)
			if tt.unknown {
				assert.ErrorIs(t, err, ErrUnknownMessage)
			}
		})
	}
}

func TestEncodeOutbound(t *testing.T) {
	data, err := EncodeOutbound(game.JoinResult{Success: true, PlayerID: "p1", RoomID: "r1", Color: "red"})
	require.NoError(t, err)

	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "join_result", msg.Type)
	assert.JSONEq(t, `{"success":true,"playerId":"p1","roomId":"r1","color":"red"}`, string(msg.Payload))

	data, err = EncodeOutbound(game.LobbyUpdate{RoomID: "r1", Phase: game.PhaseLobby, Players: []game.PlayerView{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"lobby_update","payload":{"roomId":"r1","phase":"lobby","players":[]}}`, string(data))
}
