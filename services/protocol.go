package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"coinarena/game"
)

var ErrUnknownMessage = errors.New("unknown message type")

// Message is the envelope for everything on the socket.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeInbound parses one client frame into its event variant.
func DecodeInbound(data []byte) (game.Inbound, error) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}

	switch msg.Type {
	case "join":
		if len(msg.Payload) == 0 || string(msg.Payload) == "null" {
			return game.Join{}, nil
		}
		return decodePayload[game.Join](msg)
	case "toggle_ready":
		return game.ToggleReady{}, nil
	case "start":
		return game.Start{}, nil
	case "move":
		return decodePayload[game.Move](msg)
	case "shoot":
		return decodePayload[game.Shoot](msg)
	case "coin_claim":
		return decodePayload[game.CoinClaim](msg)
	case "ping":
		return game.Ping{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

func decodePayload[T game.Inbound](msg inboundMessage) (game.Inbound, error) {
	var out T
	if len(msg.Payload) == 0 || string(msg.Payload) == "null" {
		return nil, fmt.Errorf("empty payload for %q", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, &out); err != nil {
		return nil, fmt.Errorf("decoding %q payload: %w", msg.Type, err)
	}
	return out, nil
}

func EncodeOutbound(out game.Outbound) ([]byte, error) {
	data, err := json.Marshal(Message{Type: out.Kind(), Payload: out})
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", out.Kind(), err)
	}
	return data, nil
}
