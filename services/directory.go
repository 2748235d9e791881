package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coinarena/game"

	"github.com/redis/go-redis/v9"
)

const (
	roomKeyPrefix  = "room:"
	leaderboardKey = "leaderboard:coins"
	roomTTL        = 2 * time.Hour
)

// RoomDirectory mirrors live room summaries into Redis and keeps the all-time
// coin leaderboard.
type RoomDirectory struct {
	redis *redis.Client
}

func NewRoomDirectory(client *redis.Client) *RoomDirectory {
	return &RoomDirectory{redis: client}
}

type LeaderboardEntry struct {
	Name  string `json:"name"`
	Coins int64  `json:"coins"`
}

func (d *RoomDirectory) Publish(ctx context.Context, info game.RoomInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal room %s: %w", info.ID, err)
	}
	if err := d.redis.Set(ctx, roomKeyPrefix+info.ID, data, roomTTL).Err(); err != nil {
		return fmt.Errorf("failed to store room %s: %w", info.ID, err)
	}
	return nil
}

// Lookup returns nil when the room is not in the directory.
func (d *RoomDirectory) Lookup(ctx context.Context, roomID string) (*game.RoomInfo, error) {
	data, err := d.redis.Get(ctx, roomKeyPrefix+roomID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read room %s: %w", roomID, err)
	}

	var info game.RoomInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room %s: %w", roomID, err)
	}
	return &info, nil
}

func (d *RoomDirectory) Remove(ctx context.Context, roomID string) error {
	if err := d.redis.Del(ctx, roomKeyPrefix+roomID).Err(); err != nil {
		return fmt.Errorf("failed to remove room %s: %w", roomID, err)
	}
	return nil
}

// RecordMatch adds every player's coins from the match to the leaderboard.
func (d *RoomDirectory) RecordMatch(ctx context.Context, end game.MatchEnd) error {
	if len(end.Leaderboard) == 0 {
		return nil
	}
	_, err := d.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, s := range end.Leaderboard {
			pipe.ZIncrBy(ctx, leaderboardKey, float64(s.Coins), s.Name)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update leaderboard for room %s: %w", end.RoomID, err)
	}
	return nil
}

// TopPlayers returns the n best players by total coins.
func (d *RoomDirectory) TopPlayers(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	if n <= 0 {
		n = 10
	}
	zs, err := d.redis.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	out := make([]LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		name, _ := z.Member.(string)
		out = append(out, LeaderboardEntry{Name: name, Coins: int64(z.Score)})
	}
	return out, nil
}
