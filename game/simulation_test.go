package game

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = time.Second / 30

// startedRoom joins n players, readies the guests and starts the match at t0.
func startedRoom(t *testing.T, n int, mutate func(*Settings)) *Room {
	t.Helper()
	r := newTestRoom(t, mutate)
	for i := 0; i < n; i++ {
		mustJoin(t, r, "")
	}
	for _, p := range r.Roster().Players[1:] {
		r.ToggleReady(p.ID)
	}
	_, ok := r.TryStart("p1", t0)
	require.True(t, ok)
	return r
}

// withState runs f under the room lock so tests can arrange positions.
func withState(r *Room, f func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f()
}

func player(r *Room, id string) PlayerView {
	for _, p := range r.Snapshot(r.lastTick).Players {
		if p.ID == id {
			return p
		}
	}
	return PlayerView{}
}

func TestBoundaryDeathDropsCoinsAndRespawns(t *testing.T) {
	r := startedRoom(t, 1, func(s *Settings) { s.Capacity = 3 })
	s := r.Settings()

	withState(r, func() {
		p := r.players[0]
		p.Coins = 3
		r.coins = r.coins[3:]
		p.Pos = s.FieldCenter.Add(V(400, 0))
	})
	fieldBefore := len(r.Snapshot(t0).Coins)
	require.True(t, r.Ledger().Balanced())

	now := t0.Add(tick)
	end, running := r.Step(now)
	require.True(t, running)
	require.Nil(t, end)

	a := player(r, "p1")
	assert.Equal(t, 0, a.HP)
	assert.False(t, a.Alive)
	assert.Equal(t, 0, a.Coins)
	assert.Equal(t, 10.0, a.RespawnIn)

	snap := r.Snapshot(now)
	assert.Len(t, snap.Coins, fieldBefore+2, "ceil(3/2) coins dropped")
	for _, c := range snap.Coins[fieldBefore:] {
		assert.LessOrEqual(t, V(c.X, c.Y).Dist(s.FieldCenter), s.FieldRadius-s.CoinRadius+1e-9)
	}
	l := r.Ledger()
	assert.Equal(t, 1, l.Lost)
	assert.True(t, l.Balanced())

	// still dead before the countdown elapses
	r.Step(now.Add(5 * time.Second))
	assert.False(t, player(r, "p1").Alive)

	r.Step(now.Add(s.RespawnDelay))
	a = player(r, "p1")
	assert.True(t, a.Alive)
	assert.Equal(t, 5, a.HP)
	assert.Equal(t, s.SpawnPoint(0), V(a.X, a.Y))
	assert.Zero(t, a.RespawnIn)
}

func TestBoundaryDeathWinsOverSameTickBulletHit(t *testing.T) {
	r := startedRoom(t, 2, nil)
	s := r.Settings()

	// p2 drifts over the edge this tick while a p1 bullet arrives at the
	// spot it ends up on
	var landing Vec
	withState(r, func() {
		p := r.players[1]
		p.Coins = 3
		r.coins = r.coins[3:]
		p.Pos = s.FieldCenter.Add(V(379, 0))
		p.Vel = V(5, 0)
		landing = p.Pos.Add(p.Vel.Mul(s.Friction))
		r.bullets = append(r.bullets, &Bullet{
			ID:        99,
			OwnerID:   "p1",
			Color:     r.players[0].Color,
			Pos:       landing.Sub(V(s.BulletSpeed, 0)),
			Vel:       V(s.BulletSpeed, 0),
			CreatedAt: t0,
		})
	})
	require.False(t, s.InField(landing))
	fieldBefore := len(r.Snapshot(t0).Coins)

	_, running := r.Step(t0.Add(tick))
	require.True(t, running)

	b := player(r, "p2")
	assert.False(t, b.Alive)
	assert.Equal(t, 0, b.HP)
	assert.Equal(t, 0, b.Coins)

	snap := r.Snapshot(t0.Add(tick))
	require.Len(t, snap.Bullets, 1, "bullet passes through a player already dead")
	assert.Equal(t, uint64(99), snap.Bullets[0].ID)
	assert.Len(t, snap.Coins, fieldBefore+2, "ceil(3/2) coins dropped")

	l := r.Ledger()
	assert.Equal(t, 1, l.Lost)
	assert.True(t, l.Balanced())
}

func TestDeadPlayerIgnoresInput(t *testing.T) {
	r := startedRoom(t, 1, nil)
	s := r.Settings()
	withState(r, func() { r.players[0].Pos = s.FieldCenter.Add(V(0, 390)) })
	r.Step(t0.Add(tick))

	r.Apply("p1", Move{AX: 1}, t0.Add(2*tick))
	r.Apply("p1", Shoot{Angle: 1}, t0.Add(2*tick))
	before := player(r, "p1")
	r.Step(t0.Add(3 * tick))

	after := player(r, "p1")
	assert.Equal(t, before.X, after.X)
	assert.Empty(t, r.Snapshot(t0.Add(3*tick)).Bullets)
}

func TestCoinContentionGoesToFirstInJoinOrder(t *testing.T) {
	r := startedRoom(t, 2, nil)
	s := r.Settings()
	spot := s.FieldCenter
	withState(r, func() {
		r.coins = []*Coin{
			{ID: 900, Pos: spot},
			{ID: 901, Pos: s.FieldCenter.Add(V(0, 300))},
		}
		for _, p := range r.players {
			p.Pos = spot
		}
	})

	end, _ := r.Step(t0.Add(tick))
	require.Nil(t, end)

	assert.Equal(t, 1, player(r, "p1").Coins)
	assert.Equal(t, 0, player(r, "p2").Coins)
	coins := r.Snapshot(t0).Coins
	require.Len(t, coins, 1)
	assert.Equal(t, uint64(901), coins[0].ID)
}

func TestCoinClaimIsRevalidated(t *testing.T) {
	r := startedRoom(t, 1, nil)
	s := r.Settings()
	withState(r, func() {
		r.coins = []*Coin{
			{ID: 1, Pos: s.FieldCenter},
			{ID: 2, Pos: s.FieldCenter.Add(V(0, 300))},
		}
		r.players[0].Pos = s.FieldCenter.Add(V(10, 0))
		r.coinsLost = s.CoinCount - len(r.coins)
	})

	r.Apply("p1", CoinClaim{CoinID: 2}, t0)
	assert.Equal(t, 0, player(r, "p1").Coins, "too far away")
	r.Apply("p1", CoinClaim{CoinID: 77}, t0)
	assert.Equal(t, 0, player(r, "p1").Coins, "unknown coin")

	r.Apply("p1", CoinClaim{CoinID: 1}, t0)
	r.Apply("p1", CoinClaim{CoinID: 1}, t0)
	assert.Equal(t, 1, player(r, "p1").Coins, "credited exactly once")
	assert.True(t, r.Ledger().Balanced())
}

func TestBulletHitsFirstPlayerInJoinOrder(t *testing.T) {
	r := startedRoom(t, 3, nil)
	s := r.Settings()
	withState(r, func() {
		r.coins = []*Coin{{ID: 500, Pos: s.FieldCenter.Add(V(0, 300))}}
		r.players[0].Pos = V(200, 400)
		r.players[1].Pos = V(230, 400)
		r.players[2].Pos = V(230, 400)
	})

	r.Apply("p1", Shoot{Angle: 0}, t0)
	r.Step(t0.Add(tick))

	assert.Equal(t, 5, player(r, "p1").HP, "owner is never hit")
	b := player(r, "p2")
	assert.Equal(t, 4, b.HP)
	assert.Greater(t, b.VX, 0.0, "knocked away from the bullet")
	assert.Equal(t, 5, player(r, "p3").HP, "one hit per bullet")
	assert.Empty(t, r.Snapshot(t0).Bullets)
}

func TestHPClampsAtZero(t *testing.T) {
	p := &Player{HP: 1}
	p.damage(3)
	assert.Equal(t, 0, p.HP)
}

func TestFireCooldown(t *testing.T) {
	r := startedRoom(t, 1, nil)

	r.Apply("p1", Shoot{Angle: 0}, t0)
	r.Apply("p1", Shoot{Angle: 0}, t0.Add(100*time.Millisecond))
	assert.Len(t, r.Snapshot(t0).Bullets, 1)

	r.Apply("p1", Shoot{Angle: 0}, t0.Add(500*time.Millisecond))
	assert.Len(t, r.Snapshot(t0).Bullets, 2)
}

func TestBulletsExpire(t *testing.T) {
	r := startedRoom(t, 1, nil)
	withState(r, func() { r.players[0].Pos = r.settings.FieldCenter })
	r.Apply("p1", Shoot{Angle: 1.2}, t0)

	now := t0
	for i := 0; i < 60; i++ {
		now = now.Add(tick)
		r.Step(now)
	}
	assert.Empty(t, r.Snapshot(now).Bullets)
}

func TestMatchEndsOnTimeExactlyOnce(t *testing.T) {
	r := startedRoom(t, 3, nil)
	withState(r, func() {
		r.players[0].Coins = 2
		r.players[1].Coins = 5
		r.players[2].Coins = 2
		r.coins = r.coins[9:]
		// park everyone far from the remaining coins
		for i, p := range r.players {
			p.Pos = r.settings.FieldCenter.Add(V(float64(i)*50, 0))
		}
		r.coins = []*Coin{{ID: 1, Pos: r.settings.FieldCenter.Add(V(0, 300))}}
		r.coinsLost = r.settings.CoinCount - 10
	})

	end, running := r.Step(t0.Add(179 * time.Second))
	require.True(t, running)
	require.Nil(t, end)

	end, running = r.Step(t0.Add(180 * time.Second))
	require.True(t, running)
	require.NotNil(t, end)
	assert.Equal(t, EndTimeUp, end.Reason)
	assert.Equal(t, PhaseEnded, r.Phase())

	var order []string
	for _, st := range end.Leaderboard {
		order = append(order, st.PlayerID)
	}
	assert.Equal(t, []string{"p2", "p1", "p3"}, order)
	assert.Equal(t, []int{1, 2, 3}, []int{end.Leaderboard[0].Rank, end.Leaderboard[1].Rank, end.Leaderboard[2].Rank})

	end, running = r.Step(t0.Add(181 * time.Second))
	assert.Nil(t, end)
	assert.False(t, running)
}

func TestMatchEndsWhenCoinsExhausted(t *testing.T) {
	r := startedRoom(t, 1, nil)
	withState(r, func() {
		r.coins = []*Coin{{ID: 1, Pos: r.players[0].Pos}}
	})

	end, _ := r.Step(t0.Add(tick))
	require.NotNil(t, end)
	assert.Equal(t, EndCoinsExhausted, end.Reason)
	require.Len(t, end.Leaderboard, 1)
	assert.Equal(t, 1, end.Leaderboard[0].Coins)
}

func TestResetAfterEnd(t *testing.T) {
	r := startedRoom(t, 2, nil)
	_, ok := r.Reset()
	require.False(t, ok, "reset only applies to ended rooms")

	end, _ := r.Step(t0.Add(r.Settings().MatchDuration))
	require.NotNil(t, end)

	lu, ok := r.Reset()
	require.True(t, ok)
	assert.Equal(t, PhaseLobby, lu.Phase)
	for _, p := range lu.Players {
		assert.False(t, p.Ready)
		assert.Zero(t, p.Coins)
		assert.Equal(t, r.Settings().MaxHP, p.HP)
	}
	assert.Equal(t, []string{"p1"}, hosts(r))
	assert.True(t, r.Joinable())

	// rematch without reconnecting
	r.ToggleReady("p2")
	_, ok = r.TryStart("p1", t0.Add(time.Hour))
	assert.True(t, ok)
}

func TestSnapshotTimeRemaining(t *testing.T) {
	r := startedRoom(t, 1, nil)
	assert.InDelta(t, 180.0, r.Snapshot(t0).TimeRemaining, 1e-9)
	assert.InDelta(t, 120.0, r.Snapshot(t0.Add(time.Minute)).TimeRemaining, 1e-9)
	assert.Zero(t, r.Snapshot(t0.Add(time.Hour)).TimeRemaining)
}

func TestStepSkipsIdleRooms(t *testing.T) {
	r := newTestRoom(t, nil)
	mustJoin(t, r, "a")
	end, running := r.Step(t0)
	assert.Nil(t, end)
	assert.False(t, running)
}

func TestRandomPlayKeepsInvariants(t *testing.T) {
	r := startedRoom(t, 3, nil)
	s := r.Settings()
	rng := rand.New(rand.NewPCG(7, 11))
	ids := []string{"p1", "p2", "p3"}

	type life struct {
		hp    int
		alive bool
	}
	prev := map[string]life{}
	now := t0

	for i := 0; i < 3000; i++ {
		now = now.Add(tick)
		for _, id := range ids {
			switch rng.IntN(4) {
			case 0:
				r.Apply(id, Move{AX: rng.Float64()*2 - 1, AY: rng.Float64()*2 - 1}, now)
			case 1:
				r.Apply(id, Shoot{Angle: rng.Float64() * 6.28}, now)
			}
		}

		end, _ := r.Step(now)
		require.True(t, r.Ledger().Balanced(), "tick %d: %+v", i, r.Ledger())

		for _, p := range r.Snapshot(now).Players {
			require.GreaterOrEqual(t, p.HP, 0)
			require.LessOrEqual(t, p.HP, s.MaxHP)
			require.GreaterOrEqual(t, p.Coins, 0)
			if last, ok := prev[p.ID]; ok && last.alive && p.Alive {
				require.LessOrEqual(t, p.HP, last.hp, "hp rose within a life")
			}
			if last, ok := prev[p.ID]; ok && !last.alive && p.Alive {
				require.Equal(t, s.MaxHP, p.HP, "respawn restores full hp")
			}
			prev[p.ID] = life{hp: p.HP, alive: p.Alive}
		}
		if end != nil {
			break
		}
	}
}
