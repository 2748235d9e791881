package game

import (
	"sort"
	"time"
)

// Step advances an Active room by one tick. The sub-phases run in a fixed
// order: movement, boundary death, bullets, coin pickup, death and respawn,
// match end. A player zeroed by an earlier sub-phase is skipped by the later
// ones. running is false when the room is not Active and the caller should
// stop ticking it; end is non-nil exactly once, on the tick the match ends.
func (r *Room) Step(now time.Time) (end *MatchEnd, running bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseActive {
		return nil, false
	}
	r.tick++
	r.lastTick = now

	r.integrate()
	r.enforceBoundary()
	r.advanceBullets(now)
	r.collectCoins()
	r.settleDeaths(now)
	return r.checkEnd(now), true
}

// Snapshot is the network projection of the room.
func (r *Room) Snapshot(now time.Time) StateSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	bullets := make([]BulletView, 0, len(r.bullets))
	for _, b := range r.bullets {
		bullets = append(bullets, BulletView{ID: b.ID, OwnerID: b.OwnerID, Color: b.Color, X: b.Pos.X, Y: b.Pos.Y})
	}
	return StateSnapshot{
		RoomID:        r.ID,
		Tick:          r.tick,
		Players:       r.playerViews(),
		Bullets:       bullets,
		Coins:         r.coinViews(),
		TimeRemaining: r.remaining(now).Seconds(),
	}
}

func (r *Room) remaining(now time.Time) time.Duration {
	if r.phase != PhaseActive {
		return 0
	}
	left := r.settings.MatchDuration - now.Sub(r.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

func (r *Room) integrate() {
	s := r.settings
	for _, p := range r.players {
		if !p.Alive {
			continue
		}
		p.Vel = p.Vel.Add(p.input.Mul(s.Accel)).Mul(s.Friction)
		p.Pos = p.Pos.Add(p.Vel)
	}
}

// enforceBoundary kills outright: leaving the disc costs all hp, no bounce.
func (r *Room) enforceBoundary() {
	for _, p := range r.players {
		if p.Alive && !r.settings.InField(p.Pos) {
			p.HP = 0
		}
	}
}

func (r *Room) advanceBullets(now time.Time) {
	s := r.settings
	kept := r.bullets[:0]
	for _, b := range r.bullets {
		b.Pos = b.Pos.Add(b.Vel)
		if now.Sub(b.CreatedAt) > s.BulletLifetime || b.Pos.Dist(s.FieldCenter) > s.FieldRadius+s.BulletRadius {
			continue
		}
		if target := r.bulletTarget(b); target != nil {
			target.damage(1)
			push := target.Pos.Sub(b.Pos).Normalize()
			if push.IsZero() {
				push = b.Vel.Normalize()
			}
			target.Vel = target.Vel.Add(push.Mul(s.Knockback))
			continue
		}
		kept = append(kept, b)
	}
	clear(r.bullets[len(kept):])
	r.bullets = kept
}

// bulletTarget returns the first player in join order the bullet touches.
// Join order is an arbitrary but deterministic tie-break.
func (r *Room) bulletTarget(b *Bullet) *Player {
	s := r.settings
	for _, p := range r.players {
		if p.ID == b.OwnerID || !p.Alive || p.HP == 0 {
			continue
		}
		if CirclesOverlap(b.Pos, s.BulletRadius, p.Pos, s.PlayerRadius) {
			return p
		}
	}
	return nil
}

// collectCoins is the single authoritative pickup pass: a coin goes to the
// first touching player in join order and is gone for everyone after.
func (r *Room) collectCoins() {
	s := r.settings
	for _, p := range r.players {
		if !p.Alive || p.HP == 0 {
			continue
		}
		kept := r.coins[:0]
		for _, c := range r.coins {
			if CirclesOverlap(p.Pos, s.PlayerRadius, c.Pos, s.CoinRadius) {
				p.Coins++
				continue
			}
			kept = append(kept, c)
		}
		clear(r.coins[len(kept):])
		r.coins = kept
	}
}

func (r *Room) settleDeaths(now time.Time) {
	for _, p := range r.players {
		switch {
		case p.Alive && p.HP == 0:
			r.kill(p, now)
		case !p.Alive && p.DeadSince != nil && now.Sub(*p.DeadSince) >= r.settings.RespawnDelay:
			p.spawn(r.settings)
		}
	}
}

// kill drops ceil(coins/2) around the death position; the rest are lost.
func (r *Room) kill(p *Player, now time.Time) {
	s := r.settings
	t := now
	p.DeadSince = &t
	p.Alive = false
	p.Vel = Vec{}
	p.input = Vec{}

	drop := (p.Coins + 1) / 2
	for i := 0; i < drop; i++ {
		pos := RandomInAnnulus(r.rng, p.Pos, s.DropMinRadius, s.DropMaxRadius)
		pos = ClampToDisc(pos, s.FieldCenter, s.FieldRadius-s.CoinRadius)
		r.coins = append(r.coins, &Coin{ID: r.nextEntityID(), Pos: pos})
	}
	r.coinsLost += p.Coins - drop
	p.Coins = 0
}

func (r *Room) checkEnd(now time.Time) *MatchEnd {
	var reason EndReason
	switch {
	case now.Sub(r.startedAt) >= r.settings.MatchDuration:
		reason = EndTimeUp
	case len(r.coins) == 0:
		reason = EndCoinsExhausted
	default:
		return nil
	}

	r.phase = PhaseEnded
	r.bullets = nil
	return &MatchEnd{
		RoomID:      r.ID,
		Reason:      reason,
		StartedAt:   r.startedAt,
		EndedAt:     now,
		Leaderboard: r.standings(),
	}
}

// standings sorts by coins descending; equal counts keep join order.
func (r *Room) standings() []Standing {
	ordered := make([]*Player, len(r.players))
	copy(ordered, r.players)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Coins > ordered[j].Coins
	})

	out := make([]Standing, 0, len(ordered))
	for i, p := range ordered {
		out = append(out, Standing{
			Rank:     i + 1,
			PlayerID: p.ID,
			Name:     p.Name,
			Color:    p.Color,
			Coins:    p.Coins,
		})
	}
	return out
}
