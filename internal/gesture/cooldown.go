package gesture

import "time"

// CooldownGate rate-limits emitted stroke events per direction. Arming a
// side sets its deadline one cooldown ahead; Allow refuses until the
// deadline passes. Deadlines are plain time arithmetic on the injected
// timeline, so a trace replay reproduces suppression decisions exactly.
type CooldownGate struct {
	cfg         Config
	nextAllowed map[Side]time.Time
}

// NewCooldownGate returns a gate with both directions ready.
func NewCooldownGate(cfg Config) *CooldownGate {
	return &CooldownGate{
		cfg:         cfg,
		nextAllowed: make(map[Side]time.Time, 2),
	}
}

// Allow reports whether an event for side may fire at now.
func (g *CooldownGate) Allow(side Side, now time.Time) bool {
	return !now.Before(g.nextAllowed[side])
}

// Arm starts side's cooldown at now.
func (g *CooldownGate) Arm(side Side, now time.Time) {
	g.nextAllowed[side] = now.Add(g.cfg.cooldownFor(side))
}

// Remaining returns how much cooldown is left for side at now, zero when
// ready.
func (g *CooldownGate) Remaining(side Side, now time.Time) time.Duration {
	if d := g.nextAllowed[side].Sub(now); d > 0 {
		return d
	}
	return 0
}

// Reset clears both cooldowns.
func (g *CooldownGate) Reset() {
	g.nextAllowed = make(map[Side]time.Time, 2)
}
