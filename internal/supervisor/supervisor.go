// Package supervisor runs the outer realm-auth/game-connection lifecycle:
// authenticate, run the InWorld session until it drops, then reconnect with
// exponential backoff and jitter. Grounded on ebrakke-gopherclaw's
// internal/gateway.RetryPolicy, generalized from a bounded-attempt retry of
// one call into an unbounded reconnect loop gated only by context
// cancellation and apperr.Fatal.
package supervisor

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net"
	"time"

	"github.com/tinyland-inc/innkeeper/internal/apperr"
	"github.com/tinyland-inc/innkeeper/internal/bus"
	"github.com/tinyland-inc/innkeeper/internal/config"
	"github.com/tinyland-inc/innkeeper/internal/logging"
	"github.com/tinyland-inc/innkeeper/internal/protocol/game"
	"github.com/tinyland-inc/innkeeper/internal/protocol/realm"
)

const gameDialTimeout = 10 * time.Second

// ActivityNotifier is the presence-status slice of the Discord adapter the
// supervisor drives directly, independent of the bridge orchestrator's own
// activity updates on roster refresh (spec §4.5.2).
type ActivityNotifier interface {
	SetActivity(status string) error
}

// ReconnectPolicy controls the exponential backoff with jitter applied
// between failed connection attempts, the same shape as gateway.RetryPolicy
// but unbounded in attempt count (spec §4.6 fixes base>=2s, cap>=60s).
type ReconnectPolicy struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultReconnectPolicy matches spec §4.6/§8 scenario 6: the first
// jittered sleep falls in [2s, 4s).
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{InitialDelay: 2 * time.Second, Multiplier: 2.0, MaxDelay: 60 * time.Second}
}

// delay returns the backoff for the given 1-indexed attempt: base grows
// exponentially up to MaxDelay, then jitter adds up to one more base-width
// on top, so attempt 1 lands in [InitialDelay, 2*InitialDelay).
func (p ReconnectPolicy) delay(attempt int) time.Duration {
	base := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if base > float64(p.MaxDelay) {
		base = float64(p.MaxDelay)
	}
	jitter := base * rand.Float64()
	return time.Duration(base + jitter)
}

// Supervisor owns the realm-auth -> game-session lifecycle and restarts it
// on any non-fatal error.
type Supervisor struct {
	cfg     *config.Config
	bus     *bus.Bus
	discord ActivityNotifier
	policy  ReconnectPolicy
}

// New constructs a Supervisor with the default reconnect policy.
func New(cfg *config.Config, b *bus.Bus, discord ActivityNotifier) *Supervisor {
	return &Supervisor{cfg: cfg, bus: b, discord: discord, policy: DefaultReconnectPolicy()}
}

// Run drives the reconnect loop until ctx is canceled or a fatal error
// occurs (spec §4.6, §7's fatal-error set via apperr.Fatal).
func (s *Supervisor) Run(ctx context.Context) error {
	log := logging.Component(logging.FromContext(ctx), "supervisor")
	attempt := 0

	for {
		reachedInWorld, err := s.runOnce(ctx)
		if reachedInWorld {
			attempt = 0
		}

		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if apperr.Fatal(err) {
			log.Error().Err(err).Msg("fatal error, not reconnecting")
			return err
		}

		s.drainPendingCommands(ctx, err)

		attempt++
		delay := s.policy.delay(attempt)
		log.Warn().Err(err).Dur("delay", delay).Int("attempt", attempt).Msg("game connection lost, reconnecting")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runOnce performs one realm-auth/game-session cycle. reachedInWorld is true
// once the game client's Authenticate call succeeds, used by Run to decide
// whether a later failure resets the backoff counter.
func (s *Supervisor) runOnce(ctx context.Context) (reachedInWorld bool, err error) {
	_ = s.discord.SetActivity("Connecting")

	realmResult, err := realm.Authenticate(ctx, s.cfg.Wow.Realmlist, s.cfg.Wow.Account, s.cfg.Wow.Password, s.cfg.Wow.Realm)
	if err != nil {
		_ = s.discord.SetActivity("Disconnected")
		return false, err
	}

	host, port := realmResult.Realm.HostPort()
	dialCtx, cancel := context.WithTimeout(ctx, gameDialTimeout)
	conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", fmt.Sprintf("%s:%d", host, port))
	cancel()
	if err != nil {
		_ = s.discord.SetActivity("Disconnected")
		return false, apperr.Wrap(apperr.KindNetwork, "dial game server", err)
	}
	defer conn.Close()

	client := game.NewClient(conn, s.bus, game.Config{
		Build:         s.cfg.Wow.GameBuild,
		Account:       s.cfg.Wow.Account,
		Password:      s.cfg.Wow.Password,
		CharacterName: s.cfg.Wow.Character,
		SessionKey:    realmResult.SessionKey[:],
	})

	if err := client.Authenticate(ctx); err != nil {
		_ = s.discord.SetActivity("Disconnected")
		return false, err
	}

	_ = s.discord.SetActivity(fmt.Sprintf("Connected to %s", realmResult.Realm.Name))

	err = client.Run(ctx)
	if ctx.Err() != nil {
		return true, ctx.Err()
	}
	return true, err
}

// drainPendingCommands answers every in-flight CommandRequest with an error
// instead of leaving the bridge orchestrator's callers waiting on a
// response that will never arrive (spec §4.6 step 4).
func (s *Supervisor) drainPendingCommands(ctx context.Context, cause error) {
	for {
		req, ok := s.bus.TryConsumeCommandRequest()
		if !ok {
			return
		}
		_ = s.bus.PublishCommandResponse(ctx, bus.CommandResponse{
			RequestID: req.ID,
			Err:       apperr.Wrap(apperr.KindNetwork, "game connection unavailable", cause),
		})
	}
}
