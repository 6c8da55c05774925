// Package reveal runs the timed, one-winner-at-a-time disclosure of a draw:
// a countdown per winner followed by a reveal that is held on screen.
package reveal

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/logger"
)

// Defaults used when a Config field is zero.
const (
	DefaultCountdown = 3
	DefaultHold      = 2 * time.Second
	DefaultSettle    = 500 * time.Millisecond
	DefaultUnit      = time.Second
)

// Config holds the timing of a reveal run.
type Config struct {
	Countdown int           // countdown length in units
	Unit      time.Duration // length of one countdown unit
	Settle    time.Duration // pause after the countdown reaches zero
	Hold      time.Duration // how long a revealed winner stays up
}

func (c Config) withDefaults() Config {
	if c.Countdown <= 0 {
		c.Countdown = DefaultCountdown
	}
	if c.Unit <= 0 {
		c.Unit = DefaultUnit
	}
	if c.Settle <= 0 {
		c.Settle = DefaultSettle
	}
	if c.Hold <= 0 {
		c.Hold = DefaultHold
	}
	return c
}

// Tick is one countdown update for the winner at Index.
type Tick struct {
	Index     int
	Progress  float64 // 0 at the start of the countdown, 1 at the end
	Remaining int     // units left, Countdown down to 0
}

// Reveal discloses one winner.
type Reveal struct {
	Index   int
	Total   int
	Winner  string
	Message string
}

// Observer receives sequencer events in order.
type Observer interface {
	OnTick(Tick)
	OnReveal(Reveal)
}

// Funcs adapts plain functions to Observer. Nil fields are skipped.
type Funcs struct {
	Tick   func(Tick)
	Reveal func(Reveal)
}

func (f Funcs) OnTick(t Tick) {
	if f.Tick != nil {
		f.Tick(t)
	}
}

func (f Funcs) OnReveal(r Reveal) {
	if f.Reveal != nil {
		f.Reveal(r)
	}
}

// Sequencer drives reveals. It never touches the network.
type Sequencer struct {
	clock   Clock
	rng     *rand.Rand
	cfg     Config
	catalog []string
}

// New creates a sequencer. A nil rng is seeded from the current time.
func New(clock Clock, rng *rand.Rand, cfg Config) *Sequencer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Sequencer{
		clock:   clock,
		rng:     rng,
		cfg:     cfg.withDefaults(),
		catalog: Catalog,
	}
}

// Run reveals winners in order. It returns ctx.Err() if ctx is cancelled,
// in which case the pending timer is stopped and no further events are sent.
func (s *Sequencer) Run(ctx context.Context, winners []string, obs Observer) error {
	if obs == nil {
		obs = Funcs{}
	}
	messages := Messages(s.rng, s.catalog, len(winners))

	for i, winner := range winners {
		if err := s.countdown(ctx, i, obs); err != nil {
			return err
		}
		if err := s.wait(ctx, s.cfg.Settle); err != nil {
			return err
		}

		obs.OnReveal(Reveal{Index: i, Total: len(winners), Winner: winner, Message: messages[i]})

		if err := s.wait(ctx, s.cfg.Hold); err != nil {
			return err
		}
	}

	logger.Infof("Revealed %d winner(s)", len(winners))
	return nil
}

func (s *Sequencer) countdown(ctx context.Context, index int, obs Observer) error {
	total := s.cfg.Countdown
	for elapsed := 0; ; elapsed++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		obs.OnTick(Tick{
			Index:     index,
			Progress:  float64(elapsed) / float64(total),
			Remaining: total - elapsed,
		})
		if elapsed == total {
			return nil
		}
		if err := s.wait(ctx, s.cfg.Unit); err != nil {
			return err
		}
	}
}

func (s *Sequencer) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := s.clock.NewTimer(d)
	select {
	case <-t.C():
		return nil
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	}
}
