package sim

import (
	"context"
	"math/rand"
	"sync"

	"golang.org/x/time/rate"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/node"
	"github.com/yndnr/snapmesh-go/internal/telemetry/logger"
)

// Config tunes the transfer workload.
type Config struct {
	// Rate is the target transfers per second across the whole mesh.
	Rate float64 `koanf:"rate"`

	// Burst bounds how many transfers may fire back to back.
	Burst int `koanf:"burst"`

	// MaxTransfer caps a single transfer amount.
	MaxTransfer int64 `koanf:"max_transfer"`

	// Seed makes a run reproducible; 0 seeds from entropy.
	Seed int64 `koanf:"seed"`
}

// DefaultConfig returns a moderate workload.
func DefaultConfig() Config {
	return Config{Rate: 50, Burst: 10, MaxTransfer: 10}
}

type participant struct {
	node     *node.Node
	account  *Account
	outgoing []domain.ChannelID
}

// Simulator drives random transfers between registered nodes. One
// driver goroutine paces itself with a rate limiter; each transfer's
// withdraw and send run atomically inside the owning node's event
// loop.
type Simulator struct {
	cfg          Config
	participants []participant
	limiter      *rate.Limiter
	rng          *rand.Rand
	log          logger.Logger

	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New creates an idle simulator.
func New(cfg Config, log logger.Logger) *Simulator {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultConfig().Rate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultConfig().Burst
	}
	if cfg.MaxTransfer <= 0 {
		cfg.MaxTransfer = DefaultConfig().MaxTransfer
	}
	if log == nil {
		log = logger.Default()
	}

	src := rand.NewSource(cfg.Seed)
	if cfg.Seed == 0 {
		src = rand.NewSource(rand.Int63())
	}
	return &Simulator{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		rng:     rand.New(src),
		log:     log,
		quit:    make(chan struct{}),
	}
}

// Register adds one node to the workload. Nodes with no outgoing
// channels are skipped; they only receive.
func (s *Simulator) Register(n *node.Node, a *Account, outgoing []domain.ChannelID) {
	if len(outgoing) == 0 {
		return
	}
	s.participants = append(s.participants, participant{node: n, account: a, outgoing: outgoing})
}

// Start launches the driver goroutine. Register must not be called
// after Start.
func (s *Simulator) Start(ctx context.Context) {
	if len(s.participants) == 0 {
		s.log.Warn("simulator idle, no participants with outgoing channels")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop halts the driver and waits for it.
func (s *Simulator) Stop() {
	s.once.Do(func() { close(s.quit) })
	s.wg.Wait()
}

func (s *Simulator) run(ctx context.Context) {
	for {
		select {
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		default:
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		p := s.participants[s.rng.Intn(len(s.participants))]
		channel := p.outgoing[s.rng.Intn(len(p.outgoing))]
		amount := 1 + s.rng.Int63n(s.cfg.MaxTransfer)

		err := p.node.Apply(ctx, func(send node.SendFunc) error {
			if !p.account.Withdraw(amount) {
				return nil
			}
			if err := send(channel, EncodeTransfer(amount)); err != nil {
				// The channel rejected the frame after the withdraw;
				// put the tokens back so the total stays conserved.
				p.account.balance += amount
				return err
			}
			return nil
		})
		if err != nil {
			select {
			case <-s.quit:
				return
			case <-ctx.Done():
				return
			default:
			}
			// One refused transfer does not end the workload.
			s.log.Warn("transfer failed",
				"process_id", string(p.node.ID()),
				"channel_id", string(channel),
				"error", err)
		}
	}
}
