package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Prober derives reachability from a periodic HTTP probe of the remote
// health endpoint. Only transport failures count as offline; any HTTP
// response means the network path is up. While offline it re-probes under
// exponential backoff and flips back online on the first success.
//
// With an empty probe URL there is no signal to watch, so the prober reports
// online permanently. Known limitation: a dead backend then looks reachable
// until a real call fails.
type Prober struct {
	url      string
	interval time.Duration
	client   *http.Client
	log      *zap.Logger

	mu    sync.Mutex
	state State

	bc     broadcaster
	cancel context.CancelFunc
	done   chan struct{}
}

func NewProber(url string, interval time.Duration, log *zap.Logger) *Prober {
	return &Prober{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 2 * time.Second},
		log:      log,
		state:    Online,
		done:     make(chan struct{}),
	}
}

func (p *Prober) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Prober) Subscribe() (<-chan State, func()) {
	return p.bc.subscribe()
}

// Start launches the probe loop. Stop or ctx cancellation ends it.
func (p *Prober) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx)
}

func (p *Prober) Stop() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
}

func (p *Prober) run(ctx context.Context) {
	defer close(p.done)

	if p.url == "" {
		p.log.Warn("no probe URL configured, assuming online")
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.probe(ctx); err == nil {
				continue
			}
			p.transition(Offline)
			if !p.awaitRecovery(ctx) {
				return
			}
			p.transition(Online)
		}
	}
}

// awaitRecovery probes under exponential backoff until one succeeds.
// Returns false when ctx ends first.
func (p *Prober) awaitRecovery(ctx context.Context) bool {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.interval
	expo.MaxInterval = 30 * time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, p.probe(ctx)
	}, backoff.WithBackOff(expo))
	return err == nil
}

func (p *Prober) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (p *Prober) transition(s State) {
	p.mu.Lock()
	if p.state == s {
		p.mu.Unlock()
		return
	}
	p.state = s
	p.mu.Unlock()

	p.log.Info("connectivity changed", zap.String("state", string(s)))
	p.bc.publish(s)
}
