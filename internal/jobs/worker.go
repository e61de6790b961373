package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/docdesk/docdesk/backend/go-services/pkg/logger"
	"github.com/docdesk/docdesk/backend/go-services/pkg/metrics"
)

// PoolConfig configures a worker Pool.
type PoolConfig struct {
	// Workers is the number of concurrent consumers; values below 1 mean 1.
	Workers int
	// PollTimeout bounds each broker wait so shutdown is noticed promptly.
	PollTimeout time.Duration
	// ErrorBackoff is the pause after a broker error.
	ErrorBackoff time.Duration
}

// Pool consumes the broker with a fixed number of goroutines and runs each
// message through the registry, recording progress in the store.
type Pool struct {
	broker   Broker
	store    Store
	registry *Registry
	cfg      PoolConfig
	log      *logger.Logger
	wg       sync.WaitGroup
}

func NewPool(broker Broker, store Store, registry *Registry, cfg PoolConfig, log *logger.Logger) *Pool {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Workers <= 0 {
		log.Warnf("invalid worker count %d, using 1", cfg.Workers)
		cfg.Workers = 1
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 2 * time.Second
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Second
	}
	return &Pool{broker: broker, store: store, registry: registry, cfg: cfg, log: log}
}

// Run starts the workers and blocks until ctx is cancelled and every
// in-flight job has finished.
func (p *Pool) Run(ctx context.Context) {
	p.log.Infof("starting %d job workers (%v)", p.cfg.Workers, p.registry.Names())
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.work(ctx, i)
	}
	p.wg.Wait()
	p.log.Infof("job workers stopped")
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.log.With("worker", id)
	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := p.broker.Consume(ctx, p.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Errorf("consume: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.cfg.ErrorBackoff):
			}
			continue
		}
		if msg == nil {
			continue
		}
		p.Process(ctx, msg)
	}
}

// Process runs one message to completion.
func (p *Pool) Process(ctx context.Context, msg *Message) {
	// status writes must land even when shutdown cancels ctx
	storeCtx := context.WithoutCancel(ctx)
	start := time.Now()

	if err := p.store.SetStatus(storeCtx, msg.TaskID, StatusStarted, "", ""); err != nil {
		p.log.Errorf("mark job %s started: %v", msg.TaskID, err)
	}

	status, result, errMsg := p.run(ctx, msg)

	if err := p.store.SetStatus(storeCtx, msg.TaskID, status, result, errMsg); err != nil {
		p.log.Errorf("record job %s result: %v", msg.TaskID, err)
	}
	metrics.JobsFinished.WithLabelValues(msg.Name, string(status)).Inc()
	metrics.JobDuration.WithLabelValues(msg.Name).Observe(time.Since(start).Seconds())
	p.log.Fields("job.finished", map[string]interface{}{
		"task_id":  msg.TaskID,
		"job":      msg.Name,
		"status":   status,
		"duration": time.Since(start).String(),
	})
}

func (p *Pool) run(ctx context.Context, msg *Message) (status Status, result, errMsg string) {
	h, ok := p.registry.Lookup(msg.Name)
	if !ok {
		return StatusFailure, "", fmt.Sprintf("unregistered task %q", msg.Name)
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("job %s (%s) panicked: %v", msg.TaskID, msg.Name, r)
			status, result, errMsg = StatusFailure, "", fmt.Sprintf("panic: %v", r)
		}
	}()
	v, err := h(ctx, msg.Args)
	if err != nil {
		return StatusFailure, "", err.Error()
	}
	out, err := stringify(v)
	if err != nil {
		return StatusFailure, "", fmt.Sprintf("encode result: %v", err)
	}
	return StatusSuccess, out, ""
}
