package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Poller supervises running generation operations. Each watched operation gets
// one goroutine that polls on a fixed interval until the operation reaches a
// terminal state or is cancelled. The map of watchers is the single authority
// on what is being polled.
type Poller struct {
	service  *StoryService
	interval time.Duration

	mu       sync.Mutex
	watchers map[uuid.UUID]context.CancelFunc
	wg       sync.WaitGroup
}

func NewPoller(service *StoryService, interval time.Duration) *Poller {
	return &Poller{
		service:  service,
		interval: interval,
		watchers: make(map[uuid.UUID]context.CancelFunc),
	}
}

// Watch starts background polling for an operation. Watching an operation
// that is already watched is a no-op.
func (p *Poller) Watch(operationID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.watchers[operationID]; exists {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.watchers[operationID] = cancel

	p.wg.Add(1)
	go p.run(ctx, operationID)
}

// Cancel stops polling for an operation. Idempotent.
func (p *Poller) Cancel(operationID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cancel, exists := p.watchers[operationID]; exists {
		cancel()
		delete(p.watchers, operationID)
	}
}

// Shutdown cancels every watcher and waits for them to exit.
func (p *Poller) Shutdown() {
	p.mu.Lock()
	for id, cancel := range p.watchers {
		cancel()
		delete(p.watchers, id)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context, operationID uuid.UUID) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			op, err := p.service.store.GetOperation(operationID)
			if err != nil {
				log.Printf("Poller: operation %s no longer exists, stopping: %v", operationID, err)
				p.Cancel(operationID)
				return
			}
			if op.Status != "running" {
				p.Cancel(operationID)
				return
			}

			if _, _, err := p.service.pollOnce(ctx, op); err != nil {
				log.Printf("Poller: poll for operation %s failed: %v", operationID, err)
			}
		}
	}
}
