package queue

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/natours/auth-api/internal/core/domain"
	"github.com/natours/auth-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
	sendTimeout    = 15 * time.Second
)

type welcomeJob struct {
	user *domain.User
	url  string
}

// MailDispatcher delivers welcome emails in the background on a fixed set of
// workers, sharded by recipient address.
type MailDispatcher struct {
	workers []chan welcomeJob
	mailer  ports.Mailer
	log     zerolog.Logger
	wg      sync.WaitGroup
	onSent  func(err error)

	mu     sync.RWMutex
	closed bool
}

// NewMailDispatcher creates a MailDispatcher with numWorkers workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewMailDispatcher(numWorkers int, mailer ports.Mailer, log zerolog.Logger) *MailDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &MailDispatcher{
		workers: make([]chan welcomeJob, numWorkers),
		mailer:  mailer,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan welcomeJob, channelBuffer)
	}
	return d
}

// OnSent registers a callback invoked after every delivery attempt.
func (d *MailDispatcher) OnSent(fn func(err error)) {
	d.onSent = fn
}

// Start launches all worker goroutines. They run until Stop.
func (d *MailDispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
}

// Stop refuses new jobs, lets the workers deliver everything already queued
// and waits for them. It returns ctx.Err() if ctx ends first; the workers keep
// draining in that case.
func (d *MailDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnqueueWelcome hands a welcome email to the worker for user's address.
// It never blocks: when the worker's buffer is full, or the dispatcher is
// stopped, the email is dropped.
func (d *MailDispatcher) EnqueueWelcome(user *domain.User, url string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn().Str("user_id", user.ID).Msg("welcome email dispatcher stopped, dropping")
		return
	}
	select {
	case d.workers[d.shardIndex(user.Email)] <- welcomeJob{user: user, url: url}:
	default:
		d.log.Warn().Str("user_id", user.ID).Msg("welcome email queue full, dropping")
	}
}

// shardIndex maps an address deterministically to a worker index.
func (d *MailDispatcher) shardIndex(email string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(email))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *MailDispatcher) runWorker(id int, ch <-chan welcomeJob) {
	defer d.wg.Done()
	for job := range ch {
		d.deliver(id, job)
	}
}

// deliver gives every send its own timeout, detached from server shutdown.
func (d *MailDispatcher) deliver(id int, job welcomeJob) {
	sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	err := d.mailer.SendWelcome(sendCtx, job.user, job.url)
	if err != nil {
		d.log.Error().Err(err).
			Str("user_id", job.user.ID).
			Int("worker_id", id).
			Msg("welcome email failed")
	}
	if d.onSent != nil {
		d.onSent(err)
	}
}
