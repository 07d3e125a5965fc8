package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/natours/auth-api/internal/core/domain"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *recordingMailer) SendWelcome(_ context.Context, user *domain.User, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, user.Email)
	return m.err
}

func (m *recordingMailer) SendPasswordReset(context.Context, *domain.User, string) error {
	return nil
}

type blockingMailer struct {
	release chan struct{}
}

func (m blockingMailer) SendWelcome(context.Context, *domain.User, string) error {
	<-m.release
	return nil
}

func (blockingMailer) SendPasswordReset(context.Context, *domain.User, string) error {
	return nil
}

func TestMailDispatcher_DeliversWelcomeEmails(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewMailDispatcher(2, mailer, zerolog.Nop())

	done := make(chan error, 3)
	d.OnSent(func(err error) { done <- err })

	d.Start()
	defer d.Stop(context.Background())

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		d.EnqueueWelcome(&domain.User{Email: email}, "http://localhost/me")
	}
	for i := 0; i < 3; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("unexpected send error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d", i)
		}
	}

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if len(mailer.sent) != 3 {
		t.Fatalf("expected 3 emails, got %v", mailer.sent)
	}
}

func TestMailDispatcher_ReportsFailures(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	d := NewMailDispatcher(1, mailer, zerolog.Nop())
	done := make(chan error, 1)
	d.OnSent(func(err error) { done <- err })

	d.Start()
	defer d.Stop(context.Background())
	d.EnqueueWelcome(&domain.User{Email: "a@x.com"}, "")

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected delivery error")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out")
	}
}

func TestMailDispatcher_EnqueueNeverBlocks(t *testing.T) {
	d := NewMailDispatcher(1, &recordingMailer{}, zerolog.Nop())

	finished := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer+10; i++ {
			d.EnqueueWelcome(&domain.User{Email: "a@x.com"}, "")
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatalf("EnqueueWelcome blocked without running workers")
	}
}

func TestMailDispatcher_StopDrainsQueuedEmails(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewMailDispatcher(4, mailer, zerolog.Nop())

	const queued = 20
	for i := 0; i < queued; i++ {
		d.EnqueueWelcome(&domain.User{Email: fmt.Sprintf("user%d@x.com", i)}, "")
	}
	d.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if len(mailer.sent) != queued {
		t.Fatalf("delivered %d of %d queued emails", len(mailer.sent), queued)
	}
}

func TestMailDispatcher_EnqueueAfterStopIsDropped(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewMailDispatcher(2, mailer, zerolog.Nop())
	d.Start()
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}

	d.EnqueueWelcome(&domain.User{Email: "late@x.com"}, "")

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no delivery after Stop, got %v", mailer.sent)
	}
}

func TestMailDispatcher_StopHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	d := NewMailDispatcher(1, blockingMailer{release: release}, zerolog.Nop())
	d.EnqueueWelcome(&domain.User{Email: "a@x.com"}, "")
	d.Start()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := d.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestShardIndex_Deterministic(t *testing.T) {
	d := NewMailDispatcher(4, &recordingMailer{}, zerolog.Nop())
	if d.shardIndex("jane@example.com") != d.shardIndex("jane@example.com") {
		t.Fatalf("shard index must be stable")
	}
	if idx := d.shardIndex("x"); idx < 0 || idx >= 4 {
		t.Fatalf("index out of range: %d", idx)
	}
}
