package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestFakeEmitsTransitionsOnly(t *testing.T) {
	fake := NewFake(Online)
	ch, cancel := fake.Subscribe()
	defer cancel()

	fake.Set(Online) // no change, no event
	fake.Set(Offline)
	fake.Set(Offline) // no change, no event
	fake.Set(Online)

	want := []State{Offline, Online}
	for i, w := range want {
		select {
		case got := <-ch:
			if got != w {
				t.Fatalf("event %d = %s, want %s", i, got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
	select {
	case got := <-ch:
		t.Fatalf("unexpected extra event %s", got)
	default:
	}
}

func TestFakeUnsubscribe(t *testing.T) {
	fake := NewFake(Online)
	ch, cancel := fake.Subscribe()
	cancel()
	cancel() // double cancel is safe

	if _, open := <-ch; open {
		t.Fatal("channel still open after cancel")
	}
	fake.Set(Offline) // must not panic on the closed channel
}

func TestProberDetectsOutageAndRecovery(t *testing.T) {
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			// Hijack and drop the connection so the client sees a
			// transport error, not an HTTP status.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("server does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack: %v", err)
			}
			conn.Close()
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewProber(srv.URL, 10*time.Millisecond, zap.NewNop())
	ch, cancel := p.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	p.Start(ctx)
	defer p.Stop()

	failing.Store(true)
	select {
	case got := <-ch:
		if got != Offline {
			t.Fatalf("first transition = %s, want offline", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("prober never went offline")
	}
	if p.State() != Offline {
		t.Fatalf("State() = %s, want offline", p.State())
	}

	failing.Store(false)
	select {
	case got := <-ch:
		if got != Online {
			t.Fatalf("second transition = %s, want online", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("prober never recovered")
	}
	if p.State() != Online {
		t.Fatalf("State() = %s, want online", p.State())
	}
}

func TestProberWithoutURLStaysOnline(t *testing.T) {
	p := NewProber("", 10*time.Millisecond, zap.NewNop())
	p.Start(context.Background())
	defer p.Stop()

	time.Sleep(50 * time.Millisecond)
	if p.State() != Online {
		t.Fatalf("State() = %s, want online", p.State())
	}
}
