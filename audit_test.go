package goSession

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	n atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.n.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.n.Load()
}

func auditConfig() Config {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64
	cfg.Audit.DropIfFull = false
	return cfg
}

// collect drains events until want is seen or the timeout fires.
func collect(t *testing.T, sink *ChannelSink, want string) []AuditEvent {
	t.Helper()
	var events []AuditEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
			if ev.EventType == want {
				return events
			}
		case <-timeout:
			t.Fatalf("event %q not received; got %d events", want, len(events))
			return nil
		}
	}
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	env := newTestEngine(t, testConfig(), withAuditSink(sink))

	_, _ = env.engine.Login(WithClientIP(context.Background(), "203.0.113.1"), "alice@example.com", "wrong-password", "")
	env.engine.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditReuseEventCarriesContext(t *testing.T) {
	sink := NewChannelSink(64)
	env := newTestEngine(t, auditConfig(), withAuditSink(sink))

	ctx := WithUserAgent(WithClientIP(context.Background(), "198.51.100.33"), "test-agent/1.0")
	res := env.login(t, "alice@example.com", "")
	if _, err := env.engine.Refresh(ctx, res.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	_, _ = env.engine.Refresh(ctx, res.RefreshToken)

	events := collect(t, sink, auditEventRefreshReuseDetected)
	ev := events[len(events)-1]
	if ev.UserID != "u-alice" {
		t.Fatalf("expected user u-alice, got %q", ev.UserID)
	}
	if ev.IP != "198.51.100.33" || ev.UserAgent != "test-agent/1.0" {
		t.Fatalf("request context missing from event: %+v", ev)
	}
	if ev.Success || ev.Error != string(auditErrForbidden) {
		t.Fatalf("unexpected outcome fields: %+v", ev)
	}
	if ev.Metadata["revoked"] != "1" {
		t.Fatalf("expected revoked=1, got %q", ev.Metadata["revoked"])
	}
}

func TestAuditForeignCookieNamesCookieOwner(t *testing.T) {
	sink := NewChannelSink(64)
	env := newTestEngine(t, auditConfig(), withAuditSink(sink))

	bob := env.login(t, "bob@example.com", "")
	env.login(t, "alice@example.com", bob.RefreshToken)

	events := collect(t, sink, auditEventLoginForeignCookie)
	ev := events[len(events)-1]
	if ev.UserID != "u-bob" || ev.Metadata["login_user_id"] != "u-alice" {
		t.Fatalf("unexpected foreign cookie event: %+v", ev)
	}
}

func TestAuditUnverifiedLoginCode(t *testing.T) {
	sink := NewChannelSink(64)
	env := newTestEngine(t, auditConfig(), withAuditSink(sink))

	_, _ = env.engine.Login(context.Background(), "eve@example.com", testPassword, "")

	events := collect(t, sink, auditEventLoginFailure)
	if got := events[len(events)-1].Error; got != string(auditErrAccountUnverified) {
		t.Fatalf("expected %q, got %q", auditErrAccountUnverified, got)
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	sink := NewChannelSink(64)
	env := newTestEngine(t, auditConfig(), withAuditSink(sink))
	ctx := context.Background()

	res := env.login(t, "alice@example.com", "")
	next, err := env.engine.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	_, _ = env.engine.Refresh(ctx, res.RefreshToken)
	_, _ = env.engine.Login(ctx, "alice@example.com", "wrong-password", next.RefreshToken)
	env.engine.Close()

	needles := []string{
		testPassword,
		"wrong-password",
		res.RefreshToken,
		res.AccessToken,
		next.RefreshToken,
		sharedTestHash(t),
	}

	var events []AuditEvent
	for ev := range drain(sink) {
		events = append(events, ev)
	}
	if len(events) == 0 {
		t.Fatal("expected audit events")
	}

	for _, ev := range events {
		for _, needle := range needles {
			if strings.Contains(ev.Error, needle) {
				t.Fatalf("secret leaked in error field of %s", ev.EventType)
			}
			for k, v := range ev.Metadata {
				if strings.Contains(k, needle) || strings.Contains(v, needle) {
					t.Fatalf("secret leaked in metadata of %s", ev.EventType)
				}
			}
		}
	}
}

// drain returns the events already buffered in sink.
func drain(sink *ChannelSink) <-chan AuditEvent {
	out := make(chan AuditEvent, 64)
	go func() {
		defer close(out)
		for {
			select {
			case ev := <-sink.Events():
				out <- ev
			default:
				return
			}
		}
	}()
	return out
}
