package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/storesync/internal/backend"
	"github.com/shaiso/storesync/internal/callback"
	"github.com/shaiso/storesync/internal/domain"
)

// fakeBackend — бэкенд с заданными результатами и счётчиками вызовов.
type fakeBackend struct {
	syncResult     backend.Result
	registerResult backend.Result

	syncCalls     int
	registerCalls int
	lastReg       backend.WebhookRegistration
}

func (f *fakeBackend) SyncCategories(_ context.Context, _ int64) backend.Result {
	f.syncCalls++
	return f.syncResult
}

func (f *fakeBackend) RegisterWebhooks(_ context.Context, _ int64, reg backend.WebhookRegistration) backend.Result {
	f.registerCalls++
	f.lastReg = reg
	return f.registerResult
}

func ok() backend.Result {
	return backend.Result{Status: 200, Class: domain.ClassSuccess}
}

func TestExecute_Completed(t *testing.T) {
	fb := &fakeBackend{syncResult: ok(), registerResult: ok()}
	e := New(Config{
		Backend:  fb,
		Resolver: callback.Static("https://abc.ngrok.app"),
		Topics:   []string{"order.created"},
	})

	out := e.Execute(context.Background(), 123, 0)

	if !out.IsCompleted() {
		t.Fatalf("expected completed, got %s", out)
	}
	if fb.syncCalls != 1 || fb.registerCalls != 1 {
		t.Errorf("expected one call each, got sync=%d register=%d", fb.syncCalls, fb.registerCalls)
	}
	if fb.lastReg.DeliveryURL != "https://abc.ngrok.app" {
		t.Errorf("unexpected delivery url %q", fb.lastReg.DeliveryURL)
	}
	if len(fb.lastReg.Topics) != 1 || fb.lastReg.Topics[0] != "order.created" {
		t.Errorf("unexpected topics %v", fb.lastReg.Topics)
	}
}

func TestExecute_NoCallbackURL(t *testing.T) {
	fb := &fakeBackend{syncResult: ok(), registerResult: ok()}
	e := New(Config{Backend: fb})

	if out := e.Execute(context.Background(), 1, 0); !out.IsCompleted() {
		t.Fatalf("expected completed, got %s", out)
	}
	if fb.lastReg.DeliveryURL != "" {
		t.Errorf("delivery url should be empty, got %q", fb.lastReg.DeliveryURL)
	}
	if len(fb.lastReg.Topics) != len(DefaultTopics) {
		t.Errorf("expected default topics, got %v", fb.lastReg.Topics)
	}
}

// Сценарий: категории не синхронизированы — регистрация не вызывается.
func TestExecute_SyncFailureSkipsRegistration(t *testing.T) {
	for _, class := range []domain.Class{domain.ClassNotFound, domain.ClassAuthDenied, domain.ClassTransient} {
		fb := &fakeBackend{
			syncResult:     backend.Result{Status: 404, Class: class},
			registerResult: ok(),
		}
		e := New(Config{Backend: fb})

		out := e.Execute(context.Background(), 55, 0)

		if out.Step != domain.StepSyncCategories || out.Class != class {
			t.Errorf("%s: unexpected outcome %s", class, out)
		}
		if fb.registerCalls != 0 {
			t.Errorf("%s: register_webhooks should not be called", class)
		}
	}
}

func TestExecute_RegisterFailure(t *testing.T) {
	fb := &fakeBackend{
		syncResult:     ok(),
		registerResult: backend.Result{Err: errors.New("connection reset"), Class: domain.ClassTransient},
	}
	e := New(Config{Backend: fb})

	out := e.Execute(context.Background(), 7, 2)

	if out.Step != domain.StepRegisterWebhooks || out.Class != domain.ClassTransient {
		t.Fatalf("unexpected outcome %s", out)
	}
	if out.Detail != "connection reset" {
		t.Errorf("unexpected detail %q", out.Detail)
	}
}

// Повторное выполнение против идемпотентного бэкенда даёт тот же класс.
func TestExecute_Idempotent(t *testing.T) {
	cases := []*fakeBackend{
		{syncResult: ok(), registerResult: ok()},
		{syncResult: backend.Result{Status: 403, Class: domain.ClassAuthDenied}},
		{syncResult: ok(), registerResult: backend.Result{Status: 503, Class: domain.ClassTransient}},
	}

	for _, fb := range cases {
		e := New(Config{Backend: fb})
		first := e.Execute(context.Background(), 9, 0)
		second := e.Execute(context.Background(), 9, 1)
		if first.Class != second.Class || first.Step != second.Step {
			t.Errorf("outcomes differ: %s vs %s", first, second)
		}
	}
}
