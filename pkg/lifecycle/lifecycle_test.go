package lifecycle_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/dispatch/pkg/lifecycle"
)

type flag struct{ ready atomic.Bool }

func (f *flag) Ready() bool { return f.ready.Load() }

func TestReadiness(t *testing.T) {
	lc := lifecycle.New()
	if lc.Ready() {
		t.Fatal("ready before WaitForStartup")
	}

	lc.WaitForStartup()
	if !lc.Ready() {
		t.Fatal("not ready after WaitForStartup with no requirements")
	}
}

func TestRequire(t *testing.T) {
	db := &flag{}
	archive := &flag{}

	lc := lifecycle.New()
	lc.Require(db, archive)
	lc.WaitForStartup()

	if lc.Ready() {
		t.Error("ready while required subsystems are not")
	}

	db.ready.Store(true)
	if lc.Ready() {
		t.Error("ready with one required subsystem down")
	}

	archive.ready.Store(true)
	if !lc.Ready() {
		t.Error("not ready with every requirement met")
	}

	db.ready.Store(false)
	if lc.Ready() {
		t.Error("readiness should follow a subsystem that drops")
	}
}

func TestStartupHooks(t *testing.T) {
	lc := lifecycle.New()

	var count atomic.Int32
	for range 3 {
		lc.OnStartup(func() { count.Add(1) })
	}
	lc.WaitForStartup()

	if got := count.Load(); got != 3 {
		t.Errorf("startup hooks: got %d, want 3", got)
	}
}

func TestShutdown(t *testing.T) {
	lc := lifecycle.New()

	var closed atomic.Bool
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		closed.Store(true)
	})
	lc.WaitForStartup()

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !closed.Load() {
		t.Error("shutdown hook did not run")
	}
	if lc.Context().Err() == nil {
		t.Error("context not cancelled after shutdown")
	}
}

func TestShutdownTimeout(t *testing.T) {
	lc := lifecycle.New()
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		time.Sleep(500 * time.Millisecond)
	})

	if err := lc.Shutdown(50 * time.Millisecond); err == nil {
		t.Error("expected timeout error")
	}
}
