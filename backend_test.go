package seoshub

import (
	"testing"

	"github.com/contexthub/seoshub/gyrocal"
	"github.com/contexthub/seoshub/internal/flash"
	"github.com/contexthub/seoshub/internal/kernel"
)

func TestBootDefaults(t *testing.T) {
	k, err := Boot(DefaultParams(), nil)
	if err != nil {
		t.Fatalf("Boot failed: %v", err)
	}
	if k.State() != KernelStateBooted {
		t.Errorf("State() = %s, want %s", k.State(), KernelStateBooted)
	}
	if k.TaskCount() != 0 {
		t.Errorf("TaskCount() = %d, want 0", k.TaskCount())
	}
	if k.QueueDepth() != 0 {
		t.Errorf("QueueDepth() = %d, want 0", k.QueueDepth())
	}
	if k.GyroCal() == nil {
		t.Error("expected a wired GyroCal pipeline")
	}
}

func TestKernelEnqueueAndRun(t *testing.T) {
	k, err := Boot(DefaultParams(), nil)
	if err != nil {
		t.Fatalf("Boot failed: %v", err)
	}

	const userEvt = 100

	if !k.Enqueue(userEvt, "payload", kernel.FreeInfo{}, false) {
		t.Fatal("Enqueue should have succeeded on a fresh queue")
	}
	if k.QueueDepth() != 1 {
		t.Errorf("QueueDepth() = %d, want 1", k.QueueDepth())
	}

	if !k.RunOnce() {
		t.Fatal("RunOnce should have dispatched the queued event")
	}
	if k.QueueDepth() != 0 {
		t.Errorf("QueueDepth() = %d after RunOnce, want 0", k.QueueDepth())
	}

	snap := k.MetricsSnapshot()
	if snap.EventsDispatched != 1 {
		t.Errorf("EventsDispatched = %d, want 1", snap.EventsDispatched)
	}
}

func TestKernelShutdown(t *testing.T) {
	k, err := Boot(DefaultParams(), nil)
	if err != nil {
		t.Fatalf("Boot failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		k.Run()
		close(done)
	}()

	k.Shutdown()
	<-done

	if k.State() != KernelStateStopped {
		t.Errorf("State() = %s, want %s", k.State(), KernelStateStopped)
	}
}

func TestKernelStartAppsWithoutLoaderErrors(t *testing.T) {
	k, err := Boot(DefaultParams(), nil)
	if err != nil {
		t.Fatalf("Boot failed: %v", err)
	}

	if _, err := k.StartApps(flash.Query{}); err == nil {
		t.Error("StartApps should fail when no loader is configured")
	}
}

func TestBootWithCustomDetectors(t *testing.T) {
	cfg := DefaultParams()
	cfg.AccelDetector = &gyrocal.MockStillnessDetector{}
	cfg.GyroDetector = &gyrocal.MockStillnessDetector{}
	cfg.MagDetector = &gyrocal.MockStillnessDetector{}

	k, err := Boot(cfg, nil)
	if err != nil {
		t.Fatalf("Boot failed: %v", err)
	}
	if k.GyroCal() == nil {
		t.Fatal("expected a wired GyroCal pipeline")
	}
}
