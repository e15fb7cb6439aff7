package risk

import (
	"os"
	"testing"
	"time"

	"github.com/minhvo/marketpulse/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", ""); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestCrashMonitor_DetectsDrop(t *testing.T) {
	monitor := NewCrashMonitor(3.0, 15*time.Minute)
	now := time.Now()

	monitor.RecordPrice(50000, now.Add(-10*time.Minute))
	monitor.RecordPrice(49500, now.Add(-5*time.Minute))
	monitor.RecordPrice(48000, now) // -4% from window high

	if !monitor.InCrash(now) {
		t.Error("4% drop inside the window should flag a crash")
	}
}

func TestCrashMonitor_TolerantOfSmallMoves(t *testing.T) {
	monitor := NewCrashMonitor(3.0, 15*time.Minute)
	now := time.Now()

	monitor.RecordPrice(50000, now.Add(-10*time.Minute))
	monitor.RecordPrice(49500, now) // -1%

	if monitor.InCrash(now) {
		t.Error("1% move should not flag a crash")
	}
}

func TestCrashMonitor_OldPointsExpire(t *testing.T) {
	monitor := NewCrashMonitor(3.0, 15*time.Minute)
	now := time.Now()

	monitor.RecordPrice(50000, now.Add(-30*time.Minute))
	monitor.RecordPrice(48000, now)

	if monitor.InCrash(now) {
		t.Error("The pre-drop high is outside the window and must not count")
	}
}

func TestCrashMonitor_EmptyWindow(t *testing.T) {
	monitor := NewCrashMonitor(3.0, 15*time.Minute)

	if monitor.InCrash(time.Now()) {
		t.Error("No observations must never read as a crash")
	}
}

func TestCrashMonitor_RecoveryClears(t *testing.T) {
	monitor := NewCrashMonitor(3.0, 15*time.Minute)
	now := time.Now()

	monitor.RecordPrice(50000, now.Add(-10*time.Minute))
	monitor.RecordPrice(48000, now.Add(-8*time.Minute))
	if !monitor.InCrash(now.Add(-8 * time.Minute)) {
		t.Fatal("Crash should flag on the drop")
	}

	// 20 minutes later only recovered prices remain in the window
	later := now.Add(12 * time.Minute)
	monitor.RecordPrice(49800, later)
	if monitor.InCrash(later) {
		t.Error("Crash flag should clear once the drop leaves the window")
	}
}
