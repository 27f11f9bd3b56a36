package retention

import (
	"context"
	"testing"
	"time"

	"squashd/pkg/archive"
	"squashd/pkg/config"
	"squashd/pkg/models"
)

func openTestLog(t *testing.T) *archive.Log {
	t.Helper()
	log, err := archive.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func TestStartDisabledIsNoop(t *testing.T) {
	cancel, err := Start(context.Background(), config.RetentionConfig{}, openTestLog(t))
	if err != nil {
		t.Fatalf("disabled start: %v", err)
	}
	cancel()
}

func TestStartRejectsBadConfig(t *testing.T) {
	log := openTestLog(t)
	if _, err := Start(context.Background(), config.RetentionConfig{Enabled: true, Period: "soon"}, log); err == nil {
		t.Fatalf("invalid period accepted")
	}
	cfg := config.RetentionConfig{Enabled: true, Period: "720h", Cron: "not a cron"}
	if _, err := Start(context.Background(), cfg, log); err == nil {
		t.Fatalf("invalid cron accepted")
	}
}

func TestStartValid(t *testing.T) {
	log := openTestLog(t)
	cfg := config.RetentionConfig{Enabled: true, Period: "720h", Cron: "0 2 * * *"}
	cancel, err := Start(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()
}

func TestRunOnce(t *testing.T) {
	log := openTestLog(t)
	if err := log.Record([]models.Message{{ID: "m1", Chat: "c1", Text: "x"}}); err != nil {
		t.Fatalf("record: %v", err)
	}

	// a huge period keeps everything
	if err := RunOnce(log, 24*time.Hour); err != nil {
		t.Fatalf("run once: %v", err)
	}
	recs, err := log.List("c1", 0)
	if err != nil || len(recs) != 1 {
		t.Fatalf("record pruned too early: %d, %v", len(recs), err)
	}

	// a negative period moves the cutoff into the future and sweeps all
	if err := RunOnce(log, -time.Hour); err != nil {
		t.Fatalf("run once: %v", err)
	}
	recs, err = log.List("c1", 0)
	if err != nil || len(recs) != 0 {
		t.Fatalf("record not pruned: %d, %v", len(recs), err)
	}
}
