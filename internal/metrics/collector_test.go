package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorEmptySnapshot(t *testing.T) {
	c := NewCollector()
	snap := c.Snapshot()

	if snap.Turns != nil || snap.Exports != nil {
		t.Errorf("expected nil operation snapshots, got %+v", snap)
	}
	if len(snap.Outcomes) != 0 {
		t.Errorf("expected no outcomes, got %v", snap.Outcomes)
	}
}

func TestCollectorRecordSubmit(t *testing.T) {
	c := NewCollector()
	c.RecordSubmit("normal", 100*time.Millisecond, 10, 5)
	c.RecordSubmit("normal", 300*time.Millisecond, 20, 15)
	c.RecordSubmit("error", 50*time.Millisecond, 0, 0)

	snap := c.Snapshot()
	if snap.Turns == nil {
		t.Fatal("expected turn snapshot")
	}
	if snap.Turns.Count != 3 {
		t.Errorf("Count = %d, want 3", snap.Turns.Count)
	}
	if snap.Turns.MinTimeMs != 50 || snap.Turns.MaxTimeMs != 300 {
		t.Errorf("min/max = %d/%d, want 50/300", snap.Turns.MinTimeMs, snap.Turns.MaxTimeMs)
	}
	if snap.Turns.TotalTimeMs != 450 {
		t.Errorf("TotalTimeMs = %d, want 450", snap.Turns.TotalTimeMs)
	}
	if snap.Turns.InputTokens == nil || *snap.Turns.InputTokens != 30 {
		t.Errorf("InputTokens = %v, want 30", snap.Turns.InputTokens)
	}
	if snap.Turns.OutputTokens == nil || *snap.Turns.OutputTokens != 20 {
		t.Errorf("OutputTokens = %v, want 20", snap.Turns.OutputTokens)
	}
	if snap.Outcomes["normal"] != 2 || snap.Outcomes["error"] != 1 {
		t.Errorf("Outcomes = %v", snap.Outcomes)
	}
}

func TestCollectorNoTokens(t *testing.T) {
	c := NewCollector()
	c.RecordSubmit("blocked", time.Millisecond, 0, 0)

	snap := c.Snapshot()
	if snap.Turns.InputTokens != nil || snap.Turns.OutputTokens != nil {
		t.Errorf("expected nil token stats, got %+v", snap.Turns)
	}
}

func TestCollectorSnapshotIsCopy(t *testing.T) {
	c := NewCollector()
	c.RecordSubmit("normal", time.Millisecond, 0, 0)

	snap := c.Snapshot()
	snap.Outcomes["normal"] = 99

	if got := c.Snapshot().Outcomes["normal"]; got != 1 {
		t.Errorf("collector state changed through snapshot: %d", got)
	}
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordSubmit("normal", time.Millisecond, 1, 1)
			c.RecordTiming(OpExport, time.Millisecond)
			c.SessionStarted()
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	if snap.Turns.Count != 20 || snap.Exports.Count != 20 || snap.Sessions != 20 {
		t.Errorf("unexpected counts: turns=%d exports=%d sessions=%d", snap.Turns.Count, snap.Exports.Count, snap.Sessions)
	}
}

func TestPrometheusRecordSubmit(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "gemini-test")

	p.RecordSubmit("normal", 2*time.Second, 100, 20)
	p.RecordSubmit("blocked", time.Second, 0, 0)

	if got := testutil.ToFloat64(p.TurnsTotal.WithLabelValues("gemini-test", "normal")); got != 1 {
		t.Errorf("normal turns = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.TurnsTotal.WithLabelValues("gemini-test", "blocked")); got != 1 {
		t.Errorf("blocked turns = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.TokensTotal.WithLabelValues("gemini-test", "input")); got != 100 {
		t.Errorf("input tokens = %v, want 100", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{"profilechat_turns_total", "profilechat_turn_duration_seconds", "profilechat_tokens_total", "profilechat_sessions_active"} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestTee(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	Tee{a, b}.RecordSubmit("normal", time.Millisecond, 1, 1)

	if a.Snapshot().Turns.Count != 1 || b.Snapshot().Turns.Count != 1 {
		t.Error("expected both collectors to record")
	}
}
