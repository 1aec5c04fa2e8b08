package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goodtune/posturr/internal/stats"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTodayObserverSetsGauges(t *testing.T) {
	day := time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local)
	o := NewTodayObserver(stats.NewDailyRecord(day))

	o.Observe(stats.DailyRecord{Date: day, TotalSeconds: 100, SlouchSeconds: 25, SlouchCount: 2})

	if got := testutil.ToFloat64(TodayTotalSeconds); got != 100 {
		t.Errorf("total seconds = %v, want 100", got)
	}
	if got := testutil.ToFloat64(TodaySlouchSeconds); got != 25 {
		t.Errorf("slouch seconds = %v, want 25", got)
	}
	if got := testutil.ToFloat64(TodaySlouchCount); got != 2 {
		t.Errorf("slouch count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(TodayPostureScore); got != 75 {
		t.Errorf("posture score = %v, want 75", got)
	}
}

func TestTodayObserverCountsEventsAndRollovers(t *testing.T) {
	day := time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local)
	o := NewTodayObserver(stats.NewDailyRecord(day))

	events := testutil.ToFloat64(SlouchEventsTotal)
	rollovers := testutil.ToFloat64(RolloversTotal)

	o.Observe(stats.DailyRecord{Date: day, SlouchCount: 1})
	o.Observe(stats.DailyRecord{Date: day, SlouchCount: 2})
	o.Observe(stats.DailyRecord{Date: day, TotalSeconds: 5, SlouchCount: 2})

	if got := testutil.ToFloat64(SlouchEventsTotal) - events; got != 2 {
		t.Errorf("slouch events delta = %v, want 2", got)
	}

	next := day.AddDate(0, 0, 1)
	o.Observe(stats.DailyRecord{Date: next, SlouchCount: 1})

	if got := testutil.ToFloat64(RolloversTotal) - rollovers; got != 1 {
		t.Errorf("rollovers delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(SlouchEventsTotal) - events; got != 3 {
		t.Errorf("slouch events delta = %v, want 3", got)
	}
}

func TestStorageSinkCountsByOp(t *testing.T) {
	before := testutil.ToFloat64(StorageErrorsTotal.WithLabelValues(stats.OpSave))

	StorageSink{}.StorageFailed(&stats.StorageError{Op: stats.OpSave, Err: io.ErrShortWrite})

	if got := testutil.ToFloat64(StorageErrorsTotal.WithLabelValues(stats.OpSave)) - before; got != 1 {
		t.Errorf("save errors delta = %v, want 1", got)
	}
}

func TestObserveTrack(t *testing.T) {
	before := testutil.ToFloat64(TrackCallsTotal.WithLabelValues("true"))
	ObserveTrack(true)
	if got := testutil.ToFloat64(TrackCallsTotal.WithLabelValues("true")) - before; got != 1 {
		t.Errorf("track calls delta = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Errorf("health = %d %q, want 200 OK", resp.StatusCode, body)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "posturr_today_posture_score") {
		t.Error("metrics output missing posturr_today_posture_score")
	}
}
