package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chrisdamba/prepcast/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveForecastRun(t *testing.T) {
	m := New()
	m.ObserveUsage(&models.Aggregation{Processed: 35, Skipped: 10})

	start := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	hourly := models.NewUsageTable(models.Hourly, models.HourlyIndex(start, 24), []string{"bun", "lettuce", "truffle"})
	hourly.Add(12, "bun", 20)
	hourly.Add(13, "lettuce", 1.5)
	result := models.NewForecastResult(hourly, map[string]models.Method{
		"bun":     models.MethodSARIMA,
		"lettuce": models.MethodFallback,
		"truffle": models.MethodNone,
	})
	traffic := []models.TrafficRecommendation{
		{Date: start, Level: models.TrafficHigh},
		{Date: start.AddDate(0, 0, 1), Level: models.TrafficNormal},
		{Date: start.AddDate(0, 0, 2), Level: models.TrafficNormal},
	}
	m.ObserveForecast(result, traffic)

	finished := time.Date(2026, 10, 14, 18, 0, 30, 0, time.UTC)
	m.ObserveRun(finished.Add(-30*time.Second), finished, 2)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"processed", testutil.ToFloat64(m.OrderItems.WithLabelValues("processed")), 35},
		{"skipped", testutil.ToFloat64(m.OrderItems.WithLabelValues("skipped")), 10},
		{"sarima", testutil.ToFloat64(m.Forecasts.WithLabelValues("sarima")), 1},
		{"none", testutil.ToFloat64(m.Forecasts.WithLabelValues("none")), 1},
		{"normal days", testutil.ToFloat64(m.TrafficDays.WithLabelValues("Normal")), 2},
		{"units", testutil.ToFloat64(m.ForecastUnits), 21.5},
		{"duration", testutil.ToFloat64(m.RunDuration), 30},
		{"last run", testutil.ToFloat64(m.LastRunSeconds), float64(finished.Unix())},
		{"sink errors", testutil.ToFloat64(m.SinkErrors), 2},
		{"partial", testutil.ToFloat64(m.RunsPartial), 1},
		{"completed", testutil.ToFloat64(m.RunsCompleted), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestCleanRunIsNotPartial(t *testing.T) {
	m := New()
	now := time.Now()
	m.ObserveRun(now, now, 0)
	if got := testutil.ToFloat64(m.RunsPartial); got != 0 {
		t.Errorf("partial runs = %v, want 0", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveUsage(&models.Aggregation{Processed: 4})

	path := filepath.Join(t.TempDir(), "prepcast.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `prepcast_order_items_total{outcome="processed"} 4`) {
		t.Errorf("textfile missing order items:\n%s", data)
	}

	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")); err == nil {
		t.Error("expected error for a missing directory")
	}
}
