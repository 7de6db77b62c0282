package usage_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smartirrigation/device-agent/internal/usage"
)

func TestSamePeriodMergesBySummation(t *testing.T) {
	a := usage.NewAccumulator()

	a.Record("2025/06", 1.5)
	rec := a.Record("2025/06", 2.5)

	require.Equal(t, usage.Record{Period: "2025/06", WaterUsed: 4.0}, rec)
	require.Len(t, a.Records(), 1)
}

func TestDistinctPeriodsAppend(t *testing.T) {
	a := usage.NewAccumulator()

	a.Record("2025/05", 1.0)
	a.Record("2025/06", 2.0)

	recs := a.Records()
	require.Len(t, recs, 2)
	require.Equal(t, usage.Record{Period: "2025/05", WaterUsed: 1.0}, recs[0])
	require.Equal(t, usage.Record{Period: "2025/06", WaterUsed: 2.0}, recs[1])
}

func TestLateRecordMergesIntoPastPeriod(t *testing.T) {
	a := usage.NewAccumulator()

	a.Record("2025/05", 1.0)
	a.Record("2025/06", 2.0)
	rec := a.Record("2025/05", 0.5)

	require.Equal(t, usage.Record{Period: "2025/05", WaterUsed: 1.5}, rec)
	require.Len(t, a.Records(), 2)
}

func TestRecordsReturnsCopy(t *testing.T) {
	a := usage.NewAccumulator()
	a.Record("2025/06", 1.0)

	recs := a.Records()
	recs[0].WaterUsed = 99

	require.Equal(t, 1.0, a.Records()[0].WaterUsed)
}

func TestPeriodOf(t *testing.T) {
	ts := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
	require.Equal(t, "2025/06", usage.PeriodOf(ts))
}
