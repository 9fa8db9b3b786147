package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthform-validator/pkg"
)

func testRun(ts time.Time, name string) pkg.AnalysisRun {
	rec := pkg.NewPatientRecord()
	rec.Name = name
	rec.Age = 70
	rec.VitalSigns = map[string]string{
		pkg.VitalBloodPressure: "180/110",
		pkg.VitalHeartRate:     "95",
		pkg.VitalTemperature:   "101.2F",
	}

	analysis := pkg.NewAnalysisResult(pkg.SourceFallback)
	analysis.CriticalAlerts = append(analysis.CriticalAlerts, pkg.Finding{
		Severity: pkg.SeverityHigh,
		Message:  "HYPERTENSIVE CRISIS",
	})

	return pkg.AnalysisRun{
		ID:               uuid.New().String(),
		Timestamp:        ts,
		PatientData:      rec,
		AIAnalysis:       analysis,
		OriginalFormText: "Patient Name: " + name,
	}
}

func TestStore_SaveAndGetRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	run := testRun(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), "Jane Doe")
	path, err := s.Save(run)
	require.NoError(t, err)
	assert.Contains(t, path, "patient_form_20260830_120000.json")

	got, err := s.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, &run, got)
}

func TestStore_GetUnknownID(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get("does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListMostRecentFirst(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	first := testRun(base, "First")
	second := testRun(base.Add(time.Minute), "Second")
	third := testRun(base.Add(2*time.Minute), "Third")

	for _, run := range []pkg.AnalysisRun{first, second, third} {
		_, err := s.Save(run)
		require.NoError(t, err)
	}

	previews, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, previews, 3)
	assert.Equal(t, "Third", previews[0].PatientName)
	assert.Equal(t, "Second", previews[1].PatientName)
	assert.Equal(t, "First", previews[2].PatientName)
	assert.Equal(t, 1, previews[0].AlertCount)
}

func TestStore_ListHonorsLimit(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.Save(testRun(base.Add(time.Duration(i)*time.Minute), "P"))
		require.NoError(t, err)
	}

	previews, err := s.List(2)
	require.NoError(t, err)
	assert.Len(t, previews, 2)
}

func TestStore_ListEmptyDir(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	previews, err := s.List(10)
	require.NoError(t, err)
	assert.Empty(t, previews)
	assert.NotNil(t, previews)
}
