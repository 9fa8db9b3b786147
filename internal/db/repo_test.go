package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthform-validator/pkg"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Repository) {
	dbConn, mock, err := sqlmock.New()
	require.NoError(t, err)
	return dbConn, mock, NewRepository(dbConn)
}

func sampleRun() *pkg.AnalysisRun {
	rec := pkg.NewPatientRecord()
	rec.Name = "Jane Doe"
	rec.Age = 70

	analysis := pkg.NewAnalysisResult(pkg.SourceLive)
	analysis.CriticalAlerts = append(analysis.CriticalAlerts, pkg.Finding{
		Severity: pkg.SeverityHigh,
		Message:  "BP critical",
	})

	return &pkg.AnalysisRun{
		ID:               uuid.New().String(),
		Timestamp:        time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		PatientData:      rec,
		AIAnalysis:       analysis,
		OriginalFormText: "Patient Name: Jane Doe",
	}
}

func TestSaveRun(t *testing.T) {
	dbConn, mock, repo := setupMockDB(t)
	defer dbConn.Close()

	run := sampleRun()

	mock.ExpectExec(`INSERT INTO analysis_runs`).
		WithArgs(run.ID, run.Timestamp, "Jane Doe", run.OriginalFormText,
			sqlmock.AnyArg(), sqlmock.AnyArg(), "live").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveRun(context.Background(), run)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRuns(t *testing.T) {
	dbConn, mock, repo := setupMockDB(t)
	defer dbConn.Close()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "created_at", "patient_name", "coalesce"}).
		AddRow("run-2", now.Add(time.Minute), "Second", 2).
		AddRow("run-1", now, "First", 0)

	mock.ExpectQuery(`SELECT id, created_at, patient_name`).
		WithArgs(50).
		WillReturnRows(rows)

	previews, err := repo.ListRuns(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, previews, 2)
	assert.Equal(t, "run-2", previews[0].ID)
	assert.Equal(t, 2, previews[0].AlertCount)
	assert.Equal(t, "First", previews[1].PatientName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRun(t *testing.T) {
	dbConn, mock, repo := setupMockDB(t)
	defer dbConn.Close()

	run := sampleRun()
	patientData, err := json.Marshal(run.PatientData)
	require.NoError(t, err)
	analysis, err := json.Marshal(run.AIAnalysis)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "created_at", "original_form_text", "patient_data", "ai_analysis"}).
		AddRow(run.ID, run.Timestamp, run.OriginalFormText, patientData, analysis)

	mock.ExpectQuery(`SELECT id, created_at, original_form_text`).
		WithArgs(run.ID).
		WillReturnRows(rows)

	got, err := repo.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRun_NotFound(t *testing.T) {
	dbConn, mock, repo := setupMockDB(t)
	defer dbConn.Close()

	mock.ExpectQuery(`SELECT id, created_at, original_form_text`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
