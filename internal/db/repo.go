package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"healthform-validator/pkg"
)

// ErrRunNotFound is returned when no stored run matches the requested ID.
var ErrRunNotFound = errors.New("analysis run not found")

// Repository mirrors saved analysis runs into Postgres so the run history
// survives data-directory wipes and can be queried. It is an optional
// collaborator: the server runs file-only when no database is configured.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a Repository from an existing sql.DB. The caller
// is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// SaveRun inserts one analysis run. The structured record and the analysis
// are stored as JSONB alongside the raw form text.
func (r *Repository) SaveRun(ctx context.Context, run *pkg.AnalysisRun) error {
	patientData, err := json.Marshal(run.PatientData)
	if err != nil {
		return fmt.Errorf("encode patient data: %w", err)
	}
	analysis, err := json.Marshal(run.AIAnalysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO analysis_runs (id, created_at, patient_name, original_form_text, patient_data, ai_analysis, analysis_source)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Timestamp, run.PatientData.Name, run.OriginalFormText,
		patientData, analysis, string(run.AIAnalysis.Source),
	)
	return err
}

// ListRuns returns run previews, most recent first, up to limit.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]pkg.RunPreview, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, created_at, patient_name,
                COALESCE(jsonb_array_length(ai_analysis->'critical_alerts'), 0)
         FROM analysis_runs
         ORDER BY created_at DESC
         LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	previews := []pkg.RunPreview{}
	for rows.Next() {
		var p pkg.RunPreview
		if err := rows.Scan(&p.ID, &p.Timestamp, &p.PatientName, &p.AlertCount); err != nil {
			return nil, err
		}
		previews = append(previews, p)
	}
	return previews, rows.Err()
}

// GetRun loads one stored run by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*pkg.AnalysisRun, error) {
	var (
		run         pkg.AnalysisRun
		patientData []byte
		analysis    []byte
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, created_at, original_form_text, patient_data, ai_analysis
         FROM analysis_runs
         WHERE id = $1`, id,
	).Scan(&run.ID, &run.Timestamp, &run.OriginalFormText, &patientData, &analysis)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(patientData, &run.PatientData); err != nil {
		return nil, fmt.Errorf("decode patient data: %w", err)
	}
	if err := json.Unmarshal(analysis, &run.AIAnalysis); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &run, nil
}
