package http

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"healthform-validator/internal/core"
	"healthform-validator/internal/db"
	"healthform-validator/internal/store"
	"healthform-validator/pkg"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxUploadBytes caps uploaded form files. Intake forms are a few KB of
// text; anything near this limit is not a form.
const maxUploadBytes = 1 << 20

// Server bundles the dependencies required by the HTTP handlers. The
// Postgres repository is optional; when nil, listings come from the file
// store alone.
type Server struct {
	Analyzer     *core.Analyzer
	Store        *store.Store
	Repo         *db.Repository
	Log          zerolog.Logger
	HistoryLimit int

	templates *template.Template
}

// NewServer constructs a Server and parses its embedded templates.
func NewServer(analyzer *core.Analyzer, fileStore *store.Store, repo *db.Repository, log zerolog.Logger, historyLimit int) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		Analyzer:     analyzer,
		Store:        fileStore,
		Repo:         repo,
		Log:          log,
		HistoryLimit: historyLimit,
		templates:    tmpl,
	}, nil
}

// RegisterRoutes attaches all handlers to the echo instance.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/", s.handleIndex)
	e.GET("/health", s.handleHealth)
	e.POST("/api/analyses", s.handleCreateAnalysis)
	e.GET("/api/analyses", s.handleListAnalyses)
	e.GET("/api/analyses/:id", s.handleGetAnalysis)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleIndex renders the form-input page with the recent-analyses sidebar.
func (s *Server) handleIndex(c echo.Context) error {
	previews, err := s.listPreviews(c)
	if err != nil {
		s.Log.Warn().Err(err).Msg("failed to list recent analyses")
		previews = []pkg.RunPreview{}
	}
	data := struct {
		Recent []pkg.RunPreview
	}{previews}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	return s.templates.ExecuteTemplate(c.Response(), "index.html", data)
}

// analysisResponse is the full run envelope plus persistence diagnostics.
// Warning is set when the analysis succeeded but saving it did not.
type analysisResponse struct {
	pkg.AnalysisRun
	SavedPath string `json:"saved_path,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

// handleCreateAnalysis runs the full pipeline for one submission: read the
// form text (pasted or uploaded), extract, analyze, persist. Input errors
// are the only failures surfaced as errors; analysis itself always produces
// a result and persistence failure degrades to a warning field.
func (s *Server) handleCreateAnalysis(c echo.Context) error {
	formText, err := s.readFormText(c)
	if err != nil {
		return err
	}
	if strings.TrimSpace(formText) == "" {
		return echo.NewHTTPError(http.StatusBadRequest,
			"Please paste medical form text or upload a text file before analyzing.")
	}

	ctx := c.Request().Context()
	record := core.Extract(formText)
	analysis := s.Analyzer.Analyze(ctx, record)

	run := pkg.AnalysisRun{
		ID:               uuid.New().String(),
		Timestamp:        time.Now().UTC(),
		PatientData:      record,
		AIAnalysis:       analysis,
		OriginalFormText: formText,
	}

	resp := analysisResponse{AnalysisRun: run}
	path, err := s.Store.Save(run)
	if err != nil {
		s.Log.Warn().Err(err).Msg("failed to save analysis run")
		resp.Warning = "Analysis completed but could not be saved to disk."
	} else {
		resp.SavedPath = path
	}

	if s.Repo != nil {
		if err := s.Repo.SaveRun(ctx, &run); err != nil {
			s.Log.Warn().Err(err).Str("run_id", run.ID).Msg("failed to record run in history database")
		}
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleListAnalyses(c echo.Context) error {
	previews, err := s.listPreviews(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, previews)
}

func (s *Server) handleGetAnalysis(c echo.Context) error {
	id := c.Param("id")

	var (
		run *pkg.AnalysisRun
		err error
	)
	if s.Repo != nil {
		run, err = s.Repo.GetRun(c.Request().Context(), id)
		if errors.Is(err, db.ErrRunNotFound) {
			run, err = s.Store.Get(id)
		}
	} else {
		run, err = s.Store.Get(id)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, db.ErrRunNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "analysis not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) listPreviews(c echo.Context) ([]pkg.RunPreview, error) {
	if s.Repo != nil {
		return s.Repo.ListRuns(c.Request().Context(), s.HistoryLimit)
	}
	return s.Store.List(s.HistoryLimit)
}

// readFormText pulls the submitted form text from whichever vehicle the
// client used: a multipart file upload, a form field, or a JSON body.
// Uploaded files must be plain text; PDFs and other binary types are
// rejected with guidance rather than processed.
func (s *Server) readFormText(c echo.Context) (string, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)

	if strings.HasPrefix(contentType, echo.MIMEApplicationJSON) {
		var body struct {
			Text string `json:"text"`
		}
		if err := c.Bind(&body); err != nil {
			return "", echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
		}
		return body.Text, nil
	}

	if file, err := c.FormFile("file"); err == nil && file != nil {
		return s.readUpload(file)
	}

	return c.FormValue("text"), nil
}

func (s *Server) readUpload(file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == ".pdf" {
		return "", echo.NewHTTPError(http.StatusUnsupportedMediaType,
			"PDF upload detected. Please copy and paste the text content instead.")
	}
	if ext != "" && ext != ".txt" {
		return "", echo.NewHTTPError(http.StatusUnsupportedMediaType,
			"Unsupported file type. Please upload a text file or paste the content directly.")
	}
	if file.Size > maxUploadBytes {
		return "", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "uploaded file is too large")
	}

	f, err := file.Open()
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
	}
	if !utf8.Valid(data) {
		return "", echo.NewHTTPError(http.StatusUnsupportedMediaType,
			"Uploaded file is not valid text. Please upload a text file or paste the content directly.")
	}
	return string(data), nil
}
