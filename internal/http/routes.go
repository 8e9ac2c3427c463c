package http

import (
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/Lllllllleong/rfpsynth/internal/docx"
	"github.com/Lllllllleong/rfpsynth/internal/models"
	"github.com/Lllllllleong/rfpsynth/internal/services"
	"github.com/Lllllllleong/rfpsynth/internal/storage"
	"github.com/Lllllllleong/rfpsynth/internal/tasks"
)

type API struct {
	registry *tasks.Registry
	store    storage.Store
	pipeline *services.Pipeline
	provider string
}

func NewAPI(registry *tasks.Registry, store storage.Store, pipeline *services.Pipeline, providerName string) *API {
	return &API{registry: registry, store: store, pipeline: pipeline, provider: providerName}
}

func registerRoutes(r *gin.Engine, api *API, uploadLimit int64) {
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", api.handleHealth)

		rfp := apiGroup.Group("/rfp")
		rfp.POST("/upload-and-generate", MaxBodySize(uploadLimit), api.handleUploadAndGenerate)
		rfp.GET("/status/:task_id", api.handleStatus)
		rfp.GET("/download/:task_id", api.handleDownload)
		rfp.GET("/tasks", api.handleListTasks)
	}
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "provider": a.provider})
}

func (a *API) handleUploadAndGenerate(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondMessage(c, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		respondMessage(c, http.StatusBadRequest, "expected multipart form with 'files'")
		return
	}

	files := form.File["files"]
	names := make([]string, len(files))
	for i, fh := range files {
		names[i] = fh.Filename
	}
	if err := a.pipeline.Validate(names); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	docs := make([]models.SourceDocument, 0, len(files))
	for _, fh := range files {
		doc, err := a.saveUpload(c, fh)
		if err != nil {
			if errors.Is(err, storage.ErrFileTooLarge) {
				respondError(c, http.StatusRequestEntityTooLarge, err)
				return
			}
			slog.Error("Failed to store upload", "file", fh.Filename, "error", err)
			respondMessage(c, http.StatusInternalServerError, "unable to store uploaded file")
			return
		}
		docs = append(docs, doc)
	}

	record, err := a.pipeline.Start(ctx, docs)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	c.JSON(http.StatusAccepted, models.SubmitResponse{
		TaskID:  record.ID,
		Message: "RFP generation started.",
	})
}

func (a *API) saveUpload(c *gin.Context, fh *multipart.FileHeader) (models.SourceDocument, error) {
	upload, err := fh.Open()
	if err != nil {
		return models.SourceDocument{}, errors.Wrap(err, "open uploaded file")
	}
	defer upload.Close()
	return a.store.SaveUpload(c.Request.Context(), fh.Filename, upload)
}

func (a *API) handleStatus(c *gin.Context) {
	record, err := a.registry.Get(c.Param("task_id"))
	if err != nil {
		respondMessage(c, http.StatusNotFound, "task not found")
		return
	}
	c.JSON(http.StatusOK, record)
}

func (a *API) handleListTasks(c *gin.Context) {
	c.JSON(http.StatusOK, a.registry.List())
}

func (a *API) handleDownload(c *gin.Context) {
	record, err := a.registry.Get(c.Param("task_id"))
	if err != nil {
		respondMessage(c, http.StatusNotFound, "task not found")
		return
	}

	format := c.DefaultQuery("format", "docx")
	artifact, err := services.ArtifactPath(record, format)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrNotReady):
		respondError(c, http.StatusConflict, err)
		return
	case errors.Is(err, services.ErrNoPDF):
		respondError(c, http.StatusNotFound, err)
		return
	default:
		respondError(c, http.StatusBadRequest, err)
		return
	}

	rc, err := a.store.Open(c.Request.Context(), artifact)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondMessage(c, http.StatusNotFound, "result file is missing")
			return
		}
		slog.Error("Failed to open result", "taskId", record.ID, "path", artifact, "error", err)
		respondMessage(c, http.StatusInternalServerError, "unable to read result file")
		return
	}
	defer rc.Close()

	contentType := docx.MIMEType
	if format == "pdf" {
		contentType = "application/pdf"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, rc, map[string]string{
		"Content-Disposition": `attachment; filename="` + path.Base(artifact) + `"`,
	})
}

func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, models.ErrorResponse{Error: err.Error(), Hint: errors.FlattenHints(err)})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, models.ErrorResponse{Error: message})
}
