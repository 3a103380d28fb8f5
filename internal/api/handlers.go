// Package api exposes the HTTP surface: document intake/download, job
// submission and the read-side queries. All transaction and queue handling
// lives in the service layer; handlers only translate requests and errors.
package api

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kuldoc/ocrflow/internal/domain"
	"github.com/kuldoc/ocrflow/internal/service"
)

type Handler struct {
	documents *service.DocumentService
	jobs      *service.JobService
	logger    *zap.Logger
}

func NewHandler(documents *service.DocumentService, jobs *service.JobService, logger *zap.Logger) *Handler {
	return &Handler{documents: documents, jobs: jobs, logger: logger}
}

func (h *Handler) uploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "missing file field"})
		return
	}

	declared := c.PostForm("file_type")
	if declared == "" {
		declared = strings.TrimPrefix(path.Ext(fileHeader.Filename), ".")
	}
	fileType, err := domain.ParseFileType(declared)
	if err != nil {
		h.respondError(c, err)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "unreadable file"})
		return
	}
	defer f.Close()

	doc, err := h.documents.Upload(c.Request.Context(), f, fileHeader.Filename, fileType, fileHeader.Size)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toDocumentResponse(doc))
}

func (h *Handler) listDocuments(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}

func (h *Handler) getDocument(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) downloadDocument(c *gin.Context) {
	stream, contentType, filename, err := h.documents.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer stream.Close()

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := copyStream(c, stream); err != nil {
		h.logger.Warn("document download interrupted",
			zap.String("document_id", c.Param("id")), zap.Error(err))
	}
}

func (h *Handler) getLatestResultForDocument(c *gin.Context) {
	_, result, err := h.documents.GetWithLatestResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "no completed job for document"})
		return
	}
	c.JSON(http.StatusOK, toResultResponse(result))
}

func (h *Handler) submitJob(c *gin.Context) {
	job, err := h.jobs.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toJobResponse(job))
}

func (h *Handler) listJobs(c *gin.Context) {
	filter := service.JobFilter{
		Status:     domain.JobStatus(c.Query("status")),
		DocumentID: c.Query("document_id"),
	}
	jobs, err := h.jobs.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobListResponse(jobs))
}

func (h *Handler) getJob(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}

func (h *Handler) getJobResult(c *gin.Context) {
	result, err := h.jobs.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResultResponse(result))
}

func (h *Handler) retryJob(c *gin.Context) {
	job, err := h.jobs.RetryFailed(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toJobResponse(job))
}

// respondError maps domain errors to HTTP statuses. Anything unmatched is a
// 500 with the detail kept out of the response body.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound),
		errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrResultNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrDuplicateJob):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrUnsupportedType):
		c.JSON(http.StatusUnsupportedMediaType, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrFileUpload), errors.Is(err, domain.ErrFileDownload):
		h.logger.Error("storage error", zap.Error(err))
		c.JSON(http.StatusBadGateway, errorResponse{Error: "storage backend error"})
	default:
		h.logger.Error("internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
