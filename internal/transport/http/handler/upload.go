package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"medtree/internal/app"
	"medtree/internal/model"
	"medtree/internal/pkg/pdfextract"
	"medtree/internal/platform/logger"
	"medtree/internal/transport/http/response"
)

const (
	uploadFieldName = "pdfFile"
	pdfContentType  = "application/pdf"

	// multipartOverhead leaves room for part headers and boundaries on top of
	// the file size limit.
	multipartOverhead = 1 << 20
)

type UploadHandler struct {
	structureService *app.StructureService
	log              *logger.Logger
	maxBytes         int64
	dev              bool
}

type UploadMetadata struct {
	OriginalLength  int                `json:"originalLength"`
	ChunksProcessed int                `json:"chunksProcessed"`
	ChunksFailed    int                `json:"chunksFailed"`
	Filename        string             `json:"filename"`
	Failures        []app.ChunkFailure `json:"failures,omitempty"`
}

type UploadResponse struct {
	Success  bool                `json:"success"`
	Tree     *model.LearningNode `json:"tree"`
	Metadata UploadMetadata      `json:"metadata"`
}

func NewUploadHandler(structureService *app.StructureService, log *logger.Logger, maxBytes int64, dev bool) *UploadHandler {
	return &UploadHandler{
		structureService: structureService,
		log:              log,
		maxBytes:         maxBytes,
		dev:              dev,
	}
}

func (h *UploadHandler) UploadPDF(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)

	fileHeader, err := c.FormFile(uploadFieldName)
	if err != nil {
		if isBodyTooLarge(err) {
			h.fileTooLarge(c)
			return
		}
		response.Error(c, http.StatusBadRequest, "No file uploaded", "Please upload a PDF file")
		return
	}
	if !isPDF(fileHeader.Header.Get("Content-Type")) {
		response.Error(c, http.StatusBadRequest, "Invalid file type", "Only PDF files are allowed!")
		return
	}
	if fileHeader.Size == 0 {
		response.Error(c, http.StatusBadRequest, "No file uploaded", "Please upload a PDF file")
		return
	}
	if fileHeader.Size > h.maxBytes {
		h.fileTooLarge(c)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.processingFailed(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.processingFailed(c, err)
		return
	}

	doc, err := pdfextract.ExtractText(data)
	if err != nil {
		h.processingFailed(c, err)
		return
	}
	h.log.Info("pdf text extracted", "filename", fileHeader.Filename, "pages", doc.Pages, "chars", len(doc.Text))

	result, err := h.structureService.Analyze(c.Request.Context(), app.AnalyzeInput{
		Filename: fileHeader.Filename,
		Text:     doc.Text,
	})
	if err != nil {
		if errors.Is(err, app.ErrEmptyDocument) {
			response.Error(c, http.StatusBadRequest, "Empty PDF", "The PDF appears to be empty or contains no extractable text")
			return
		}
		h.processingFailed(c, err)
		return
	}

	response.OK(c, UploadResponse{
		Success: true,
		Tree:    result.Tree,
		Metadata: UploadMetadata{
			OriginalLength:  result.OriginalLength,
			ChunksProcessed: result.ChunksProcessed,
			ChunksFailed:    result.ChunksFailed,
			Filename:        result.Filename,
			Failures:        result.Failures,
		},
	})
}

func (h *UploadHandler) fileTooLarge(c *gin.Context) {
	response.Error(c, http.StatusRequestEntityTooLarge, "File too large",
		fmt.Sprintf("The PDF must not exceed %d MB", h.maxBytes>>20))
}

func (h *UploadHandler) processingFailed(c *gin.Context, err error) {
	h.log.Error("pdf processing failed", "error", err)
	_ = c.Error(err)
	details := ""
	if h.dev {
		details = string(debug.Stack())
	}
	response.ErrorWithDetails(c, http.StatusInternalServerError, "Processing failed", err.Error(), details)
}

func isPDF(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.EqualFold(mediaType, pdfContentType)
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
