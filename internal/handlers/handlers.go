package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"image"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/plantify/internal/analysis"
	"github.com/Brownie44l1/plantify/internal/diagnosis"
	"github.com/Brownie44l1/plantify/internal/imaging"
	"github.com/Brownie44l1/plantify/internal/model"
	"github.com/Brownie44l1/plantify/internal/web"
)

// MaxUploadSize caps one uploaded image.
const MaxUploadSize = 10 << 20

type Handler struct {
	svc    *analysis.Service
	logger *zap.Logger
}

func NewHandler(svc *analysis.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.Named("handlers")}
}

// RegisterRoutes wires the page, the JSON API and the health check.
func RegisterRoutes(router *gin.Engine, h *Handler) error {
	tmpl, err := web.Templates()
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)
	router.MaxMultipartMemory = MaxUploadSize

	router.GET("/health", h.Health)
	router.GET("/", h.Index)
	router.POST("/", limitUpload(), h.Analyze)

	api := router.Group("/api", enableCORS())
	api.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusOK) })
	api.POST("/predict", h.Predict)
	api.POST("/predict/image", limitUpload(), h.PredictFromImage)
	return nil
}

func (h *Handler) Health(c *gin.Context) {
	status := http.StatusOK
	if !h.svc.Ready() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status": "healthy",
		"ready":  h.svc.Ready(),
		"errors": h.svc.Errors(),
	})
}

func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, web.PageTemplate, h.page(imaging.ParseMode(c.Query("mode"))))
}

// Analyze handles the page form: decode, preview, classify, render.
func (h *Handler) Analyze(c *gin.Context) {
	mode := imaging.ParseMode(c.PostForm("mode"))
	page := h.page(mode)

	img, status, err := h.readImage(c, mode)
	if err != nil {
		page.InputError = inputErrorMessage(err)
		c.HTML(status, web.PageTemplate, page)
		return
	}

	if preview, err := imaging.PreviewDataURI(img); err != nil {
		h.logger.Warn("failed to build preview", zap.Error(err))
	} else {
		page.Preview = template.URL(preview)
	}

	if !page.Ready {
		c.HTML(http.StatusServiceUnavailable, web.PageTemplate, page)
		return
	}

	outcome, err := h.svc.AnalyzeInteractive(c.Request.Context(), img)
	if err != nil {
		page.Error = analysisErrorMessage(err)
		c.HTML(statusFor(err), web.PageTemplate, page)
		return
	}
	page.Outcome = outcome
	c.HTML(http.StatusOK, web.PageTemplate, page)
}

// Predict classifies a raw preprocessed tensor.
func (h *Handler) Predict(c *gin.Context) {
	var req model.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	outcome, err := h.svc.AnalyzeTensor(c.Request.Context(), req.Image)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": analysisErrorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, predictionResponse(outcome))
}

// PredictFromImage classifies an uploaded image and returns JSON.
func (h *Handler) PredictFromImage(c *gin.Context) {
	img, status, err := h.readImage(c, imaging.ModeUpload)
	if err != nil {
		c.JSON(status, gin.H{"error": inputErrorMessage(err)})
		return
	}

	outcome, err := h.svc.Analyze(c.Request.Context(), img)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": analysisErrorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, predictionResponse(outcome))
}

func (h *Handler) page(mode imaging.Mode) web.Page {
	return web.Page{
		Mode:       mode,
		LoadErrors: h.svc.Errors(),
		Ready:      h.svc.Ready(),
	}
}

var errNoImage = errors.New("no image provided")

func (h *Handler) readImage(c *gin.Context, mode imaging.Mode) (image.Image, int, error) {
	file, err := c.FormFile(mode.FormField())
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, err
		}
		return nil, http.StatusBadRequest, errNoImage
	}
	if file.Size > MaxUploadSize {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file is larger than %d bytes", MaxUploadSize)
	}

	src, err := file.Open()
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	defer src.Close()

	h.logger.Debug("received file",
		zap.String("filename", file.Filename),
		zap.Int64("size", file.Size),
		zap.String("mode", string(mode)))

	img, err := h.svc.Decode(src, file.Filename, mode)
	if err != nil {
		return nil, statusFor(err), err
	}
	return img, http.StatusOK, nil
}

func predictionResponse(o *analysis.Outcome) gin.H {
	return gin.H{
		"request_id":         o.RequestID,
		"class":              o.Prediction.Class,
		"confidence":         o.Prediction.Confidence,
		"confidence_percent": o.Prediction.ConfidencePercent(),
		"tier":               o.Prediction.Tier,
		"message":            o.Prediction.Tier.Message(),
		"predictions":        o.Prediction.Predictions,
		"report":             o.Report,
	}
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, imaging.ErrDecode), errors.Is(err, model.ErrShapeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func inputErrorMessage(err error) string {
	switch {
	case errors.Is(err, errNoImage):
		return web.IdleMessage
	case errors.Is(err, imaging.ErrUnsupportedFormat), errors.Is(err, imaging.ErrDecode):
		return fmt.Sprintf("Error opening image file: %v. Please try a different file.", err)
	default:
		return fmt.Sprintf("Error reading upload: %v", err)
	}
}

func analysisErrorMessage(err error) string {
	switch {
	case errors.Is(err, analysis.ErrNotReady):
		return web.NotReadyMessage
	case errors.Is(err, diagnosis.ErrLabelMismatch):
		return "Configuration error: the class label list does not match the model output."
	case errors.Is(err, model.ErrShapeMismatch):
		return err.Error()
	default:
		return "Prediction failed. Please try again."
	}
}
