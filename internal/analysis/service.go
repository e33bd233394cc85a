// Package analysis runs one leaf image through preprocessing, inference and
// interpretation.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brownie44l1/plantify/internal/catalog"
	"github.com/Brownie44l1/plantify/internal/diagnosis"
	"github.com/Brownie44l1/plantify/internal/imaging"
	"github.com/Brownie44l1/plantify/internal/logging"
	"github.com/Brownie44l1/plantify/internal/model"
)

// ErrNotReady is returned when a required resource failed to load.
var ErrNotReady = errors.New("app is not fully loaded")

// Resources is the subset of the resource bundle the pipeline reads.
type Resources interface {
	Classifier() (model.Classifier, error)
	Labels() (catalog.Labels, error)
	DiseaseInfo() (catalog.DiseaseInfo, error)
	Ready() bool
	Errors() []string
}

// Outcome is the result of one analysis.
type Outcome struct {
	RequestID  string                `json:"request_id"`
	Prediction *diagnosis.Prediction `json:"prediction"`
	Report     diagnosis.Report      `json:"report"`
}

type Service struct {
	res    Resources
	logger *zap.Logger
	delay  time.Duration
}

// NewService builds the pipeline. delay is the pause AnalyzeInteractive
// inserts before inference so the busy indicator is visible.
func NewService(res Resources, logger *zap.Logger, delay time.Duration) *Service {
	return &Service{res: res, logger: logger.Named("analysis"), delay: delay}
}

func (s *Service) Ready() bool {
	return s.res.Ready()
}

func (s *Service) Errors() []string {
	return s.res.Errors()
}

// Decode reads the image submitted in the given mode. Uploads must carry one
// of the accepted extensions; camera frames are taken as-is.
func (s *Service) Decode(r io.Reader, filename string, mode imaging.Mode) (image.Image, error) {
	if mode == imaging.ModeUpload {
		if err := imaging.CheckExtension(filename); err != nil {
			return nil, err
		}
	}
	img, format, err := imaging.Decode(r)
	if err != nil {
		s.logger.Warn("image decode failed", zap.String("filename", filename), zap.String("mode", string(mode)), zap.Error(err))
		return nil, err
	}
	s.logger.Debug("image decoded",
		zap.String("filename", filename),
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	return img, nil
}

// AnalyzeInteractive waits for the configured delay and then analyzes img.
func (s *Service) AnalyzeInteractive(ctx context.Context, img image.Image) (*Outcome, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.Analyze(ctx, img)
}

// Analyze preprocesses img, classifies it and builds the report.
func (s *Service) Analyze(ctx context.Context, img image.Image) (*Outcome, error) {
	if img == nil {
		return nil, imaging.ErrDecode
	}
	return s.run(ctx, func(md model.Metadata) ([]float32, error) {
		return imaging.Preprocess(img, md), nil
	})
}

// AnalyzeTensor classifies an already preprocessed tensor.
func (s *Service) AnalyzeTensor(ctx context.Context, tensor []float32) (*Outcome, error) {
	return s.run(ctx, func(md model.Metadata) ([]float32, error) {
		if want := md.InputSize(); len(tensor) != want {
			return nil, fmt.Errorf("%w: expected %d values, got %d", model.ErrShapeMismatch, want, len(tensor))
		}
		return tensor, nil
	})
}

func (s *Service) run(ctx context.Context, prepare func(model.Metadata) ([]float32, error)) (*Outcome, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(s.logger, "analysis.run", requestID)

	if !s.res.Ready() {
		return nil, logging.NewOperationError("analysis.resources", requestID, ErrNotReady)
	}
	classifier, err := s.res.Classifier()
	if err != nil {
		return nil, logging.NewOperationError("analysis.resources", requestID, err)
	}
	labels, err := s.res.Labels()
	if err != nil {
		return nil, logging.NewOperationError("analysis.resources", requestID, err)
	}
	info, err := s.res.DiseaseInfo()
	if err != nil {
		return nil, logging.NewOperationError("analysis.resources", requestID, err)
	}

	input, err := prepare(classifier.Metadata())
	if err != nil {
		wrapped := logging.NewOperationError("analysis.preprocess", requestID, err)
		opLogger.Warn("preprocessing failed", zap.Error(wrapped))
		return nil, wrapped
	}

	start := time.Now()
	probabilities, err := classifier.Predict(ctx, input)
	if err != nil {
		wrapped := logging.NewOperationError("analysis.infer", requestID, err)
		opLogger.Error("inference failed", zap.Error(wrapped))
		return nil, wrapped
	}

	prediction, err := diagnosis.Interpret(probabilities, labels)
	if err != nil {
		wrapped := logging.NewOperationError("analysis.interpret", requestID, err)
		opLogger.Error("interpretation failed", zap.Error(wrapped))
		return nil, wrapped
	}

	report := diagnosis.BuildReport(prediction.Class, info)
	opLogger.Info("analysis complete",
		zap.String("class", prediction.Class),
		zap.Float32("confidence", prediction.Confidence),
		zap.String("tier", string(prediction.Tier)),
		zap.String("report", string(report.Kind)),
		zap.Duration("inference", time.Since(start)))

	return &Outcome{RequestID: requestID, Prediction: prediction, Report: report}, nil
}
