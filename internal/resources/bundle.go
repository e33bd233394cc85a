package resources

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Brownie44l1/plantify/internal/catalog"
	"github.com/Brownie44l1/plantify/internal/model"
)

// OpenClassifierFunc opens the model artifact described by the paths.
type OpenClassifierFunc func(modelPath, metadataPath, libPath string) (model.Classifier, error)

type Options struct {
	ModelPath       string
	MetadataPath    string
	ClassNamesPath  string
	DiseaseInfoPath string
	OnnxRuntimeLib  string

	// OpenClassifier defaults to an ONNX Runtime session.
	OpenClassifier OpenClassifierFunc
}

// Bundle owns the three process-lifetime artifacts. It is safe for concurrent use.
type Bundle struct {
	opts   Options
	logger *zap.Logger

	classifier *Loader[model.Classifier]
	labels     *Loader[catalog.Labels]
	info       *Loader[catalog.DiseaseInfo]
}

// New builds a bundle whose artifacts load lazily on first use.
func New(opts Options, logger *zap.Logger) *Bundle {
	if opts.OpenClassifier == nil {
		opts.OpenClassifier = OpenONNX
	}
	b := &Bundle{opts: opts, logger: logger.Named("resources")}

	b.classifier = NewLoader("classifier", logged(b.logger, "classifier", opts.ModelPath, func() (model.Classifier, error) {
		return opts.OpenClassifier(opts.ModelPath, opts.MetadataPath, opts.OnnxRuntimeLib)
	}), func(err error) string {
		return fmt.Sprintf("Error loading model: %v. Please ensure '%s' is the correct model file and that '%s' describes it.",
			err, filepath.Base(opts.ModelPath), filepath.Base(opts.MetadataPath))
	})

	b.labels = NewLoader("class names", logged(b.logger, "class names", opts.ClassNamesPath, func() (catalog.Labels, error) {
		return catalog.LoadLabels(opts.ClassNamesPath)
	}), fileMessage("class names", opts.ClassNamesPath))

	b.info = NewLoader("disease info", logged(b.logger, "disease info", opts.DiseaseInfoPath, func() (catalog.DiseaseInfo, error) {
		return catalog.LoadDiseaseInfo(opts.DiseaseInfoPath)
	}), fileMessage("disease info", opts.DiseaseInfoPath))

	return b
}

// Load builds a bundle and loads every artifact immediately.
func Load(opts Options, logger *zap.Logger) *Bundle {
	b := New(opts, logger)

	_, _ = b.classifier.Get()
	labels, labelsErr := b.labels.Get()
	info, infoErr := b.info.Get()

	if msg := b.consistencyMessage(); msg != "" {
		b.logger.Error("resource consistency check failed", zap.String("detail", msg))
	}
	if labelsErr == nil && infoErr == nil {
		if missing := info.Missing(labels); len(missing) > 0 {
			b.logger.Warn("classes without disease info", zap.Strings("classes", missing))
		}
	}

	if b.Ready() {
		b.logger.Info("resources loaded", zap.Int("classes", len(labels)))
	}
	return b
}

func (b *Bundle) Classifier() (model.Classifier, error) {
	return b.classifier.Get()
}

func (b *Bundle) Labels() (catalog.Labels, error) {
	return b.labels.Get()
}

func (b *Bundle) DiseaseInfo() (catalog.DiseaseInfo, error) {
	return b.info.Get()
}

// Errors lists user-facing messages for every unusable artifact.
func (b *Bundle) Errors() []string {
	var msgs []string
	for _, msg := range []string{b.classifier.Message(), b.labels.Message(), b.info.Message(), b.consistencyMessage()} {
		if msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// Ready reports whether an analysis can run.
func (b *Bundle) Ready() bool {
	return len(b.Errors()) == 0
}

// Close releases the classifier if it was opened.
func (b *Bundle) Close() {
	c, err := b.classifier.Get()
	if err != nil {
		return
	}
	if closer, ok := c.(interface{ Close() }); ok {
		closer.Close()
	}
}

// consistencyMessage checks that the classifier scores exactly one value per label.
func (b *Bundle) consistencyMessage() string {
	c, err := b.classifier.Get()
	if err != nil {
		return ""
	}
	labels, err := b.labels.Get()
	if err != nil {
		return ""
	}
	if width := c.Metadata().OutputWidth(); width != len(labels) {
		return fmt.Sprintf("Configuration error: the model scores %d classes but '%s' lists %d.",
			width, filepath.Base(b.opts.ClassNamesPath), len(labels))
	}
	return ""
}

func logged[T any](logger *zap.Logger, name, path string, load func() (T, error)) func() (T, error) {
	return func() (T, error) {
		val, err := load()
		if err != nil {
			logger.Error("failed to load resource", zap.String("resource", name), zap.String("path", path), zap.Error(err))
			return val, err
		}
		logger.Debug("resource loaded", zap.String("resource", name), zap.String("path", path))
		return val, nil
	}
}

func fileMessage(what, path string) func(error) string {
	return func(err error) string {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Sprintf("Error: '%s' not found.", filepath.Base(path))
		}
		return fmt.Sprintf("Error loading %s: %v", what, err)
	}
}

// OpenONNX opens an ONNX Runtime session for the model.
func OpenONNX(modelPath, metadataPath, libPath string) (model.Classifier, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, err
	}
	srv, err := model.NewServer(modelPath, metadataPath, libPath)
	if err != nil {
		return nil, err
	}
	return srv, nil
}
