package resources

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Brownie44l1/plantify/internal/model"
)

type stubClassifier struct {
	md     model.Metadata
	closed bool
}

func (s *stubClassifier) Predict(ctx context.Context, input []float32) ([]float32, error) {
	return make([]float32, s.md.OutputWidth()), nil
}

func (s *stubClassifier) Metadata() model.Metadata { return s.md }

func (s *stubClassifier) Close() { s.closed = true }

func writeFixtures(t *testing.T, labels, info string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	labelsPath := filepath.Join(dir, "class_names.json")
	infoPath := filepath.Join(dir, "disease_info.json")
	require.NoError(t, os.WriteFile(labelsPath, []byte(labels), 0o600))
	require.NoError(t, os.WriteFile(infoPath, []byte(info), 0o600))
	return labelsPath, infoPath
}

func TestLoaderRunsOnce(t *testing.T) {
	calls := 0
	l := NewLoader("thing", func() (int, error) {
		calls++
		return 42, nil
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := l.Get()
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, calls)
	require.Empty(t, l.Message())
}

func TestLoaderCachesFailure(t *testing.T) {
	calls := 0
	cause := errors.New("corrupt")
	l := NewLoader("thing", func() (int, error) {
		calls++
		return 0, cause
	}, func(err error) string { return "broken: " + err.Error() })

	_, err := l.Get()
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, cause)
	_, _ = l.Get()
	require.Equal(t, 1, calls)
	require.Equal(t, "broken: corrupt", l.Message())
}

func TestLoadReady(t *testing.T) {
	labelsPath, infoPath := writeFixtures(t, `["A","B"]`, `{"A":{"description":"d"}}`)
	stub := &stubClassifier{md: model.DefaultMetadata(2)}

	b := Load(Options{
		ModelPath:       "model.onnx",
		ClassNamesPath:  labelsPath,
		DiseaseInfoPath: infoPath,
		OpenClassifier: func(string, string, string) (model.Classifier, error) {
			return stub, nil
		},
	}, zap.NewNop())

	require.True(t, b.Ready())
	require.Empty(t, b.Errors())

	c, err := b.Classifier()
	require.NoError(t, err)
	require.Same(t, stub, c)

	b.Close()
	require.True(t, stub.closed)
}

func TestLoadMissingModel(t *testing.T) {
	labelsPath, infoPath := writeFixtures(t, `["A","B"]`, `{"A":{}}`)
	modelPath := filepath.Join(t.TempDir(), "trained_model.onnx")

	b := Load(Options{
		ModelPath:       modelPath,
		MetadataPath:    filepath.Join(t.TempDir(), "model_metadata.json"),
		ClassNamesPath:  labelsPath,
		DiseaseInfoPath: infoPath,
	}, zap.NewNop())

	require.False(t, b.Ready())
	c, err := b.Classifier()
	require.Nil(t, c)
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, os.ErrNotExist)

	msgs := b.Errors()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0], "Error loading model")
	require.Contains(t, msgs[0], "trained_model.onnx")

	b.Close()
}

func TestLoadMissingCatalogFiles(t *testing.T) {
	dir := t.TempDir()
	b := Load(Options{
		ClassNamesPath:  filepath.Join(dir, "class_names.json"),
		DiseaseInfoPath: filepath.Join(dir, "disease_info.json"),
		OpenClassifier: func(string, string, string) (model.Classifier, error) {
			return &stubClassifier{md: model.DefaultMetadata(2)}, nil
		},
	}, zap.NewNop())

	require.False(t, b.Ready())
	require.Equal(t, []string{
		"Error: 'class_names.json' not found.",
		"Error: 'disease_info.json' not found.",
	}, b.Errors())

	labels, err := b.Labels()
	require.Error(t, err)
	require.Empty(t, labels)
	info, err := b.DiseaseInfo()
	require.Error(t, err)
	require.Empty(t, info)
}

func TestLoadRejectsEmptyDiseaseInfo(t *testing.T) {
	labelsPath, infoPath := writeFixtures(t, `["A","B"]`, `{}`)
	b := Load(Options{
		ClassNamesPath:  labelsPath,
		DiseaseInfoPath: infoPath,
		OpenClassifier: func(string, string, string) (model.Classifier, error) {
			return &stubClassifier{md: model.DefaultMetadata(2)}, nil
		},
	}, zap.NewNop())

	require.False(t, b.Ready())
	msgs := b.Errors()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0], "Error loading disease info")
}

func TestLoadRejectsWidthMismatch(t *testing.T) {
	labelsPath, infoPath := writeFixtures(t, `["A","B","C"]`, `{"A":{}}`)
	b := Load(Options{
		ClassNamesPath:  labelsPath,
		DiseaseInfoPath: infoPath,
		OpenClassifier: func(string, string, string) (model.Classifier, error) {
			return &stubClassifier{md: model.DefaultMetadata(2)}, nil
		},
	}, zap.NewNop())

	require.False(t, b.Ready())
	msgs := b.Errors()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0], "scores 2 classes")
	require.Contains(t, msgs[0], "lists 3")
}

func TestNewIsLazy(t *testing.T) {
	opened := 0
	b := New(Options{
		OpenClassifier: func(string, string, string) (model.Classifier, error) {
			opened++
			return &stubClassifier{md: model.DefaultMetadata(1)}, nil
		},
	}, zap.NewNop())
	require.Equal(t, 0, opened)

	_, _ = b.Classifier()
	_, _ = b.Classifier()
	require.Equal(t, 1, opened)
}
