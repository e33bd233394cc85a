package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeMetadata(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model_metadata.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMetadataDefaults(t *testing.T) {
	md, err := LoadMetadata(writeMetadata(t, `{"input_shape":[1,128,128,3],"output_shape":[1,38]}`))
	require.NoError(t, err)
	require.Equal(t, "input", md.InputName)
	require.Equal(t, "output", md.OutputName)
	require.Equal(t, LayoutNHWC, md.Layout)
	require.Equal(t, 38, md.OutputWidth())
	require.Equal(t, 128*128*3, md.InputSize())

	w, h := md.ImageSize()
	require.Equal(t, 128, w)
	require.Equal(t, 128, h)
}

func TestLoadMetadataNCHW(t *testing.T) {
	md, err := LoadMetadata(writeMetadata(t, `{"input_shape":[1,3,64,96],"output_shape":[1,7],"layout":"NCHW","apply_softmax":true}`))
	require.NoError(t, err)
	require.Equal(t, LayoutNCHW, md.Layout)
	require.True(t, md.ApplySoftmax)

	w, h := md.ImageSize()
	require.Equal(t, 96, w)
	require.Equal(t, 64, h)
}

func TestLoadMetadataRejectsBadShapes(t *testing.T) {
	cases := map[string]string{
		"rank":     `{"input_shape":[128,128,3],"output_shape":[1,2]}`,
		"batch":    `{"input_shape":[2,128,128,3],"output_shape":[1,2]}`,
		"channels": `{"input_shape":[1,128,128,1],"output_shape":[1,2]}`,
		"output":   `{"input_shape":[1,128,128,3],"output_shape":[]}`,
		"layout":   `{"input_shape":[1,128,128,3],"output_shape":[1,2],"layout":"hwc"}`,
		"json":     `{`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadMetadata(writeMetadata(t, content))
			require.Error(t, err)
		})
	}
}

func TestLoadMetadataMissingFile(t *testing.T) {
	_, err := LoadMetadata(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultMetadataIsValid(t *testing.T) {
	md := DefaultMetadata(4)
	require.NoError(t, md.Validate())
	require.Equal(t, 4, md.OutputWidth())
}

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float32{1, 2, 3})
	require.Len(t, probs, 3)

	var sum float32
	for _, p := range probs {
		require.Greater(t, p, float32(0))
		sum += p
	}
	require.InDelta(t, 1.0, sum, 1e-6)
	require.Greater(t, probs[2], probs[1])
	require.Greater(t, probs[1], probs[0])
}

func TestSoftmaxLargeLogits(t *testing.T) {
	probs := Softmax([]float32{1000, 1000})
	require.InDelta(t, 0.5, probs[0], 1e-6)
	require.InDelta(t, 0.5, probs[1], 1e-6)
	require.Nil(t, Softmax(nil))
}

func TestPredictAfterCloseFails(t *testing.T) {
	s := &Server{metadata: DefaultMetadata(2)}

	_, err := s.Predict(context.Background(), make([]float32, s.metadata.InputSize()))
	require.ErrorIs(t, err, ErrClosed)

	_, err = s.Predict(context.Background(), []float32{1})
	require.ErrorIs(t, err, ErrShapeMismatch)
}
