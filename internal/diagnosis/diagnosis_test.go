package diagnosis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/plantify/internal/catalog"
)

func strPtr(s string) *string { return &s }

func TestArgmax(t *testing.T) {
	require.Equal(t, -1, Argmax(nil))
	require.Equal(t, 0, Argmax([]float32{0.5}))
	require.Equal(t, 2, Argmax([]float32{0.1, 0.2, 0.7}))
	require.Equal(t, 1, Argmax([]float32{0.1, 0.45, 0.45}))
	require.Equal(t, 0, Argmax([]float32{0.3, 0.3, 0.3}))
}

func TestInterpretPicksMaximum(t *testing.T) {
	labels := catalog.Labels{"A", "B", "C", "D"}
	probs := []float32{0.05, 0.1, 0.6, 0.25}

	pred, err := Interpret(probs, labels)
	require.NoError(t, err)
	require.Equal(t, 2, pred.Index)
	require.Equal(t, "C", pred.Class)
	require.Equal(t, float32(0.6), pred.Confidence)
	require.Equal(t, TierLow, pred.Tier)
	require.Len(t, pred.Predictions, 4)
	require.Equal(t, float32(0.25), pred.Predictions["D"])
}

func TestInterpretTwoClasses(t *testing.T) {
	pred, err := Interpret([]float32{0.2, 0.8}, catalog.Labels{"A", "B"})
	require.NoError(t, err)
	require.Equal(t, "B", pred.Class)
	require.Equal(t, float32(0.8), pred.Confidence)
	require.Equal(t, TierModerate, pred.Tier)
	require.Equal(t, "80.00%", pred.ConfidencePercent())
}

func TestInterpretLabelMismatch(t *testing.T) {
	_, err := Interpret([]float32{0.1, 0.2, 0.7}, catalog.Labels{"A", "B"})
	require.ErrorIs(t, err, ErrLabelMismatch)

	_, err = Interpret(nil, catalog.Labels{"A"})
	require.Error(t, err)
}

func TestInterpretRejectsNonFiniteScores(t *testing.T) {
	labels := catalog.Labels{"A", "B"}
	for _, probs := range [][]float32{
		{float32(math.NaN()), 0.1},
		{0.2, float32(math.Inf(1))},
		{float32(math.Inf(-1)), 0.9},
	} {
		_, err := Interpret(probs, labels)
		require.ErrorIs(t, err, ErrInvalidScore)
	}
}

func TestTierBoundaries(t *testing.T) {
	cases := []struct {
		confidence float32
		want       Tier
	}{
		{0, TierLow},
		{0.5, TierLow},
		{0.60, TierLow},
		{0.6001, TierModerate},
		{0.85, TierModerate},
		{0.8501, TierHigh},
		{1, TierHigh},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, TierFor(tc.confidence), "confidence %v", tc.confidence)
	}
}

func TestTierMessages(t *testing.T) {
	require.Equal(t, "High confidence in this prediction.", TierHigh.Message())
	require.Equal(t, "Moderate confidence. The result may be less accurate.", TierModerate.Message())
	require.Equal(t, "Low confidence. Please try a clearer, more centered image.", TierLow.Message())
}

func TestBuildReportDiseasePlaceholders(t *testing.T) {
	info := catalog.DiseaseInfo{"A": {Description: strPtr("d")}}

	report := BuildReport("A", info)
	require.Equal(t, KindDisease, report.Kind)
	require.Equal(t, "A", report.Title)
	require.Equal(t, []Section{
		{Name: "Description", Body: "d"},
		{Name: "Symptoms", Body: "No symptoms information available."},
		{Name: "Prevention", Body: "No prevention information available."},
		{Name: "Remedy", Body: "No remedy information available."},
	}, report.Sections)
}

func TestBuildReportDiseaseFull(t *testing.T) {
	info := catalog.DiseaseInfo{"Tomato___Late_blight": {
		Title:       strPtr("Late Blight"),
		Description: strPtr("desc"),
		Symptoms:    strPtr("spots"),
		Prevention:  strPtr("rotate"),
		Remedy:      strPtr("fungicide"),
	}}

	report := BuildReport("Tomato___Late_blight", info)
	require.Equal(t, "Late Blight", report.Title)
	require.Equal(t, "fungicide", report.Sections[3].Body)
}

func TestBuildReportNotFound(t *testing.T) {
	report := BuildReport("Unknown", catalog.DiseaseInfo{"A": {}})
	require.Equal(t, KindNotFound, report.Kind)
	require.Equal(t, NotAvailableMessage, report.Message)
	require.Empty(t, report.Sections)
}

func TestBuildReportHealthy(t *testing.T) {
	info := catalog.DiseaseInfo{
		"Apple___healthy":  {Prevention: strPtr("water")},
		"Grape___Healthy!": {Title: strPtr("Thriving"), Description: strPtr("fine")},
	}

	report := BuildReport("Apple___healthy", info)
	require.Equal(t, KindHealthy, report.Kind)
	require.Equal(t, "Status: Healthy", report.Title)
	require.Equal(t, "The plant appears to be in good health. Keep up the good care!", report.Message)
	require.Equal(t, []Section{
		{Name: "Symptoms", Body: "N/A"},
		{Name: "Prevention", Body: "water"},
	}, report.Sections)

	report = BuildReport("Grape___Healthy!", info)
	require.Equal(t, "Status: Thriving", report.Title)
	require.Equal(t, "fine", report.Message)
}
