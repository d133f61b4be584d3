package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setPrediction writes one box into the (84,8400) output grid at slot
// idx, with center/size coordinates in model input space.
func setPrediction(out []float32, idx, classID int, conf, xc, yc, w, h float32) {
	out[idx] = xc
	out[numPredictions+idx] = yc
	out[2*numPredictions+idx] = w
	out[3*numPredictions+idx] = h
	out[(4+classID)*numPredictions+idx] = conf
}

func emptyOutput() []float32 {
	return make([]float32, (4+numNativeClasses)*numPredictions)
}

var identityLetterbox = Letterbox{Scale: 1, PadX: 0, PadY: 0}

func TestDecodeOutputAppliesConfidenceFloor(t *testing.T) {
	out := emptyOutput()
	setPrediction(out, 0, 2, 0.9, 100, 100, 40, 40)
	setPrediction(out, 1, 0, 0.2, 300, 300, 40, 40)

	dets := decodeOutput(out, InputSize, InputSize, identityLetterbox, 0.5)
	require.Len(t, dets, 1)
	assert.Equal(t, 2, dets[0].ClassID)
	assert.InDelta(t, 0.9, float64(dets[0].Confidence), 1e-6)
	assert.InDelta(t, 80, float64(dets[0].X1), 1e-3)
	assert.InDelta(t, 80, float64(dets[0].Y1), 1e-3)
	assert.InDelta(t, 120, float64(dets[0].X2), 1e-3)
	assert.InDelta(t, 120, float64(dets[0].Y2), 1e-3)
}

func TestDecodeOutputEmptyIsNotAnError(t *testing.T) {
	dets := decodeOutput(emptyOutput(), InputSize, InputSize, identityLetterbox, 0.5)
	assert.Empty(t, dets)
}

func TestDecodeOutputSortsByConfidence(t *testing.T) {
	out := emptyOutput()
	setPrediction(out, 0, 0, 0.6, 100, 100, 40, 40)
	setPrediction(out, 1, 2, 0.9, 300, 300, 40, 40)

	dets := decodeOutput(out, InputSize, InputSize, identityLetterbox, 0.5)
	require.Len(t, dets, 2)
	assert.Equal(t, 2, dets[0].ClassID)
	assert.Equal(t, 0, dets[1].ClassID)
}

func TestDecodeOutputMapsThroughLetterbox(t *testing.T) {
	// a 1280x640 source letterboxed into 640x640 gets scale 0.5 and a
	// vertical pad of 160
	lb := Letterbox{Scale: 0.5, PadX: 0, PadY: 160}
	out := emptyOutput()
	setPrediction(out, 0, 0, 0.9, 320, 320, 100, 100)

	dets := decodeOutput(out, 1280, 640, lb, 0.5)
	require.Len(t, dets, 1)
	assert.InDelta(t, 540, float64(dets[0].X1), 1e-3)
	assert.InDelta(t, 220, float64(dets[0].Y1), 1e-3)
	assert.InDelta(t, 740, float64(dets[0].X2), 1e-3)
	assert.InDelta(t, 420, float64(dets[0].Y2), 1e-3)
}

func TestDecodeOutputClampsToImage(t *testing.T) {
	out := emptyOutput()
	setPrediction(out, 0, 0, 0.9, 10, 10, 60, 60) // extends past the top-left corner

	dets := decodeOutput(out, InputSize, InputSize, identityLetterbox, 0.5)
	require.Len(t, dets, 1)
	assert.Equal(t, float32(0), dets[0].X1)
	assert.Equal(t, float32(0), dets[0].Y1)
}

func TestNonMaxSuppressionSameClass(t *testing.T) {
	dets := []RawDetection{
		{X1: 100, Y1: 100, X2: 200, Y2: 200, Confidence: 0.9, ClassID: 2},
		{X1: 105, Y1: 105, X2: 205, Y2: 205, Confidence: 0.8, ClassID: 2},
	}
	kept := nonMaxSuppression(dets, 0.45)
	require.Len(t, kept, 1)
	assert.InDelta(t, 0.9, float64(kept[0].Confidence), 1e-6)
}

func TestNonMaxSuppressionKeepsDifferentClasses(t *testing.T) {
	dets := []RawDetection{
		{X1: 100, Y1: 100, X2: 200, Y2: 200, Confidence: 0.9, ClassID: 2},
		{X1: 100, Y1: 100, X2: 200, Y2: 200, Confidence: 0.8, ClassID: 0},
	}
	kept := nonMaxSuppression(dets, 0.45)
	assert.Len(t, kept, 2)
}

func TestNonMaxSuppressionKeepsDisjointBoxes(t *testing.T) {
	dets := []RawDetection{
		{X1: 0, Y1: 0, X2: 50, Y2: 50, Confidence: 0.9, ClassID: 2},
		{X1: 300, Y1: 300, X2: 350, Y2: 350, Confidence: 0.8, ClassID: 2},
	}
	kept := nonMaxSuppression(dets, 0.45)
	assert.Len(t, kept, 2)
}

func TestBoxIoU(t *testing.T) {
	a := RawDetection{X1: 0, Y1: 0, X2: 100, Y2: 100}
	assert.InDelta(t, 1.0, float64(boxIoU(a, a)), 1e-6)

	b := RawDetection{X1: 200, Y1: 200, X2: 300, Y2: 300}
	assert.Equal(t, float32(0), boxIoU(a, b))

	// half-overlapping boxes: intersection 50x100, union 150x100
	c := RawDetection{X1: 50, Y1: 0, X2: 150, Y2: 100}
	assert.InDelta(t, 1.0/3.0, float64(boxIoU(a, c)), 1e-6)
}

// The invoker floor (min of per-class thresholds) and the per-class
// filter are each necessary: the floor drops boxes below every
// override, while the filter catches boxes sitting between the floor
// and a stricter per-class threshold.
func TestFloorAndFilterInterplay(t *testing.T) {
	thresholds := map[string]float64{"car": 0.3, "person": 0.7}
	floor := ConfidenceFloor(thresholds, 0.5)
	require.InDelta(t, 0.3, floor, 1e-9)

	out := emptyOutput()
	setPrediction(out, 0, 0, 0.5, 100, 100, 40, 40) // person, between floor and its override
	setPrediction(out, 1, 2, 0.2, 300, 300, 40, 40) // car, below the floor

	raw := decodeOutput(out, InputSize, InputSize, identityLetterbox, float32(floor))

	// the car never reaches the filter; the person does
	require.Len(t, raw, 1)
	assert.Equal(t, 0, raw[0].ClassID)

	// and the filter then drops the person against its stricter override
	filtered := FilterDetections(raw, nil, thresholds, 0.5, InputSize, InputSize)
	assert.Empty(t, filtered)

	// without the per-class override the same person box would survive
	lax := FilterDetections(raw, nil, map[string]float64{"car": 0.3}, 0.3, InputSize, InputSize)
	assert.Len(t, lax, 1)
}
