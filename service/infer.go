package service

import (
	"fmt"
	"image"
	"sort"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/visiony/vydetect/config"
)

// ONNXDetector runs a YOLOv8 ONNX export through a fixed pool of
// onnxruntime sessions. The pool is built once at startup and is
// read-only afterwards.
type ONNXDetector struct {
	pool   chan *Model
	device string
}

func NewDetector(cfg config.Config) (*ONNXDetector, error) {
	size := cfg.PoolSize
	if size <= 0 {
		size = 2
	}

	d := &ONNXDetector{
		pool:   make(chan *Model, size),
		device: "cpu",
	}
	for i := 0; i < size; i++ {
		m, device, err := newModel(cfg.Weights)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to create model session %d: %w", i, err)
		}
		d.device = device
		d.pool <- m
	}
	return d, nil
}

func newModel(weightsPath string) (*Model, string, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(weightsPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get model input/output info: %w", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()

	device := "cpu"
	if cudaOpts, err := ort.NewCUDAProviderOptions(); err == nil {
		if err := opts.AppendExecutionProviderCUDA(cudaOpts); err == nil {
			device = "cuda"
		}
		cudaOpts.Destroy()
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, InputSize, InputSize), make([]float32, 3*InputSize*InputSize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 4+numNativeClasses, numPredictions))
	if err != nil {
		inputTensor.Destroy()
		return nil, "", fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		weightsPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, "", fmt.Errorf("failed to create ONNX Runtime session: %w", err)
	}

	return &Model{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
	}, device, nil
}

// Detect runs one inference. confFloor is the native suppression floor
// and iou the NMS overlap threshold; both are resolved by the caller.
// An image with nothing in it yields an empty slice, not an error.
func (d *ONNXDetector) Detect(img image.Image, confFloor, iou float32) ([]RawDetection, error) {
	if d == nil || d.pool == nil {
		return nil, ErrModelNotLoaded
	}

	inputData, lb := Preprocess(img)

	m := <-d.pool
	defer func() { d.pool <- m }()

	copy(m.input.GetData(), inputData)
	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outputData := m.output.GetData()
	output := make([]float32, len(outputData))
	copy(output, outputData)

	dets := decodeOutput(output, img.Bounds().Dx(), img.Bounds().Dy(), lb, confFloor)
	return nonMaxSuppression(dets, iou), nil
}

func (d *ONNXDetector) Device() string {
	return d.device
}

func (d *ONNXDetector) Close() {
	for {
		select {
		case m := <-d.pool:
			m.Destroy()
		default:
			return
		}
	}
}

// decodeOutput reads the (84,8400) prediction grid: argmax over the 80
// class columns, drop boxes under the floor, and map center/size boxes
// back through the letterbox into original pixel corners.
func decodeOutput(output []float32, origW, origH int, lb Letterbox, confFloor float32) []RawDetection {
	dets := make([]RawDetection, 0, 64)

	for idx := 0; idx < numPredictions; idx++ {
		best := float32(-1)
		bestClass := 0
		for c := 0; c < numNativeClasses; c++ {
			p := output[(4+c)*numPredictions+idx]
			if p > best {
				best = p
				bestClass = c
			}
		}
		if best < confFloor {
			continue
		}

		xc := output[idx]
		yc := output[numPredictions+idx]
		w := output[2*numPredictions+idx]
		h := output[3*numPredictions+idx]

		x1 := (xc - w/2 - lb.PadX) / lb.Scale
		y1 := (yc - h/2 - lb.PadY) / lb.Scale
		x2 := (xc + w/2 - lb.PadX) / lb.Scale
		y2 := (yc + h/2 - lb.PadY) / lb.Scale

		dets = append(dets, RawDetection{
			X1:         clamp(x1, 0, float32(origW)),
			Y1:         clamp(y1, 0, float32(origH)),
			X2:         clamp(x2, 0, float32(origW)),
			Y2:         clamp(y2, 0, float32(origH)),
			Confidence: best,
			ClassID:    bestClass,
		})
	}

	sort.Slice(dets, func(i, j int) bool {
		return dets[i].Confidence > dets[j].Confidence
	})
	return dets
}

// nonMaxSuppression greedily keeps the highest-confidence box of each
// overlapping same-class cluster. Input must be sorted by confidence
// descending; output order is preserved.
func nonMaxSuppression(dets []RawDetection, iouThreshold float32) []RawDetection {
	kept := make([]RawDetection, 0, len(dets))
	for _, cand := range dets {
		suppressed := false
		for _, k := range kept {
			if k.ClassID == cand.ClassID && boxIoU(k, cand) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, cand)
		}
	}
	return kept
}

func boxIoU(a, b RawDetection) float32 {
	ix1 := max(a.X1, b.X1)
	iy1 := max(a.Y1, b.Y1)
	ix2 := min(a.X2, b.X2)
	iy2 := min(a.Y2, b.Y2)

	iw := max(ix2-ix1, 0)
	ih := max(iy2-iy1, 0)
	inter := iw * ih
	if inter <= 0 {
		return 0
	}

	areaA := (a.X2 - a.X1) * (a.Y2 - a.Y1)
	areaB := (b.X2 - b.X1) * (b.Y2 - b.Y1)
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
