package service

import (
	"errors"

	ort "github.com/yalue/onnxruntime_go"
)

// Model input geometry for the YOLOv8 ONNX export: (1,3,640,640) in,
// (1,84,8400) out.
const (
	InputSize        = 640
	numNativeClasses = 80
	numPredictions   = 8400
)

var (
	ErrInvalidImage    = errors.New("invalid image data")
	ErrModelNotLoaded  = errors.New("model not loaded")
	ErrNoImageSource   = errors.New("either image_data or image_url required")
	ErrURLNotSupported = errors.New("image URL not supported yet")
)

// BoundingBox holds image-relative coordinates, each in [0,1].
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Detection struct {
	ClassName  string      `json:"class_name"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
}

// RawDetection is a model output box in original-image pixel space,
// before class remapping.
type RawDetection struct {
	X1, Y1, X2, Y2 float32
	Confidence     float32
	ClassID        int
}

type DetectionRequest struct {
	ImageData  string             `json:"image_data"`
	ImageURL   string             `json:"image_url"`
	Classes    []string           `json:"classes"`
	Thresholds map[string]float64 `json:"thresholds"`
	NMSIoU     float64            `json:"nms_iou"`
}

type DetectionResponse struct {
	Detections       []Detection `json:"detections"`
	ProcessingTimeMS float64     `json:"processing_time_ms"`
	ImageSize        [2]int      `json:"image_size"`
	ModelInfo        ModelInfo   `json:"model_info"`
}

type ModelInfo struct {
	ModelName  string `json:"model_name"`
	Device     string `json:"device"`
	NumClasses int    `json:"num_classes"`
}

type Model struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func (m *Model) Destroy() {
	if m.session != nil {
		m.session.Destroy()
	}
	if m.input != nil {
		m.input.Destroy()
	}
	if m.output != nil {
		m.output.Destroy()
	}
}
