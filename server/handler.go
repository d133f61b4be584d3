package server

import (
	"encoding/base64"
	"errors"
	"image"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/visiony/vydetect/service"
)

type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Device      string `json:"device"`
	Timestamp   string `json:"timestamp"`
}

type BatchResult struct {
	Filename         string   `json:"filename"`
	Detections       *int     `json:"detections,omitempty"`
	ProcessingTimeMS *float64 `json:"processing_time_ms,omitempty"`
	Success          bool     `json:"success"`
	Error            string   `json:"error,omitempty"`
}

func (s *Server) HealthHandler(c *gin.Context) {
	status := "healthy"
	device := "cpu"
	if s.detector == nil {
		status = "unhealthy"
	} else {
		device = s.detector.Device()
	}
	c.JSON(200, HealthResponse{
		Status:      status,
		ModelLoaded: s.detector != nil,
		Device:      device,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) DetectHandler(c *gin.Context) {
	if s.detector == nil {
		c.JSON(503, gin.H{"error": "model not loaded"})
		return
	}

	var req service.DetectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	resp, err := s.detect(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(200, resp)
}

// detect is the full pipeline behind POST /detect: decode, infer with
// the resolved confidence floor, then remap/filter/normalize.
func (s *Server) detect(req service.DetectionRequest) (*service.DetectionResponse, error) {
	if s.detector == nil {
		return nil, service.ErrModelNotLoaded
	}
	start := time.Now()

	var img image.Image
	var err error
	switch {
	case req.ImageData != "":
		img, err = service.DecodeImage(req.ImageData)
		if err != nil {
			return nil, err
		}
	case req.ImageURL != "":
		return nil, service.ErrURLNotSupported
	default:
		return nil, service.ErrNoImageSource
	}

	b := img.Bounds()
	imgWidth, imgHeight := b.Dx(), b.Dy()

	iou := req.NMSIoU
	if iou <= 0 {
		iou = s.cfg.IoUThreshold
	}
	floor := service.ConfidenceFloor(req.Thresholds, s.cfg.ConfidenceThreshold)

	raw, err := s.detector.Detect(img, float32(floor), float32(iou))
	if err != nil {
		return nil, err
	}

	detections := service.FilterDetections(raw, req.Classes, req.Thresholds, s.cfg.ConfidenceThreshold, imgWidth, imgHeight)

	return &service.DetectionResponse{
		Detections:       detections,
		ProcessingTimeMS: float64(time.Since(start).Microseconds()) / 1000.0,
		ImageSize:        [2]int{imgWidth, imgHeight},
		ModelInfo: service.ModelInfo{
			ModelName:  "YOLOv8",
			Device:     s.detector.Device(),
			NumClasses: len(service.ClassMap),
		},
	}, nil
}

func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidImage),
		errors.Is(err, service.ErrNoImageSource),
		errors.Is(err, service.ErrURLNotSupported):
		c.JSON(400, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrModelNotLoaded):
		c.JSON(503, gin.H{"error": err.Error()})
	default:
		requestID := uuid.NewString()
		slog.Error("Detection failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		c.JSON(500, gin.H{"error": "detection failed: " + err.Error()})
	}
}

func (s *Server) ALPRHandler(c *gin.Context) {
	start := time.Now()

	var req service.ALPRRequest
	_ = c.ShouldBindJSON(&req) // stub answers regardless of body

	c.JSON(200, service.ALPRResponse{
		Plates:           service.RecognizePlates(req),
		ProcessingTimeMS: float64(time.Since(start).Microseconds()) / 1000.0,
	})
}

func (s *Server) BatchValidateHandler(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid multipart form: " + err.Error()})
		return
	}

	files := form.File["files"]
	results := make([]BatchResult, 0, len(files))
	for _, fh := range files {
		results = append(results, s.validateFile(fh))
	}
	c.JSON(200, gin.H{"results": results})
}

// validateFile runs one upload through the detect pipeline. A failure
// is recorded in the result, never propagated, so one bad file cannot
// abort the batch.
func (s *Server) validateFile(fh *multipart.FileHeader) BatchResult {
	file, err := fh.Open()
	if err != nil {
		return BatchResult{Filename: fh.Filename, Error: err.Error(), Success: false}
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return BatchResult{Filename: fh.Filename, Error: err.Error(), Success: false}
	}

	resp, err := s.detect(service.DetectionRequest{
		ImageData: base64.StdEncoding.EncodeToString(content),
	})
	if err != nil {
		return BatchResult{Filename: fh.Filename, Error: err.Error(), Success: false}
	}

	count := len(resp.Detections)
	return BatchResult{
		Filename:         fh.Filename,
		Detections:       &count,
		ProcessingTimeMS: &resp.ProcessingTimeMS,
		Success:          true,
	}
}
