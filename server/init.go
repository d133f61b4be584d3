package server

import (
	"image"

	"github.com/gin-gonic/gin"

	"github.com/visiony/vydetect/config"
	"github.com/visiony/vydetect/service"
)

// Detector is what the facade needs from the inference layer. The real
// implementation is service.ONNXDetector; tests substitute fakes.
type Detector interface {
	Detect(img image.Image, confFloor, iou float32) ([]service.RawDetection, error)
	Device() string
}

type Server struct {
	detector Detector
	cfg      config.Config
}

func New(detector Detector, cfg config.Config) *Server {
	return &Server{
		detector: detector,
		cfg:      cfg,
	}
}

func (s *Server) Register(r *gin.Engine) {
	r.Use(corsMiddleware())
	r.GET("/health", s.HealthHandler)
	r.POST("/detect", s.DetectHandler)
	r.POST("/alpr", s.ALPRHandler)
	r.POST("/batch-validate", s.BatchValidateHandler)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "*")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
