package service

type ALPRRequest struct {
	ImageData string `json:"image_data"`
	ImageURL  string `json:"image_url"`
	Region    string `json:"region"`
}

type Plate struct {
	Plate      string      `json:"plate"`
	Confidence float64     `json:"confidence"`
	Region     string      `json:"region"`
	BBox       BoundingBox `json:"bbox"`
}

type ALPRResponse struct {
	Plates           []Plate `json:"plates"`
	ProcessingTimeMS float64 `json:"processing_time_ms"`
}

// RecognizePlates is a stub. It fabricates a single plate record no
// matter the input, until a real plate recognizer is wired in.
// TODO: replace with an OCR-backed implementation.
func RecognizePlates(req ALPRRequest) []Plate {
	region := req.Region
	if region == "" {
		region = "us"
	}
	return []Plate{
		{
			Plate:      "ABC-1234",
			Confidence: 0.95,
			Region:     region,
			BBox:       BoundingBox{X: 0.3, Y: 0.4, Width: 0.2, Height: 0.1},
		},
	}
}
