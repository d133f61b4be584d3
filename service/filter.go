package service

// ConfidenceFloor picks the native suppression floor handed to the
// model: the minimum of any caller-supplied per-class thresholds, else
// the configured default. Finer per-class filtering happens afterwards
// in FilterDetections.
func ConfidenceFloor(thresholds map[string]float64, defaultThreshold float64) float64 {
	if len(thresholds) == 0 {
		return defaultThreshold
	}
	floor := 1.0
	for _, t := range thresholds {
		if t < floor {
			floor = t
		}
	}
	return floor
}

// FilterDetections remaps native class ids to application class names,
// applies the caller's allowlist and per-class thresholds, and
// normalizes boxes. Input order is preserved; unmapped ids are dropped.
func FilterDetections(raw []RawDetection, classes []string, thresholds map[string]float64, defaultThreshold float64, imgWidth, imgHeight int) []Detection {
	var allowed map[string]bool
	if len(classes) > 0 {
		allowed = make(map[string]bool, len(classes))
		for _, name := range classes {
			allowed[name] = true
		}
	}

	detections := make([]Detection, 0, len(raw))
	for _, r := range raw {
		className, ok := ClassMap[r.ClassID]
		if !ok {
			continue
		}
		if allowed != nil && !allowed[className] {
			continue
		}

		threshold := defaultThreshold
		if t, ok := thresholds[className]; ok {
			threshold = t
		}
		if float64(r.Confidence) < threshold {
			continue
		}

		detections = append(detections, Detection{
			ClassName:  className,
			Confidence: float64(r.Confidence),
			BBox:       NormalizeBox(r.X1, r.Y1, r.X2, r.Y2, imgWidth, imgHeight),
		})
	}
	return detections
}

// NormalizeBox converts pixel-space corners to image-relative
// x/y/width/height. Width and height must be positive; the decoder
// guarantees that for any image it returns.
func NormalizeBox(x1, y1, x2, y2 float32, imgWidth, imgHeight int) BoundingBox {
	w := float64(imgWidth)
	h := float64(imgHeight)
	return BoundingBox{
		X:      float64(x1) / w,
		Y:      float64(y1) / h,
		Width:  float64(x2-x1) / w,
		Height: float64(y2-y1) / h,
	}
}
