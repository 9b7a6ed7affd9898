package onnxrt

import (
	"math"
	"os"
	"strings"

	"github.com/straja-ai/fieldsense/internal/redact"
)

// Softmax is numerically stable: the max logit is subtracted first.
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	sum := 0.0
	out := make([]float32, len(logits))
	for i, v := range logits {
		exp := math.Exp(float64(v - maxVal))
		out[i] = float32(exp)
		sum += exp
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// Argmax returns the index of the largest value, or -1 for an empty slice.
// Ties go to the lowest index.
func Argmax(v []float32) int {
	if len(v) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// Normalize scales v to unit length in place.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

// Cosine similarity of two vectors; 0 when either is zero or lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// DebugML reports whether FIELDSENSE_DEBUG_ML=1.
func DebugML() bool {
	return strings.TrimSpace(os.Getenv("FIELDSENSE_DEBUG_ML")) == "1"
}

// LogTokenization prints a short token preview when DebugML is on.
func LogTokenization(model string, maxTokens int, inputIDs, attn []int64) {
	if !DebugML() {
		return
	}
	count := 0
	for _, v := range attn {
		if v > 0 {
			count++
		}
	}
	preview := inputIDs
	if len(preview) > 8 {
		preview = preview[:8]
	}
	redact.Logf("fieldsense debug ml: model=%s max_tokens=%d token_count=%d first_ids=%v", model, maxTokens, count, preview)
}
