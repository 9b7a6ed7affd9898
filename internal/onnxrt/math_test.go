package onnxrt

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestSoftmaxSumsToOne(t *testing.T) {
	probs := Softmax([]float32{1, 2, 3, 1000})
	var sum float64
	for _, p := range probs {
		if math.IsNaN(float64(p)) {
			t.Fatalf("softmax produced NaN: %v", probs)
		}
		sum += float64(p)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Fatalf("sum=%f", sum)
	}
	if Argmax(probs) != 3 {
		t.Fatalf("argmax=%d", Argmax(probs))
	}
}

func TestArgmaxTiesPickFirst(t *testing.T) {
	if got := Argmax([]float32{0.5, 0.5, 0.1}); got != 0 {
		t.Fatalf("Argmax=%d", got)
	}
	if got := Argmax(nil); got != -1 {
		t.Fatalf("Argmax(nil)=%d", got)
	}
}

func TestCosineAndNormalize(t *testing.T) {
	a := Normalize([]float32{3, 4})
	if math.Abs(float64(a[0])-0.6) > 1e-6 || math.Abs(float64(a[1])-0.8) > 1e-6 {
		t.Fatalf("normalize=%v", a)
	}
	if c := Cosine([]float32{1, 0}, []float32{0, 1}); c != 0 {
		t.Fatalf("orthogonal cosine=%f", c)
	}
	if c := Cosine([]float32{1, 1}, []float32{2, 2}); math.Abs(c-1) > 1e-9 {
		t.Fatalf("parallel cosine=%f", c)
	}
	if c := Cosine([]float32{1}, []float32{1, 2}); c != 0 {
		t.Fatalf("mismatched cosine=%f", c)
	}
}

func TestLoadMetaFindsEntailment(t *testing.T) {
	dir := t.TempDir()
	cfg := `{"id2label":{"0":"entailment","1":"neutral","2":"contradiction"},"type_vocab_size":1,"hidden_size":768}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	meta, err := LoadMeta(dir)
	if err != nil {
		t.Fatalf("LoadMeta: %v", err)
	}
	if got := meta.LabelIndex("entail"); got != 0 {
		t.Fatalf("entailment index=%d", got)
	}
	if got := meta.LabelIndex("contradict"); got != 2 {
		t.Fatalf("contradiction index=%d", got)
	}
	if meta.RequiresTokenType {
		t.Fatalf("type_vocab_size=1 should not require token types")
	}
	if meta.Label2ID["neutral"] != 1 {
		t.Fatalf("label2id not derived: %v", meta.Label2ID)
	}
}

func TestLoadMetaMissingConfig(t *testing.T) {
	meta, err := LoadMeta(t.TempDir())
	if err != nil {
		t.Fatalf("LoadMeta: %v", err)
	}
	if len(meta.Labels) != 0 {
		t.Fatalf("expected empty meta")
	}
}

func TestResolveModelPathPrefersInt8(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"model.onnx", "model.int8.onnx"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	got, err := ResolveModelPath(dir)
	if err != nil {
		t.Fatalf("ResolveModelPath: %v", err)
	}
	if filepath.Base(got) != "model.int8.onnx" {
		t.Fatalf("got %s", got)
	}
	if _, err := ResolveModelPath(t.TempDir()); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}
