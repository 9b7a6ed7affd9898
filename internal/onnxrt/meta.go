package onnxrt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

// Meta is what a transformers config.json tells us about a model.
type Meta struct {
	Labels            []string
	ID2Label          map[int]string
	Label2ID          map[string]int
	HiddenSize        int
	RequiresTokenType bool
}

// LoadMeta reads config.json from dir. A missing file yields empty Meta.
func LoadMeta(dir string) (Meta, error) {
	meta := Meta{}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return meta, nil
		}
		return meta, err
	}
	var cfg struct {
		ID2Label      map[string]string `json:"id2label"`
		Label2ID      map[string]int    `json:"label2id"`
		HiddenSize    int               `json:"hidden_size"`
		TypeVocabSize int               `json:"type_vocab_size"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return meta, fmt.Errorf("parse config.json: %w", err)
	}
	meta.HiddenSize = cfg.HiddenSize
	meta.RequiresTokenType = cfg.TypeVocabSize > 1
	meta.ID2Label = make(map[int]string, len(cfg.ID2Label))
	for k, v := range cfg.ID2Label {
		id, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			continue
		}
		meta.ID2Label[id] = v
	}
	meta.Label2ID = cfg.Label2ID
	if len(meta.ID2Label) == 0 {
		for lbl, id := range meta.Label2ID {
			meta.ID2Label[id] = lbl
		}
	}
	if len(meta.Label2ID) == 0 && len(meta.ID2Label) > 0 {
		meta.Label2ID = make(map[string]int, len(meta.ID2Label))
		for id, lbl := range meta.ID2Label {
			meta.Label2ID[lbl] = id
		}
	}

	ids := make([]int, 0, len(meta.ID2Label))
	for id := range meta.ID2Label {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	if len(ids) > 0 && ids[len(ids)-1] >= 0 {
		meta.Labels = make([]string, ids[len(ids)-1]+1)
		for _, id := range ids {
			if id >= 0 {
				meta.Labels[id] = meta.ID2Label[id]
			}
		}
	}
	return meta, nil
}

// LabelIndex finds the first label whose lowercase form contains one of
// the needles. It returns -1 when nothing matches.
func (m Meta) LabelIndex(needles ...string) int {
	for i, lbl := range m.Labels {
		l := strings.ToLower(lbl)
		for _, n := range needles {
			if strings.Contains(l, n) {
				return i
			}
		}
	}
	return -1
}

// SelectOutput returns the output named preferred, or the only output.
func SelectOutput(modelPath string, preferred ...string) (string, []int64, error) {
	_, outputs, err := ort.GetInputOutputInfoWithOptions(modelPath, nil)
	if err != nil {
		return "", nil, err
	}
	if len(outputs) == 0 {
		return "", nil, fmt.Errorf("no outputs found")
	}
	for _, want := range preferred {
		for _, out := range outputs {
			if strings.EqualFold(out.Name, want) {
				return out.Name, out.Dimensions, nil
			}
		}
	}
	if len(outputs) == 1 {
		return outputs[0].Name, outputs[0].Dimensions, nil
	}
	names := make([]string, 0, len(outputs))
	for _, out := range outputs {
		names = append(names, out.Name)
	}
	return "", nil, fmt.Errorf("multiple outputs found without %v: %v", preferred, names)
}

// OutputShape fills dynamic dimensions (-1) in dims. Batch is 1, the
// sequence axis gets seqLen and the last axis gets last.
func OutputShape(dims []int64, seqLen, last int) ort.Shape {
	if len(dims) == 0 {
		return ort.NewShape(1, int64(last))
	}
	shape := make([]int64, len(dims))
	for i, v := range dims {
		switch {
		case v > 0:
			shape[i] = v
		case i == len(dims)-1 && last > 0:
			shape[i] = int64(last)
		case i == 1 && len(dims) == 3:
			shape[i] = int64(seqLen)
		default:
			shape[i] = 1
		}
	}
	return ort.Shape(shape)
}
