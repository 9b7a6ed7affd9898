// Package nli is the stage-1 zero-shot classifier: a cross-encoder NLI
// model scores "does this field collect X?" for every canonical type.
package nli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/straja-ai/fieldsense/internal/classifier"
	"github.com/straja-ai/fieldsense/internal/fieldtype"
	"github.com/straja-ai/fieldsense/internal/onnxrt"
	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	DefaultTemplate = "This form field collects {}."
	defaultSeqLen   = 128
)

// Config selects the model and hypothesis template.
type Config struct {
	ModelDir string
	Template string
	SeqLen   int
	Runtime  onnxrt.Settings
}

// Classifier holds one ONNX session with preallocated tensors. Runs are
// serialized by mu.
type Classifier struct {
	template       string
	seqLen         int
	tk             *tokenizer.Tokenizer
	candidates     []fieldtype.Type
	hypotheses     []string
	hypothesisLen  []int
	entailmentIdx  int
	numLabels      int
	needsTokenType bool

	mu            sync.Mutex
	session       *ort.AdvancedSession
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
}

var _ classifier.Stage = (*Classifier)(nil)

// Load opens model, config.json and tokenizer.json under cfg.ModelDir.
func Load(cfg Config) (*Classifier, error) {
	if strings.TrimSpace(cfg.ModelDir) == "" {
		return nil, classifier.ErrNotLoaded
	}
	if cfg.SeqLen <= 0 {
		cfg.SeqLen = defaultSeqLen
	}
	if cfg.Template == "" {
		cfg.Template = DefaultTemplate
	}
	if !strings.Contains(cfg.Template, "{}") {
		return nil, fmt.Errorf("nli template %q has no {} placeholder", cfg.Template)
	}

	modelPath, err := onnxrt.ResolveModelPath(cfg.ModelDir)
	if err != nil {
		return nil, err
	}
	meta, err := onnxrt.LoadMeta(cfg.ModelDir)
	if err != nil {
		return nil, fmt.Errorf("load nli meta: %w", err)
	}
	entail := meta.LabelIndex("entail")
	if entail < 0 {
		return nil, fmt.Errorf("nli model in %s has no entailment label", cfg.ModelDir)
	}
	numLabels := len(meta.Labels)

	tk, err := pretrained.FromFile(filepath.Join(cfg.ModelDir, "tokenizer.json"))
	if err != nil {
		return nil, fmt.Errorf("load nli tokenizer: %w", err)
	}

	if err := onnxrt.Init(cfg.ModelDir); err != nil {
		return nil, err
	}
	outName, outDims, err := onnxrt.SelectOutput(modelPath, "logits")
	if err != nil {
		return nil, fmt.Errorf("inspect nli outputs: %w", err)
	}

	c := &Classifier{
		template:       cfg.Template,
		seqLen:         cfg.SeqLen,
		tk:             tk,
		candidates:     candidates(),
		entailmentIdx:  entail,
		numLabels:      numLabels,
		needsTokenType: meta.RequiresTokenType,
	}
	if err := c.prepareHypotheses(); err != nil {
		return nil, err
	}
	if err := c.newSession(modelPath, outName, outDims, cfg.Runtime); err != nil {
		return nil, err
	}
	return c, nil
}

// prepareHypotheses renders every candidate hypothesis once and records
// its token count, which truncation must leave intact.
func (c *Classifier) prepareHypotheses() error {
	c.hypotheses = make([]string, len(c.candidates))
	c.hypothesisLen = make([]int, len(c.candidates))
	for i, typ := range c.candidates {
		h := Hypothesis(c.template, typ)
		enc, err := c.tk.EncodeSingle(h, false)
		if err != nil {
			return fmt.Errorf("tokenize hypothesis for %s: %w", typ, err)
		}
		c.hypotheses[i] = h
		c.hypothesisLen[i] = len(enc.GetIds())
	}
	return nil
}

func (c *Classifier) newSession(modelPath, outName string, outDims []int64, rt onnxrt.Settings) error {
	opts, err := onnxrt.NewSessionOptions(rt)
	if err != nil {
		return err
	}
	defer opts.Destroy()

	inputShape := ort.NewShape(1, int64(c.seqLen))
	if c.inputIDs, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
		return fmt.Errorf("allocate input_ids tensor: %w", err)
	}
	if c.attentionMask, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
		return fmt.Errorf("allocate attention_mask tensor: %w", err)
	}
	inputNames := []string{"input_ids", "attention_mask"}
	inputs := []ort.Value{c.inputIDs, c.attentionMask}
	if c.needsTokenType {
		if c.tokenTypeIDs, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
			return fmt.Errorf("allocate token_type_ids tensor: %w", err)
		}
		inputNames = append(inputNames, "token_type_ids")
		inputs = append(inputs, c.tokenTypeIDs)
	}
	if c.output, err = ort.NewEmptyTensor[float32](onnxrt.OutputShape(outDims, c.seqLen, c.numLabels)); err != nil {
		return fmt.Errorf("allocate output tensor: %w", err)
	}
	c.session, err = ort.NewAdvancedSession(modelPath, inputNames, []string{outName}, inputs, []ort.Value{c.output}, opts)
	if err != nil {
		return fmt.Errorf("create nli session: %w", err)
	}
	return nil
}

// Classify scores every candidate hypothesis and normalizes the
// entailment logits across candidates.
func (c *Classifier) Classify(ctx context.Context, text string) (classifier.Prediction, error) {
	if c == nil || c.session == nil {
		return classifier.Prediction{}, classifier.ErrNotLoaded
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return classifier.Prediction{Type: fieldtype.Unknown}, nil
	}

	logits := make([]float32, len(c.candidates))
	for i := range c.candidates {
		if err := ctx.Err(); err != nil {
			return classifier.Prediction{}, err
		}
		l, err := c.entailment(text, i)
		if err != nil {
			return classifier.Prediction{}, err
		}
		logits[i] = l
	}
	probs := onnxrt.Softmax(logits)
	best := onnxrt.Argmax(probs)
	if best < 0 {
		return classifier.Prediction{Type: fieldtype.Unknown}, nil
	}
	return classifier.Prediction{Type: c.candidates[best], Confidence: float64(probs[best])}, nil
}

func (c *Classifier) entailment(premise string, candidate int) (float32, error) {
	enc, err := c.tk.EncodePair(premise, c.hypotheses[candidate], true)
	if err != nil {
		return 0, fmt.Errorf("tokenize: %w", err)
	}
	// Separator before the hypothesis, the hypothesis, closing separator.
	tail := c.hypothesisLen[candidate] + 2
	ids, mask, types := pad(enc.GetIds(), enc.GetAttentionMask(), enc.GetTypeIds(), tail, c.seqLen)

	c.mu.Lock()
	defer c.mu.Unlock()

	copy(c.inputIDs.GetData(), ids)
	copy(c.attentionMask.GetData(), mask)
	if c.tokenTypeIDs != nil {
		copy(c.tokenTypeIDs.GetData(), types)
	}
	onnxrt.LogTokenization("nli", c.seqLen, ids, mask)
	if err := c.session.Run(); err != nil {
		return 0, fmt.Errorf("onnx run: %w", err)
	}
	raw := c.output.GetData()
	if c.entailmentIdx >= len(raw) {
		return 0, errors.New("nli output shorter than label map")
	}
	return raw[c.entailmentIdx], nil
}

// Destroy releases the session and tensors.
func (c *Classifier) Destroy() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{c.inputIDs, c.attentionMask, c.tokenTypeIDs} {
		if t != nil {
			t.Destroy()
		}
	}
	if c.output != nil {
		c.output.Destroy()
	}
}

// Hypothesis fills the template with the type's natural-language
// description.
func Hypothesis(template string, typ fieldtype.Type) string {
	return strings.ReplaceAll(template, "{}", typ.Description())
}

// candidates are every canonical type except unknown, which is the
// absence of a winner rather than a hypothesis.
func candidates() []fieldtype.Type {
	return fieldtype.All()
}

// pad truncates or zero-pads the encoding to seqLen. Padding added by the
// tokenizer itself is dropped first. Truncation cuts from the middle: the
// last tail tokens always survive, so a long premise loses its end while
// the hypothesis and closing separator stay whole. tail is clamped so at
// least the leading token is kept.
func pad(ids, mask, types []int, tail, seqLen int) ([]int64, []int64, []int64) {
	used := len(ids)
	for used > 0 && used <= len(mask) && mask[used-1] == 0 {
		used--
	}
	outIDs := make([]int64, seqLen)
	outMask := make([]int64, seqLen)
	outTypes := make([]int64, seqLen)
	n := used
	if n > seqLen {
		n = seqLen
	}
	if tail < 1 {
		tail = 1
	}
	if tail > n-1 {
		tail = n - 1
	}
	head := n - tail
	for i := 0; i < n; i++ {
		src := i
		if used > seqLen && i >= head {
			src = used - (n - i)
		}
		outIDs[i] = int64(ids[src])
		outMask[i] = 1
		if src < len(types) {
			outTypes[i] = int64(types[src])
		}
	}
	return outIDs, outMask, outTypes
}
