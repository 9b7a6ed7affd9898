package embed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/straja-ai/fieldsense/internal/classifier"
	"github.com/straja-ai/fieldsense/internal/onnxrt"
	ort "github.com/yalue/onnxruntime_go"
)

const defaultSeqLen = 128

// ONNXConfig selects a local sentence-transformer export.
type ONNXConfig struct {
	ModelDir string
	SeqLen   int
	Runtime  onnxrt.Settings
}

// ONNXEmbedder runs a sentence encoder locally. Token embeddings are mean
// pooled over the attention mask and L2 normalized; models that already
// export a pooled sentence_embedding are used as is.
type ONNXEmbedder struct {
	tokenizer *WordPieceTokenizer
	seqLen    int
	hidden    int
	pooled    bool

	mu            sync.Mutex
	session       *ort.AdvancedSession
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
}

// LoadONNX opens the model and tokenizer under cfg.ModelDir.
func LoadONNX(cfg ONNXConfig) (*ONNXEmbedder, error) {
	if strings.TrimSpace(cfg.ModelDir) == "" {
		return nil, classifier.ErrNotLoaded
	}
	if cfg.SeqLen <= 0 {
		cfg.SeqLen = defaultSeqLen
	}
	modelPath, err := onnxrt.ResolveModelPath(cfg.ModelDir)
	if err != nil {
		return nil, err
	}
	tok, err := LoadTokenizerFromDir(cfg.ModelDir)
	if err != nil {
		return nil, fmt.Errorf("load embed tokenizer: %w", err)
	}
	meta, err := onnxrt.LoadMeta(cfg.ModelDir)
	if err != nil {
		return nil, fmt.Errorf("load embed meta: %w", err)
	}
	if err := onnxrt.Init(cfg.ModelDir); err != nil {
		return nil, err
	}
	outName, outDims, err := onnxrt.SelectOutput(modelPath, "sentence_embedding", "last_hidden_state", "token_embeddings")
	if err != nil {
		return nil, fmt.Errorf("inspect embed outputs: %w", err)
	}

	hidden := meta.HiddenSize
	if len(outDims) > 0 && outDims[len(outDims)-1] > 0 {
		hidden = int(outDims[len(outDims)-1])
	}
	if hidden <= 0 {
		return nil, fmt.Errorf("cannot determine embedding width for %s", cfg.ModelDir)
	}

	e := &ONNXEmbedder{
		tokenizer: tok,
		seqLen:    cfg.SeqLen,
		hidden:    hidden,
		pooled:    len(outDims) == 2,
	}

	opts, err := onnxrt.NewSessionOptions(cfg.Runtime)
	if err != nil {
		return nil, err
	}
	defer opts.Destroy()

	inputShape := ort.NewShape(1, int64(e.seqLen))
	if e.inputIDs, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
		return nil, fmt.Errorf("allocate input_ids tensor: %w", err)
	}
	if e.attentionMask, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
		return nil, fmt.Errorf("allocate attention_mask tensor: %w", err)
	}
	inputNames := []string{"input_ids", "attention_mask"}
	inputs := []ort.Value{e.inputIDs, e.attentionMask}
	if meta.RequiresTokenType {
		if e.tokenTypeIDs, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
			return nil, fmt.Errorf("allocate token_type_ids tensor: %w", err)
		}
		inputNames = append(inputNames, "token_type_ids")
		inputs = append(inputs, e.tokenTypeIDs)
	}
	if e.output, err = ort.NewEmptyTensor[float32](onnxrt.OutputShape(outDims, e.seqLen, hidden)); err != nil {
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}
	e.session, err = ort.NewAdvancedSession(modelPath, inputNames, []string{outName}, inputs, []ort.Value{e.output}, opts)
	if err != nil {
		return nil, fmt.Errorf("create embed session: %w", err)
	}
	return e, nil
}

func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e == nil || e.session == nil {
		return nil, classifier.ErrNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, mask := e.tokenizer.Encode(text, e.seqLen)

	e.mu.Lock()
	defer e.mu.Unlock()

	copy(e.inputIDs.GetData(), ids)
	copy(e.attentionMask.GetData(), mask)
	onnxrt.LogTokenization("embed", e.seqLen, ids, mask)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	raw := e.output.GetData()
	if e.pooled {
		out := make([]float32, e.hidden)
		copy(out, raw)
		return onnxrt.Normalize(out), nil
	}
	return onnxrt.Normalize(meanPool(raw, mask, e.hidden)), nil
}

func (e *ONNXEmbedder) Dimensions() int {
	return e.hidden
}

// Destroy releases the session and tensors.
func (e *ONNXEmbedder) Destroy() {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{e.inputIDs, e.attentionMask, e.tokenTypeIDs} {
		if t != nil {
			t.Destroy()
		}
	}
	if e.output != nil {
		e.output.Destroy()
	}
}

// meanPool averages the token vectors whose mask is set. raw is laid out
// as [seq][hidden].
func meanPool(raw []float32, mask []int64, hidden int) []float32 {
	out := make([]float32, hidden)
	var n float32
	for i, m := range mask {
		if m == 0 {
			continue
		}
		row := i * hidden
		if row+hidden > len(raw) {
			break
		}
		for j := 0; j < hidden; j++ {
			out[j] += raw[row+j]
		}
		n++
	}
	if n == 0 {
		return out
	}
	for j := range out {
		out[j] /= n
	}
	return out
}
