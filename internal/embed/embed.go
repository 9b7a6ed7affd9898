// Package embed is the stage-2 semantic classifier. Field text is embedded
// and compared with reference phrases for every canonical type; the type
// of the nearest phrase wins.
//
// Embeddings come from a local ONNX sentence encoder or from an
// OpenAI-compatible /v1/embeddings endpoint (ollama, openai, openrouter).
package embed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/straja-ai/fieldsense/internal/classifier"
	"github.com/straja-ai/fieldsense/internal/fieldtype"
	"github.com/straja-ai/fieldsense/internal/onnxrt"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type reference struct {
	typ    fieldtype.Type
	phrase string
	vec    []float32
}

// Similarity implements classifier.Stage over an Embedder and a Corpus.
// Reference vectors are computed on first use; a failed attempt is
// retried on the next call.
type Similarity struct {
	embedder Embedder
	corpus   Corpus

	mu   sync.Mutex
	refs []reference
}

var _ classifier.Stage = (*Similarity)(nil)

func NewSimilarity(e Embedder, c Corpus) *Similarity {
	if len(c) == 0 {
		c = DefaultCorpus()
	}
	return &Similarity{embedder: e, corpus: c}
}

func (s *Similarity) Classify(ctx context.Context, text string) (classifier.Prediction, error) {
	if s == nil || s.embedder == nil {
		return classifier.Prediction{}, classifier.ErrNotLoaded
	}
	if strings.TrimSpace(text) == "" {
		return classifier.Prediction{Type: fieldtype.Unknown}, nil
	}
	refs, err := s.references(ctx)
	if err != nil {
		return classifier.Prediction{}, err
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return classifier.Prediction{}, fmt.Errorf("embed field: %w", err)
	}

	best := classifier.Prediction{Type: fieldtype.Unknown}
	for _, ref := range refs {
		score := onnxrt.Cosine(vec, ref.vec)
		if score > best.Confidence {
			best = classifier.Prediction{Type: ref.typ, Confidence: score}
		}
	}
	if best.Confidence > 1 {
		best.Confidence = 1
	}
	return best, nil
}

func (s *Similarity) references(ctx context.Context) ([]reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs != nil {
		return s.refs, nil
	}
	refs := make([]reference, 0, s.corpus.Len())
	for _, typ := range s.corpus.Types() {
		for _, phrase := range s.corpus[typ] {
			vec, err := s.embedder.Embed(ctx, phrase)
			if err != nil {
				return nil, fmt.Errorf("embed reference %q: %w", phrase, err)
			}
			refs = append(refs, reference{typ: typ, phrase: phrase, vec: vec})
		}
	}
	s.refs = refs
	return refs, nil
}
