// Package app wires configuration into a running pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/straja-ai/fieldsense/internal/answer"
	"github.com/straja-ai/fieldsense/internal/cache"
	"github.com/straja-ai/fieldsense/internal/classifier"
	"github.com/straja-ai/fieldsense/internal/config"
	"github.com/straja-ai/fieldsense/internal/embed"
	"github.com/straja-ai/fieldsense/internal/journal"
	"github.com/straja-ai/fieldsense/internal/learned"
	"github.com/straja-ai/fieldsense/internal/nli"
	"github.com/straja-ai/fieldsense/internal/patterns"
	"github.com/straja-ai/fieldsense/internal/pipeline"
	"github.com/straja-ai/fieldsense/internal/provider"
	"github.com/straja-ai/fieldsense/internal/redact"
	"github.com/straja-ai/fieldsense/internal/telemetry"
	"github.com/straja-ai/fieldsense/internal/verifier"
)

// Version is stamped at build time.
var Version = "dev"

// App owns every long-lived component.
type App struct {
	Config    *config.Config
	Pipeline  *pipeline.Pipeline
	Cache     *cache.Hierarchical
	Learned   *learned.Store
	Journal   *journal.Journal
	Telemetry *telemetry.Provider

	mu      sync.Mutex
	closers []func()
}

// New builds the app. Models load lazily on the first cache miss.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a := &App{Config: cfg}

	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  "fieldsense",
		Version:  Version,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.Telemetry = tel

	store, err := OpenLearned(cfg.Data.LearnedPath)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Learned = store

	if cfg.Data.JournalPath != "" {
		j, err := journal.Open(cfg.Data.JournalPath)
		if err != nil {
			redact.Logf("journal: disabled: %v", err)
		} else {
			a.Journal = j
			a.onClose(func() { _ = j.Close() })
		}
	}

	profile, err := answer.LoadProfile(cfg.Data.ProfilePath)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Cache = cache.New(patterns.Default(), store, nil)
	a.Cache.SetObserver(tel)

	two := classifier.New(a.stage1(), a.stage2(),
		classifier.WithThresholds(cfg.Classifier.Stage1Threshold, cfg.Classifier.Stage2Threshold),
		classifier.WithObserver(tel),
	)

	var ver verifier.Verifier
	if strings.EqualFold(cfg.Pipeline.Mode, config.ModeVerifier) {
		ver, err = buildVerifier(ctx, cfg)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
	}

	a.Pipeline = pipeline.New(pipeline.Deps{
		Cache:      a.Cache,
		Classifier: two,
		Verifier:   ver,
		Journal:    a.Journal,
		Telemetry:  tel,
		Profile:    profile,
	}, pipeline.Options{
		Mode:                strings.ToLower(cfg.Pipeline.Mode),
		LearnMinConfidence:  cfg.Pipeline.LearnMinConfidence,
		AnswerMinConfidence: cfg.Pipeline.AnswerMinConfidence,
	})
	return a, nil
}

// OpenLearned opens the learned store. A corrupt file is moved aside and
// learning starts over rather than refusing to run.
func OpenLearned(path string) (*learned.Store, error) {
	store, err := learned.Open(path)
	if err == nil {
		return store, nil
	}
	if !errors.Is(err, learned.ErrCorrupt) {
		return nil, err
	}
	aside := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
	if rerr := os.Rename(path, aside); rerr != nil {
		return nil, fmt.Errorf("%w (and could not move it aside: %v)", err, rerr)
	}
	redact.Logf("learned: warning: %v; moved to %s and starting empty", err, aside)
	return learned.Open(path)
}

func (a *App) stage1() classifier.Stage {
	c := a.Config.Classifier
	return classifier.Lazy("stage1_nli", func() (classifier.Stage, error) {
		m, err := nli.Load(nli.Config{
			ModelDir: c.NLI.ModelDir,
			Template: c.NLI.Template,
			SeqLen:   c.NLI.SeqLen,
			Runtime:  c.Runtime,
		})
		if err != nil {
			return nil, err
		}
		a.onClose(m.Destroy)
		return m, nil
	})
}

func (a *App) stage2() classifier.Stage {
	c := a.Config.Classifier
	backend := strings.ToLower(strings.TrimSpace(c.Embed.Backend))
	if backend == "none" {
		return nil
	}
	return classifier.Lazy("stage2_semantic", func() (classifier.Stage, error) {
		corpus := embed.DefaultCorpus()
		if c.Embed.CorpusPath != "" {
			loaded, err := embed.LoadCorpus(c.Embed.CorpusPath)
			if err != nil {
				return nil, err
			}
			corpus = loaded
		}

		if backend == "onnx" {
			e, err := embed.LoadONNX(embed.ONNXConfig{ModelDir: c.Embed.ModelDir, SeqLen: c.Embed.SeqLen, Runtime: c.Runtime})
			if err != nil {
				return nil, err
			}
			a.onClose(e.Destroy)
			return embed.NewSimilarity(e, corpus), nil
		}

		endpoint := c.Embed.Endpoint
		if endpoint == "" {
			endpoint = embed.DefaultEndpoint(backend)
		}
		client, err := embed.NewClient(embed.ClientConfig{
			Provider: backend,
			Model:    c.Embed.Model,
			Endpoint: endpoint,
			APIKey:   os.Getenv(c.Embed.APIKeyEnv),
		})
		if err != nil {
			return nil, err
		}
		return embed.NewSimilarity(client, corpus), nil
	})
}

func buildVerifier(ctx context.Context, cfg *config.Config) (verifier.Verifier, error) {
	pc, ok := cfg.Providers[cfg.Verifier.Provider]
	if !ok {
		return nil, fmt.Errorf("verifier provider %q not configured", cfg.Verifier.Provider)
	}
	timeout := time.Duration(pc.TimeoutSeconds) * time.Second

	var p provider.Provider
	switch strings.ToLower(pc.Type) {
	case "openai":
		p = provider.NewOpenAI(pc.BaseURL, pc.ResolveAPIKey(), timeout, 0)
	case "gemini":
		g, err := provider.NewGemini(ctx, pc.ResolveAPIKey(), cfg.Verifier.Model)
		if err != nil {
			return nil, err
		}
		p = g
	default:
		return nil, fmt.Errorf("unknown provider type %q", pc.Type)
	}
	return verifier.NewLLM(p, cfg.Verifier.Model), nil
}

func (a *App) onClose(fn func()) {
	a.mu.Lock()
	a.closers = append(a.closers, fn)
	a.mu.Unlock()
}

// Close releases models, the journal and telemetry.
func (a *App) Close(ctx context.Context) {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	a.Telemetry.Shutdown(ctx)
}
