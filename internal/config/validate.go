package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}

	if strings.TrimSpace(cfg.Data.LearnedPath) == "" {
		return errors.New("data.learned_path must be set")
	}

	if err := validatePipelineConfig(cfg.Pipeline); err != nil {
		return err
	}

	if err := validateClassifierConfig(cfg.Classifier); err != nil {
		return err
	}

	for name, p := range cfg.Providers {
		if err := validateProviderConfig(name, p); err != nil {
			return err
		}
	}

	if strings.EqualFold(cfg.Pipeline.Mode, ModeVerifier) {
		if strings.TrimSpace(cfg.Verifier.Provider) == "" {
			return errors.New("verifier mode requires verifier.provider")
		}
		if _, ok := cfg.Providers[cfg.Verifier.Provider]; !ok {
			return fmt.Errorf("verifier.provider %q not found in providers", cfg.Verifier.Provider)
		}
		if strings.TrimSpace(cfg.Verifier.Model) == "" {
			return errors.New("verifier mode requires verifier.model")
		}
	}

	if err := validateTelemetryConfig(cfg.Telemetry); err != nil {
		return err
	}

	return nil
}

func validatePipelineConfig(p PipelineConfig) error {
	switch strings.ToLower(strings.TrimSpace(p.Mode)) {
	case ModeClassifier, ModeVerifier:
	default:
		return fmt.Errorf("pipeline.mode must be classifier or verifier, got %q", p.Mode)
	}
	if err := validateUnit("pipeline.learn_min_confidence", p.LearnMinConfidence); err != nil {
		return err
	}
	return validateUnit("pipeline.answer_min_confidence", p.AnswerMinConfidence)
}

func validateClassifierConfig(c ClassifierConfig) error {
	if err := validateUnit("classifier.stage1_threshold", c.Stage1Threshold); err != nil {
		return err
	}
	if err := validateUnit("classifier.stage2_threshold", c.Stage2Threshold); err != nil {
		return err
	}
	if c.NLI.Template != "" && !strings.Contains(c.NLI.Template, "{}") {
		return errors.New("classifier.nli.template must contain {}")
	}
	switch strings.ToLower(strings.TrimSpace(c.Embed.Backend)) {
	case "", "onnx", "none":
	case "ollama", "openai", "openrouter":
		if strings.TrimSpace(c.Embed.Model) == "" {
			return fmt.Errorf("classifier.embed.model must be set for backend %q", c.Embed.Backend)
		}
		if c.Embed.Endpoint != "" {
			u, err := url.Parse(c.Embed.Endpoint)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return errors.New("classifier.embed.endpoint is invalid")
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return errors.New("classifier.embed.endpoint must be http or https")
			}
		}
	default:
		return fmt.Errorf("classifier.embed.backend must be onnx, ollama, openai, openrouter or none, got %q", c.Embed.Backend)
	}
	return nil
}

func validateUnit(name string, v float64) error {
	if v != v || v < 0 || v > 1 {
		return fmt.Errorf("%s must be within [0, 1], got %v", name, v)
	}
	return nil
}

func validateProviderConfig(name string, p ProviderConfig) error {
	switch strings.ToLower(strings.TrimSpace(p.Type)) {
	case "":
		return fmt.Errorf("provider %q missing type", name)
	case "openai":
	case "gemini":
		if strings.TrimSpace(p.APIKeyEnv) == "" && strings.TrimSpace(p.APIKey) == "" {
			return fmt.Errorf("provider %q missing api key (env or api_key)", name)
		}
	default:
		return fmt.Errorf("provider %q has unknown type %q", name, p.Type)
	}
	if p.BaseURL != "" {
		u, err := url.Parse(p.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("provider %q has invalid base_url", name)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("provider %q base_url must be http or https", name)
		}
		if err := blockPrivateHost(u.Host, p.AllowPrivateNetworks); err != nil {
			return fmt.Errorf("provider %q base_url blocked: %w", name, err)
		}
	}
	return nil
}

func validateTelemetryConfig(t TelemetryConfig) error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return errors.New("telemetry enabled but endpoint is empty")
	}
	if t.Protocol != "" {
		switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
		case "grpc", "http":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", t.Protocol)
		}
	}
	return nil
}

func blockPrivateHost(hostport string, allowPrivate bool) error {
	if allowPrivate {
		return nil
	}
	host := hostport
	if strings.Contains(hostport, "]") || strings.Contains(hostport, ":") {
		h, _, err := net.SplitHostPort(hostport)
		if err == nil {
			host = h
		}
	}
	lc := strings.ToLower(strings.TrimSpace(host))
	if lc == "localhost" {
		return errors.New("private network host localhost blocked for SSRF safety")
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return fmt.Errorf("private network IP %s blocked for SSRF safety", ip.String())
		}
		return nil
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	privateBlocks := []*net.IPNet{
		{IP: net.ParseIP("127.0.0.0"), Mask: net.CIDRMask(8, 32)},
		{IP: net.ParseIP("10.0.0.0"), Mask: net.CIDRMask(8, 32)},
		{IP: net.ParseIP("172.16.0.0"), Mask: net.CIDRMask(12, 32)},
		{IP: net.ParseIP("192.168.0.0"), Mask: net.CIDRMask(16, 32)},
		{IP: net.ParseIP("169.254.0.0"), Mask: net.CIDRMask(16, 32)},
		{IP: net.ParseIP("::1"), Mask: net.CIDRMask(128, 128)},
		{IP: net.ParseIP("fc00::"), Mask: net.CIDRMask(7, 128)},
		{IP: net.ParseIP("fe80::"), Mask: net.CIDRMask(10, 128)},
	}
	for _, block := range privateBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
