package engine

import (
	"log/slog"

	"omnisearch/internal/domain"
	"omnisearch/internal/infra/config"
)

// constructors maps engine ids to their compiled-in adapters. Config
// supplies the operational knobs; the constructor supplies parsing.
var constructors = map[string]func(desc domain.Descriptor, baseURL string) domain.Adapter{
	"duckduckgo": func(d domain.Descriptor, u string) domain.Adapter { return NewDuckDuckGo(d, u) },
	"wikipedia":  func(d domain.Descriptor, u string) domain.Adapter { return NewWikipedia(d, u) },
	"currency":   func(d domain.Descriptor, _ string) domain.Adapter { return NewCurrency(d) },
	"openmeteo":  func(d domain.Descriptor, u string) domain.Adapter { return NewOpenMeteo(d, u) },
}

// BuildRegistry creates a registry from the configured engine list. An
// engine id without a compiled-in adapter is a configuration mistake and
// errors out; so do duplicate ids or shortcuts.
func BuildRegistry(cfg *config.Config, logger *slog.Logger) (*Registry, error) {
	r := NewRegistry(logger)
	for i := range cfg.Engines {
		e := &cfg.Engines[i]
		build, ok := constructors[e.ID]
		if !ok {
			return nil, domain.NewDomainError("BuildRegistry", domain.ErrBackendNotFound, e.ID)
		}
		if err := r.Register(build(cfg.Descriptor(e), e.BaseURL)); err != nil {
			return nil, err
		}
	}
	return r, nil
}
