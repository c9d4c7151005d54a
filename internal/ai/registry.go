package ai

import (
	"math/rand/v2"
	"slices"
)

// ProviderConfig is the configured shape of one provider before the
// registry derives its enabled flag.
type ProviderConfig struct {
	Name       string
	APIKey     string
	Model      string
	Weight     float64
	UsageLimit string
}

// Descriptor is one entry of the provider registry. It is built once at
// start-up and never mutated.
type Descriptor struct {
	Name       string  `json:"name"`
	Enabled    bool    `json:"enabled"`
	Weight     float64 `json:"weight"`
	UsageLimit string  `json:"usage_limit"`
	Model      string  `json:"model"`
	FreeText   bool    `json:"free_text"`
	APIKey     string  `json:"-"`
}

// Registry is the ordered list of candidate providers.
type Registry []Descriptor

// freeText lists providers whose models answer with prose only.
var freeText = map[string]bool{
	HuggingFace: true,
}

// NewRegistry builds a registry from provider configs, keeping their order.
// A provider is enabled when it has a credential and a positive weight.
func NewRegistry(cfgs []ProviderConfig) Registry {
	reg := make(Registry, 0, len(cfgs))
	for _, c := range cfgs {
		reg = append(reg, Descriptor{
			Name:       c.Name,
			Enabled:    c.APIKey != "" && c.Weight > 0,
			Weight:     c.Weight,
			UsageLimit: c.UsageLimit,
			Model:      c.Model,
			FreeText:   freeText[c.Name],
			APIKey:     c.APIKey,
		})
	}
	return reg
}

// Enabled returns the enabled descriptors in registry order, minus the
// names in exclude.
func (r Registry) Enabled(exclude ...string) []Descriptor {
	var out []Descriptor
	for _, d := range r {
		if d.Enabled && !slices.Contains(exclude, d.Name) {
			out = append(out, d)
		}
	}
	return out
}

// Lookup returns the descriptor with the given name.
func (r Registry) Lookup(name string) (Descriptor, bool) {
	for _, d := range r {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Select draws one enabled provider with probability proportional to its
// weight. Candidates are walked in registry order, subtracting each weight
// from a uniform draw in [0, total) until the remainder is <= 0. If rounding
// leaves the loop without a hit, the first candidate wins. A nil rnd uses
// the global source.
func Select(reg Registry, rnd *rand.Rand, exclude ...string) (Descriptor, error) {
	candidates := reg.Enabled(exclude...)
	if len(candidates) == 0 {
		return Descriptor{}, ErrNoProviderConfigured
	}

	var total float64
	for _, d := range candidates {
		total += d.Weight
	}

	var u float64
	if rnd != nil {
		u = rnd.Float64()
	} else {
		u = rand.Float64()
	}
	remaining := u * total

	for _, d := range candidates {
		remaining -= d.Weight
		if remaining <= 0 {
			return d, nil
		}
	}
	return candidates[0], nil
}
