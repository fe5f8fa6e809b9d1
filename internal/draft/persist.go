package draft

import (
	"fmt"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/backroom/internal/kv"
)

// Persist keeps the partialized state of a store in storage under name.
// partialize selects what is written; merge folds a decoded partial back over
// the defaults. onError receives every load or save failure and may be nil.
func Persist[S, P any](storage kv.Storage, name string, partialize func(S) P, merge func(S, P) S, onError func(error)) Option[S] {
	return func(o *options[S]) {
		o.persister = &slot[S, P]{
			storage:    storage,
			name:       name,
			partialize: partialize,
			merge:      merge,
			onError:    onError,
		}
	}
}

type slot[S, P any] struct {
	storage    kv.Storage
	name       string
	partialize func(S) P
	merge      func(S, P) S
	onError    func(error)
}

func (p *slot[S, P]) hydrate(defaults S) S {
	if p.storage == nil {
		return defaults
	}
	raw, ok, err := p.storage.Get(p.name)
	if err != nil {
		p.report(fmt.Errorf("load %s: %w", p.name, err))
		return defaults
	}
	if !ok {
		return defaults
	}
	var partial P
	if err := toml.Unmarshal([]byte(raw), &partial); err != nil {
		p.report(fmt.Errorf("decode %s: %w", p.name, err))
		return defaults
	}
	return p.merge(defaults, partial)
}

func (p *slot[S, P]) save(state S) {
	if p.storage == nil {
		return
	}
	data, err := toml.Marshal(p.partialize(state))
	if err != nil {
		p.report(fmt.Errorf("encode %s: %w", p.name, err))
		return
	}
	if err := p.storage.Set(p.name, string(data)); err != nil {
		p.report(fmt.Errorf("save %s: %w", p.name, err))
	}
}

func (p *slot[S, P]) report(err error) {
	if p.onError != nil {
		p.onError(err)
	}
}
