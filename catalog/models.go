// Package catalog caches the creature catalog fetched from the public
// PokéAPI and serves it with server-side filtering, search, and sorting.
package catalog

import (
	"fmt"

	"github.com/user/pokesphere-go/store"
)

// apiIndex is the paged listing returned by GET /pokemon?limit=&offset=.
type apiIndex struct {
	Count   int `json:"count"`
	Results []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"results"`
}

// apiPokemon is the per-creature detail payload. Only the fields the
// catalog keeps are decoded; the rest of the (very large) payload is
// ignored.
type apiPokemon struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Height         int    `json:"height"`
	Weight         int    `json:"weight"`
	BaseExperience int    `json:"base_experience"`
	Sprites        struct {
		Other struct {
			Home struct {
				FrontDefault string `json:"front_default"`
			} `json:"home"`
		} `json:"other"`
	} `json:"sprites"`
	Cries struct {
		Latest string `json:"latest"`
		Legacy string `json:"legacy"`
	} `json:"cries"`
	Abilities []struct {
		Ability struct {
			Name string `json:"name"`
		} `json:"ability"`
	} `json:"abilities"`
	Types []struct {
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
	} `json:"types"`
	Stats []struct {
		BaseStat int `json:"base_stat"`
		Stat     struct {
			Name string `json:"name"`
		} `json:"stat"`
	} `json:"stats"`
}

// toCatalogItem flattens the nested payload into the tagged schema the
// store keeps. The payload is validated here, at the API boundary, so a
// malformed upstream document never reaches the database.
func (p *apiPokemon) toCatalogItem() (*store.CatalogItem, error) {
	if p.ID <= 0 {
		return nil, fmt.Errorf("catalog payload has invalid id %d", p.ID)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("catalog payload %d has no name", p.ID)
	}
	if len(p.Types) == 0 {
		return nil, fmt.Errorf("catalog payload %q has no types", p.Name)
	}

	item := &store.CatalogItem{
		ID:        p.ID,
		Name:      p.Name,
		Sprite:    p.Sprites.Other.Home.FrontDefault,
		Height:    p.Height,
		Weight:    p.Weight,
		BaseXP:    p.BaseExperience,
		Abilities: make([]string, 0, len(p.Abilities)),
		Types:     make([]string, 0, len(p.Types)),
		Cries:     store.Cries{Latest: p.Cries.Latest, Legacy: p.Cries.Legacy},
		Stats:     make([]store.Stat, 0, len(p.Stats)),
	}
	for _, a := range p.Abilities {
		item.Abilities = append(item.Abilities, a.Ability.Name)
	}
	for _, t := range p.Types {
		item.Types = append(item.Types, t.Type.Name)
	}
	for _, s := range p.Stats {
		item.Stats = append(item.Stats, store.Stat{Name: s.Stat.Name, Value: s.BaseStat})
	}
	return item, nil
}
