package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/pokesphere-go/config"
	"github.com/user/pokesphere-go/store"
)

// fakeUpstream serves a minimal catalog API with the given entries.
func fakeUpstream(t *testing.T, entries map[string]apiPokemon) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/pokemon", func(w http.ResponseWriter, r *http.Request) {
		var index apiIndex
		index.Count = len(entries)
		for name := range entries {
			index.Results = append(index.Results, struct {
				Name string `json:"name"`
				URL  string `json:"url"`
			}{Name: name})
		}
		_ = json.NewEncoder(w).Encode(index)
	})
	mux.HandleFunc("/pokemon/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/pokemon/")
		entry, ok := entries[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(entry)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func fakePokemon(id int, name string) apiPokemon {
	var p apiPokemon
	p.ID = id
	p.Name = name
	p.Height = 7
	p.Weight = 69
	p.BaseExperience = 64
	p.Sprites.Other.Home.FrontDefault = fmt.Sprintf("https://img.example/%d.png", id)
	p.Cries.Latest = "latest.ogg"
	p.Cries.Legacy = "legacy.ogg"
	p.Abilities = append(p.Abilities, struct {
		Ability struct {
			Name string `json:"name"`
		} `json:"ability"`
	}{})
	p.Abilities[0].Ability.Name = "overgrow"
	p.Types = append(p.Types, struct {
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
	}{})
	p.Types[0].Type.Name = "grass"
	p.Stats = append(p.Stats, struct {
		BaseStat int `json:"base_stat"`
		Stat     struct {
			Name string `json:"name"`
		} `json:"stat"`
	}{BaseStat: 45})
	p.Stats[0].Stat.Name = "hp"
	return p
}

func TestSyncerRun(t *testing.T) {
	t.Parallel()

	entries := map[string]apiPokemon{
		"bulbasaur": fakePokemon(1, "bulbasaur"),
		"ivysaur":   fakePokemon(2, "ivysaur"),
		"venusaur":  fakePokemon(3, "venusaur"),
	}
	srv := fakeUpstream(t, entries)

	mem := store.NewMemoryStore()
	broadcaster := NewBroadcaster()
	_, events := broadcaster.Subscribe()

	syncer := NewSyncer(mem, &config.CatalogConfig{
		BaseURL:   srv.URL,
		SyncLimit: 10,
	}, broadcaster, zap.NewNop())
	syncer.client = srv.Client()

	require.NoError(t, syncer.Run(context.Background()))

	count, err := mem.CountItems(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	items, err := mem.FindItemsByIDs(context.Background(), []int{1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "bulbasaur", items[0].Name)
	assert.Equal(t, []string{"grass"}, items[0].Types)
	assert.Equal(t, "latest.ogg", items[0].Cries.Latest)
	assert.Equal(t, []store.Stat{{Name: "hp", Value: 45}}, items[0].Stats)

	// The final progress event reports completion.
	var last ProgressEvent
	for {
		select {
		case event := <-events:
			last = event
			continue
		default:
		}
		break
	}
	assert.True(t, last.Done)
	assert.Equal(t, 3, last.Fetched)
	assert.Equal(t, 100, last.Percent)
}

func TestSyncerRunSkipsMalformedEntries(t *testing.T) {
	t.Parallel()

	broken := fakePokemon(0, "missingno")
	entries := map[string]apiPokemon{
		"bulbasaur": fakePokemon(1, "bulbasaur"),
		"missingno": broken,
	}
	srv := fakeUpstream(t, entries)

	mem := store.NewMemoryStore()
	syncer := NewSyncer(mem, &config.CatalogConfig{
		BaseURL:   srv.URL,
		SyncLimit: 10,
	}, NewBroadcaster(), zap.NewNop())
	syncer.client = srv.Client()

	require.NoError(t, syncer.Run(context.Background()))

	count, err := mem.CountItems(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSyncerRunHonorsCancellation(t *testing.T) {
	t.Parallel()

	entries := map[string]apiPokemon{"bulbasaur": fakePokemon(1, "bulbasaur")}
	srv := fakeUpstream(t, entries)

	mem := store.NewMemoryStore()
	syncer := NewSyncer(mem, &config.CatalogConfig{
		BaseURL:   srv.URL,
		SyncLimit: 10,
	}, NewBroadcaster(), zap.NewNop())
	syncer.client = srv.Client()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, syncer.Run(ctx))
}

func TestBroadcasterDeliversLastEventToLateSubscribers(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster()
	b.Broadcast(ProgressEvent{Fetched: 50, Total: 100, Percent: 50})

	_, events := b.Subscribe()
	select {
	case event := <-events:
		assert.Equal(t, 50, event.Fetched)
	default:
		t.Fatal("late subscriber did not receive the last event")
	}
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster()
	id, events := b.Subscribe()
	b.Unsubscribe(id)

	_, open := <-events
	assert.False(t, open)
	assert.Zero(t, b.SubscriberCount())
}
