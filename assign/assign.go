/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package assign computes the per-player secret data dealt at game start.
//
// Given the same seed, players, settings and catalog, the output is
// deterministic.
package assign

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/Seednode/impostor/catalog"
	"github.com/Seednode/impostor/protocol"
)

var (
	ErrNoPlayers    = errors.New("no players to assign")
	ErrNoCategories = errors.New("no categories selected")
)

// UnknownCategoryError is returned when settings reference a category the
// catalog does not have.
type UnknownCategoryError struct {
	ID string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q", e.ID)
}

// Engine is safe for concurrent use.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns an engine drawing from src. A nil src seeds from the runtime.
func New(src rand.Source) *Engine {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	return &Engine{rng: rand.New(src)}
}

// NewSeeded is shorthand for a PCG-backed engine, mostly for tests.
func NewSeeded(seed uint64) *Engine {
	return New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Assign dispatches on game type.
func (e *Engine) Assign(gameType protocol.GameType, players []protocol.Player, settings protocol.Settings, cat *catalog.Catalog) ([]protocol.Assignment, error) {
	switch gameType {
	case protocol.GameWhoIsWho:
		return e.WhoIsWho(players, settings, cat)
	case protocol.GameImpostor, "":
		return e.Impostor(players, settings, cat)
	default:
		return nil, fmt.Errorf("unknown game type %q", gameType)
	}
}

// Impostor deals one shared word to civilians and marks
// min(ImpostorCount, len(players)-1) players as impostors. Impostors get no
// word, and a hint from the word entry only if ShowHints is set.
func (e *Engine) Impostor(players []protocol.Player, settings protocol.Settings, cat *catalog.Catalog) ([]protocol.Assignment, error) {
	if len(players) == 0 {
		return nil, ErrNoPlayers
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	category, err := e.pickCategoryLocked(settings, cat)
	if err != nil {
		return nil, err
	}

	word := category.Words[e.rng.IntN(len(category.Words))]

	out := make([]protocol.Assignment, len(players))
	for i, p := range players {
		out[i] = protocol.Assignment{
			ID:   p.ID,
			Name: p.Name,
			Type: protocol.RoleCivilian,
			Word: word.Word,
		}
	}

	impostors := min(settings.ImpostorCount, len(players)-1)

	for assigned := 0; assigned < impostors; {
		idx := e.rng.IntN(len(players))
		if out[idx].Type == protocol.RoleImpostor {
			continue
		}

		var hint *string
		if settings.ShowHints && len(word.Hints) > 0 {
			h := word.Hints[e.rng.IntN(len(word.Hints))]
			hint = &h
		}

		out[idx] = protocol.Assignment{
			ID:   players[idx].ID,
			Name: players[idx].Name,
			Type: protocol.RoleImpostor,
			Hint: hint,
		}
		assigned++
	}

	return out, nil
}

// WhoIsWho shuffles the characters of one selected category and gives
// player i the character at i mod len(characters). Every record carries the
// same full roster.
func (e *Engine) WhoIsWho(players []protocol.Player, settings protocol.Settings, cat *catalog.Catalog) ([]protocol.Assignment, error) {
	if len(players) == 0 {
		return nil, ErrNoPlayers
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	category, err := e.pickCategoryLocked(settings, cat)
	if err != nil {
		return nil, err
	}

	characters := category.Names()
	e.rng.Shuffle(len(characters), func(i, j int) {
		characters[i], characters[j] = characters[j], characters[i]
	})

	roster := make([]protocol.RosterEntry, len(players))
	for i, p := range players {
		roster[i] = protocol.RosterEntry{
			ID:        p.ID,
			Name:      p.Name,
			Character: characters[i%len(characters)],
		}
	}

	out := make([]protocol.Assignment, len(players))
	for i, p := range players {
		out[i] = protocol.Assignment{
			ID:          p.ID,
			Name:        p.Name,
			PlayersData: roster,
		}
	}

	return out, nil
}

func (e *Engine) pickCategoryLocked(settings protocol.Settings, cat *catalog.Catalog) (catalog.Category, error) {
	if len(settings.SelectedCategories) == 0 {
		return catalog.Category{}, ErrNoCategories
	}

	id := settings.SelectedCategories[e.rng.IntN(len(settings.SelectedCategories))]

	category, ok := cat.Get(id)
	if !ok {
		return catalog.Category{}, &UnknownCategoryError{ID: id}
	}

	return category, nil
}
