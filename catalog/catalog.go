/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package catalog holds the read-only category dataset consumed by the
// role assignment engine. It is loaded once at startup and never mutated.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

//go:embed categories.json
var defaultData []byte

// Word is a single entry of a category. Hints are only ever shown to impostors.
type Word struct {
	Word  string   `json:"word" validate:"required"`
	Hints []string `json:"hints"`
}

type Category struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Words []Word `json:"words" validate:"required,min=1,dive"`
}

// Catalog is safe for concurrent reads.
type Catalog struct {
	categories []Category
	byID       map[string]int
}

var validate = validator.New()

// Default returns the embedded dataset.
func Default() (*Catalog, error) {
	return Parse(defaultData)
}

// Load reads a dataset from path. An empty path returns the embedded default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var categories []Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("invalid category data: %w", err)
	}

	return New(categories)
}

// New validates categories and builds a catalog from them.
func New(categories []Category) (*Catalog, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("invalid category data: no categories")
	}

	c := &Catalog{
		categories: make([]Category, 0, len(categories)),
		byID:       make(map[string]int, len(categories)),
	}

	for _, cat := range categories {
		if err := validate.Struct(cat); err != nil {
			return nil, fmt.Errorf("invalid category %q: %w", cat.ID, err)
		}

		if _, dup := c.byID[cat.ID]; dup {
			return nil, fmt.Errorf("invalid category data: duplicate id %q", cat.ID)
		}

		c.byID[cat.ID] = len(c.categories)
		c.categories = append(c.categories, cat)
	}

	return c, nil
}

func (c *Catalog) Get(id string) (Category, bool) {
	if c == nil {
		return Category{}, false
	}

	i, ok := c.byID[id]
	if !ok {
		return Category{}, false
	}

	return c.categories[i], true
}

// Categories returns the categories in dataset order.
func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

func (c *Catalog) IDs() []string {
	return lo.Map(c.categories, func(cat Category, _ int) string {
		return cat.ID
	})
}

func (c *Catalog) Len() int {
	return len(c.categories)
}

// Names returns the bare word strings of a category, used as the character
// list in who-is-who games.
func (cat Category) Names() []string {
	return lo.Map(cat.Words, func(w Word, _ int) string {
		return w.Word
	})
}
