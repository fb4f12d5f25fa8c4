package puzzle

import (
	"context"
	"embed"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/peterkuimelis/powercountdown/internal/game"
)

//go:embed data/puzzles.yaml
var dataFS embed.FS

// CatalogFile represents the top-level YAML structure.
type CatalogFile struct {
	Puzzles []CatalogEntry `yaml:"puzzles"`
}

// CatalogEntry is one known-solvable target. Steps are worked moves in the
// form "a op b = result".
type CatalogEntry struct {
	Target     float64         `yaml:"target"`
	Difficulty game.Difficulty `yaml:"difficulty"`
	Steps      []string        `yaml:"steps"`
}

// Catalog is an offline Source and Hinter backed by a fixed list of puzzles.
// It is safe for concurrent use.
type Catalog struct {
	mu      sync.Mutex
	byLevel map[game.Difficulty][]CatalogEntry
	last    map[game.Difficulty]float64
	rng     *rand.Rand
}

// LoadCatalog reads a catalog from path, or the built-in one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = dataFS.ReadFile("data/puzzles.yaml")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses catalog YAML. Every entry must be a valid puzzle.
func ParseCatalog(data []byte) (*Catalog, error) {
	var cf CatalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse catalog YAML: %w", err)
	}
	if len(cf.Puzzles) == 0 {
		return nil, fmt.Errorf("%w: catalog has no puzzles", ErrInvalidPuzzle)
	}

	c := &Catalog{
		byLevel: make(map[game.Difficulty][]CatalogEntry),
		last:    make(map[game.Difficulty]float64),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for i, e := range cf.Puzzles {
		p, err := Validate(Puzzle{Target: e.Target})
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i+1, err)
		}
		e.Target = p.Target
		c.byLevel[e.Difficulty] = append(c.byLevel[e.Difficulty], e)
	}
	return c, nil
}

// WithRand replaces the random source, for reproducible picks.
func (c *Catalog) WithRand(r *rand.Rand) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rng = r
	return c
}

// Entries returns the catalog entries for a difficulty.
func (c *Catalog) Entries(d game.Difficulty) []CatalogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CatalogEntry(nil), c.byLevel[d]...)
}

// Generate picks a random puzzle of the requested difficulty, avoiding the
// target it returned last time when there is a choice.
func (c *Catalog) Generate(ctx context.Context, d game.Difficulty) (Puzzle, error) {
	if err := ctx.Err(); err != nil {
		return Puzzle{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.byLevel[d]
	if len(entries) == 0 {
		return Puzzle{}, fmt.Errorf("%w: no %s puzzles in catalog", ErrInvalidPuzzle, d)
	}
	e := entries[c.rng.IntN(len(entries))]
	if prev, ok := c.last[d]; ok && len(entries) > 1 && e.Target == prev {
		e = entries[(indexOf(entries, e.Target)+1+c.rng.IntN(len(entries)-1))%len(entries)]
	}
	c.last[d] = e.Target

	return Puzzle{
		Target:     e.Target,
		Numbers:    game.FixedDeck(),
		Difficulty: d,
		Solution:   strings.Join(e.Steps, "; "),
	}, nil
}

// Hint suggests the step following the furthest worked step whose result is
// already among values. An unknown target yields an empty hint.
func (c *Catalog) Hint(ctx context.Context, target float64, values []float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e, ok := c.lookup(target)
	if !ok || len(e.Steps) == 0 {
		return "", nil
	}
	next := 0
	for i, step := range e.Steps {
		if v, ok := stepResult(step); ok && containsValue(values, v) {
			next = i + 1
		}
	}
	if next >= len(e.Steps) {
		return "", nil
	}
	return "Try " + e.Steps[next] + ".", nil
}

func (c *Catalog) lookup(target float64) (CatalogEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entries := range c.byLevel {
		for _, e := range entries {
			if game.IsTargetReached(e.Target, target) {
				return e, true
			}
		}
	}
	return CatalogEntry{}, false
}

func stepResult(step string) (float64, bool) {
	_, result, ok := strings.Cut(step, "=")
	if !ok {
		return 0, false
	}
	return game.ParseLabel(result)
}

func containsValue(values []float64, v float64) bool {
	for _, x := range values {
		if game.IsTargetReached(x, v) {
			return true
		}
	}
	return false
}

func indexOf(entries []CatalogEntry, target float64) int {
	for i, e := range entries {
		if e.Target == target {
			return i
		}
	}
	return 0
}
