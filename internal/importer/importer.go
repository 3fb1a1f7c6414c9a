package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dnd-combat/internal/game/spell"
)

// Importer orchestrates content import from a Source to an output directory.
type Importer struct {
	source Source
	out    io.Writer
}

// New constructs an Importer backed by the given Source. Progress lines go to
// out; nil discards them.
//
// Precondition: source must be non-nil.
// Postcondition: returns a non-nil Importer.
func New(source Source, out io.Writer) *Importer {
	if out == nil {
		out = io.Discard
	}
	return &Importer{source: source, out: out}
}

// Run loads the spells q selects, validates them, and writes one multi-document
// YAML file per spell level to outputDir: cantrips.yaml, level1.yaml and so on.
// It returns the number of spells written.
//
// Precondition: outputDir must exist or be creatable.
// Postcondition: every written file loads with spell.LoadFromBytes, or an
// error is returned.
func (imp *Importer) Run(ctx context.Context, q Query, outputDir string) (int, error) {
	overall := time.Now()

	t0 := time.Now()
	batch, err := imp.source.Load(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("loading source: %w", err)
	}
	fmt.Fprintf(imp.out, "load    %d spell(s) in %s\n", len(batch.Spells), time.Since(t0).Round(time.Millisecond))
	for _, w := range batch.Warnings {
		fmt.Fprintf(imp.out, "WARNING: %s\n", w)
	}
	if len(batch.Spells) == 0 {
		return 0, fmt.Errorf("no spells matched the query")
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, fmt.Errorf("creating output directory %s: %w", outputDir, err)
	}

	byLevel := make(map[int][]*spell.Spell)
	for _, sp := range batch.Spells {
		byLevel[sp.Level] = append(byLevel[sp.Level], sp)
	}
	levels := make([]int, 0, len(byLevel))
	for l := range byLevel {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	written := 0
	for _, level := range levels {
		t1 := time.Now()
		spells := byLevel[level]
		sort.Slice(spells, func(i, j int) bool { return spells[i].ID < spells[j].ID })

		data, err := encodeSpells(spells)
		if err != nil {
			return written, fmt.Errorf("serialising level %d spells: %w", level, err)
		}
		// Validate output is loadable before writing.
		if _, err := spell.LoadFromBytes(data); err != nil {
			return written, fmt.Errorf("level %d spells failed validation: %w", level, err)
		}

		outPath := filepath.Join(outputDir, FileName(level))
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			return written, fmt.Errorf("writing level %d spells to %s: %w", level, outPath, err)
		}
		written += len(spells)
		fmt.Fprintf(imp.out, "wrote   %s  (%d spells)  in %s\n",
			outPath, len(spells), time.Since(t1).Round(time.Millisecond))
	}

	fmt.Fprintf(imp.out, "total   %s\n", time.Since(overall).Round(time.Millisecond))
	return written, nil
}

// FileName is the output file for spells of one level.
func FileName(level int) string {
	if level == 0 {
		return "cantrips.yaml"
	}
	return fmt.Sprintf("level%d.yaml", level)
}

func encodeSpells(spells []*spell.Spell) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, sp := range spells {
		if err := enc.Encode(sp); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
