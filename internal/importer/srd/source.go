// Package srd imports spells from the D&D 5e System Reference Document,
// either live from the 5e API or from the 5e-database JSON dumps.
package srd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fadedpez/dnd5e-api/clients/dnd5e"
	"github.com/fadedpez/dnd5e-api/entities"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dnd-combat/internal/importer"
)

var (
	_ importer.Source = (*APISource)(nil)
	_ importer.Source = (*FileSource)(nil)
)

// SpellAPI is the part of the 5e API client the importer calls.
type SpellAPI interface {
	ListSpells(input *dnd5e.ListSpellsInput) ([]*entities.ReferenceItem, error)
	GetSpell(key string) (*entities.Spell, error)
}

// APISource implements importer.Source against the live 5e API.
type APISource struct {
	api    SpellAPI
	logger *zap.Logger
}

// NewAPISource builds an APISource over a new API client using httpClient.
//
// Precondition: httpClient must be non-nil.
func NewAPISource(httpClient *http.Client, logger *zap.Logger) (*APISource, error) {
	client, err := dnd5e.NewDND5eAPI(&dnd5e.DND5eAPIConfig{Client: httpClient})
	if err != nil {
		return nil, fmt.Errorf("creating 5e API client: %w", err)
	}
	return NewAPISourceFrom(client, logger), nil
}

// NewAPISourceFrom wraps an existing client.
func NewAPISourceFrom(api SpellAPI, logger *zap.Logger) *APISource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APISource{api: api, logger: logger}
}

// Load lists the spells matching q (or takes q.Keys) and fetches each one.
// Spells that fail conversion are skipped with a warning.
func (s *APISource) Load(ctx context.Context, q importer.Query) (*importer.SpellBatch, error) {
	keys := q.Keys
	if len(keys) == 0 {
		refs, err := s.api.ListSpells(&dnd5e.ListSpellsInput{Class: q.Class, Level: q.Level})
		if err != nil {
			return nil, fmt.Errorf("listing spells for class %q: %w", q.Class, err)
		}
		for _, ref := range refs {
			if ref != nil {
				keys = append(keys, ref.Key)
			}
		}
	}

	batch := &importer.SpellBatch{}
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		apiSpell, err := s.api.GetSpell(key)
		if err != nil {
			return nil, fmt.Errorf("fetching spell %s: %w", key, err)
		}
		s.logger.Debug("fetched spell", zap.String("key", key))
		addConverted(batch, fromAPI(apiSpell))
	}
	return batch, nil
}

// fromAPI copies the client's spell entity into the SRD document shape. The
// client does not expose the attack type, so damaging spells without a save
// are treated as spell attacks: melee at touch range, ranged otherwise.
func fromAPI(s *entities.Spell) *SpellData {
	d := &SpellData{
		Index:         s.Key,
		Name:          s.Name,
		Level:         s.SpellLevel,
		Range:         s.Range,
		Duration:      s.Duration,
		Concentration: s.Concentration,
		Ritual:        s.Ritual,
		CastingTime:   s.CastingTime,
	}
	if s.SpellSchool != nil {
		d.School = NamedRef{Name: s.SpellSchool.Name}
	}
	for _, c := range s.SpellClasses {
		if c != nil {
			d.Classes = append(d.Classes, NamedRef{Index: c.Key, Name: c.Name})
		}
	}
	if s.SpellDamage != nil {
		dd := &DamageData{AtSlotLevel: make(map[int]string)}
		if s.SpellDamage.SpellDamageType != nil {
			dd.DamageType = NamedRef{Name: s.SpellDamage.SpellDamageType.Name}
		}
		if at := s.SpellDamage.SpellDamageAtSlotLevel; at != nil {
			for i, v := range []string{
				at.FirstLevel, at.SecondLevel, at.ThirdLevel, at.FourthLevel, at.FifthLevel,
				at.SixthLevel, at.SeventhLevel, at.EighthLevel, at.NinthLevel,
			} {
				if v != "" {
					dd.AtSlotLevel[i+1] = v
				}
			}
		}
		d.Damage = dd
	}
	if s.DC != nil {
		d.DC = &DCData{Success: s.DC.DCSuccess}
		if s.DC.DCType != nil {
			d.DC.Type = NamedRef{Name: s.DC.DCType.Name}
		}
	}
	if s.AreaOfEffect != nil {
		d.AreaOfEffect = &AreaOfEffectData{Type: s.AreaOfEffect.Type, Size: s.AreaOfEffect.Size}
	}
	if d.Damage != nil && d.DC == nil {
		d.AttackType = "ranged"
		if RangeFeet(d.Range) <= 5 {
			d.AttackType = "melee"
		}
	}
	return d
}

// FileSource implements importer.Source for a directory of 5e-database JSON
// files. Each file holds either one spell document or an array of them.
type FileSource struct {
	dir string
}

// NewFileSource reads spell documents from dir.
func NewFileSource(dir string) *FileSource { return &FileSource{dir: dir} }

// Load decodes every *.json file in the directory and keeps the spells q
// selects.
//
// Precondition: the directory must exist.
func (s *FileSource) Load(ctx context.Context, q importer.Query) (*importer.SpellBatch, error) {
	files, err := jsonFiles(s.dir)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(q.Keys))
	for _, k := range q.Keys {
		keys = append(keys, importer.NameToID(k))
	}

	batch := &importer.SpellBatch{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		docs, err := parseFile(path)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if !selected(d, q, keys) {
				continue
			}
			addConverted(batch, d)
		}
	}
	return batch, nil
}

func selected(d *SpellData, q importer.Query, keys []string) bool {
	if len(keys) > 0 {
		return slices.Contains(keys, importer.NameToID(d.Index))
	}
	classes := make([]string, 0, len(d.Classes))
	for _, c := range d.Classes {
		classes = append(classes, importer.NameToID(c.Index))
	}
	return q.Matches(classes, d.Level)
}

func addConverted(batch *importer.SpellBatch, d *SpellData) {
	sp, warnings, err := ConvertSpell(d)
	batch.Warnings = append(batch.Warnings, warnings...)
	if err != nil {
		batch.Warnings = append(batch.Warnings, fmt.Sprintf("%s skipped: %v", d.Index, err))
		return
	}
	batch.Spells = append(batch.Spells, sp)
}

// parseFile decodes a single spell document or an array of them.
func parseFile(path string) ([]*SpellData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spell file %s: %w", path, err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []*SpellData
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("parsing spell file %s: %w", path, err)
		}
		return docs, nil
	}
	var d SpellData
	if err := json.Unmarshal(trimmed, &d); err != nil {
		return nil, fmt.Errorf("parsing spell file %s: %w", path, err)
	}
	return []*SpellData{&d}, nil
}

func jsonFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".json") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}
