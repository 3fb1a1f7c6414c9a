// Package content loads every static definition directory the engine needs
// into one read-only Library.
package content

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/ai"
	"github.com/cory-johannsen/dnd-combat/internal/game/condition"
	"github.com/cory-johannsen/dnd-combat/internal/game/ruleset"
	"github.com/cory-johannsen/dnd-combat/internal/game/spell"
)

// Dirs names the definition directories. Empty entries are skipped and leave
// the matching part of the Library empty.
type Dirs struct {
	Conditions string
	Spells     string
	Classes    string
	Weapons    string
	Monsters   string
	Encounters string
	Tactics    string
}

// Library is the loaded content. It is read-only and safe for concurrent use.
type Library struct {
	Conditions *condition.Registry
	Spells     *spell.Registry
	Rules      *ruleset.Ruleset
	// Tactics are the AI domains, sorted by ID.
	Tactics []*ai.Domain
}

// Load reads every directory in dirs concurrently.
//
// Precondition: every non-empty directory must be readable.
// Postcondition: returns a fully populated Library, or the first error
// encountered and no Library. Cancelling ctx abandons the load.
func Load(ctx context.Context, dirs Dirs, logger *zap.Logger) (*Library, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()

	lib := &Library{
		Conditions: condition.NewRegistry(),
		Spells:     spell.NewRegistry(),
	}
	var (
		classes    []*ruleset.ClassDef
		weapons    []*ruleset.WeaponDef
		monsters   []*ruleset.MonsterDef
		encounters []*ruleset.EncounterDef
	)

	g, gctx := errgroup.WithContext(ctx)
	load := func(name, dir string, fn func(string) error) {
		if dir == "" {
			return
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(dir); err != nil {
				return rpgerr.Wrapf(err, "content: loading %s", name)
			}
			return nil
		})
	}

	load("conditions", dirs.Conditions, func(dir string) (err error) {
		lib.Conditions, err = condition.LoadDirectory(dir)
		return err
	})
	load("spells", dirs.Spells, func(dir string) (err error) {
		lib.Spells, err = spell.LoadDirectory(dir)
		return err
	})
	load("classes", dirs.Classes, func(dir string) (err error) {
		classes, err = ruleset.LoadClasses(dir)
		return err
	})
	load("weapons", dirs.Weapons, func(dir string) (err error) {
		weapons, err = ruleset.LoadWeapons(dir)
		return err
	})
	load("monsters", dirs.Monsters, func(dir string) (err error) {
		monsters, err = ruleset.LoadMonsters(dir)
		return err
	})
	load("encounters", dirs.Encounters, func(dir string) (err error) {
		encounters, err = ruleset.LoadEncounters(dir)
		return err
	})
	load("tactics", dirs.Tactics, func(dir string) (err error) {
		lib.Tactics, err = ai.LoadDomains(dir)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	lib.Rules = ruleset.New(classes, weapons, monsters, encounters)

	if err := lib.checkReferences(); err != nil {
		return nil, err
	}

	nClasses, nWeapons, nMonsters, nEncounters := lib.Rules.Counts()
	logger.Info("content loaded",
		zap.Int("conditions", lib.Conditions.Len()),
		zap.Int("spells", len(lib.Spells.All())),
		zap.Int("classes", nClasses),
		zap.Int("weapons", nWeapons),
		zap.Int("monsters", nMonsters),
		zap.Int("encounters", nEncounters),
		zap.Int("tactics", len(lib.Tactics)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return lib, nil
}

// checkReferences verifies that spells only impose conditions that exist and
// that tactics only cast spells that exist. Each check is skipped when the
// registry it consults is empty.
func (l *Library) checkReferences() error {
	if l.Spells.Len() > 0 {
		for _, d := range l.Tactics {
			for _, id := range d.SpellIDs() {
				if _, ok := l.Spells.Get(id); !ok {
					return rpgerr.InvalidInputf("content: tactics %q casts unknown spell %q", d.ID, id)
				}
			}
		}
	}
	if l.Conditions.Len() == 0 {
		return nil
	}
	for _, s := range l.Spells.All() {
		if s.Condition == nil {
			continue
		}
		if _, ok := l.Conditions.Get(s.Condition.ID); !ok {
			return rpgerr.InvalidInputf("content: spell %q imposes unknown condition %q", s.ID, s.Condition.ID)
		}
	}
	return nil
}

// String summarises the library for logs and CLI output.
func (l *Library) String() string {
	c, w, m, e := l.Rules.Counts()
	return fmt.Sprintf("%d conditions, %d spells, %d classes, %d weapons, %d monsters, %d encounters, %d tactics",
		l.Conditions.Len(), len(l.Spells.All()), c, w, m, e, len(l.Tactics))
}
