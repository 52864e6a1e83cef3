package sqlite

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Migrator applies numbered schema scripts (NNNN_name.sql) to a SqlStore and
// records the last applied number in PRAGMA user_version.
type Migrator struct {
	store *SqlStore
	log   *zap.Logger
}

// NewMigrator returns a Migrator for store.
func NewMigrator(store *SqlStore, log *zap.Logger) *Migrator {
	return &Migrator{
		store: store,
		log:   log,
	}
}

type script struct {
	version int
	name    string
}

// Up runs, in version order, every script in source newer than the
// database. Each script commits together with its version bump, so a failed
// script leaves the database at the previous version.
func (m *Migrator) Up(ctx context.Context, source fs.FS) error {
	all, err := readScripts(source)
	if err != nil {
		return err
	}

	current, err := m.store.userVersion()
	if err != nil {
		return err
	}

	i := sort.Search(len(all), func(i int) bool { return all[i].version > current })
	pending := all[i:]
	if len(pending) == 0 {
		return nil
	}

	m.log.Info("Bringing up usage schema",
		zap.Int("from_version", current),
		zap.Int("to_version", pending[len(pending)-1].version),
		zap.Int("migration_count", len(pending)))

	for _, s := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		body, err := fs.ReadFile(source, s.name)
		if err != nil {
			return err
		}

		m.log.Debug("Executing usage migration", zap.String("migration_name", s.name))
		stmt := fmt.Sprintf("%s\nPRAGMA user_version = %d;", body, s.version)
		if err := m.store.execTrans(ctx, stmt); err != nil {
			return fmt.Errorf("migration %s: %w", s.name, err)
		}
	}
	return nil
}

// readScripts lists the .sql files at the root of source sorted by version.
func readScripts(source fs.FS) ([]script, error) {
	entries, err := fs.ReadDir(source, ".")
	if err != nil {
		return nil, err
	}

	var list []script
	seen := map[int]string{}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		v, err := scriptVersion(e.Name())
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", e.Name(), err)
		}
		if prev, ok := seen[v]; ok {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, e.Name(), v)
		}
		seen[v] = e.Name()
		list = append(list, script{version: v, name: e.Name()})
	}

	sort.Slice(list, func(i, j int) bool { return list[i].version < list[j].version })
	return list, nil
}

// scriptVersion parses the leading number of a name like 0002_add_index.sql.
func scriptVersion(filename string) (int, error) {
	prefix, _, _ := strings.Cut(filename, "_")
	return strconv.Atoi(prefix)
}
