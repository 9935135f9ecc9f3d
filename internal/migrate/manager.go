package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	defaultMigrationsTable = "schema_migrations"
	defaultSeedsTable      = "schema_seeds"
)

// Manager executes SQL migrations and seed files stored on disk.
type Manager struct {
	db              *sql.DB
	migrationsDir   string
	seedsDir        string
	migrationsTable string
	seedsTable      string
}

// NewManager constructs a Manager.
func NewManager(db *sql.DB, migrationsDir, seedsDir string) *Manager {
	return &Manager{
		db:              db,
		migrationsDir:   migrationsDir,
		seedsDir:        seedsDir,
		migrationsTable: defaultMigrationsTable,
		seedsTable:      defaultSeedsTable,
	}
}

// Up applies all pending migrations in lexical order.
func (m *Manager) Up(ctx context.Context) error {
	if err := m.ensureTables(ctx); err != nil {
		return err
	}
	executed, err := m.listExecuted(ctx, m.migrationsTable)
	if err != nil {
		return err
	}
	files, err := collectSQL(m.migrationsDir, ".up.sql")
	if err != nil {
		return err
	}
	for _, file := range files {
		if executed[file.base] {
			continue
		}
		if err := m.exec(ctx, file.path); err != nil {
			return fmt.Errorf("apply migration %s: %w", file.base, err)
		}
		if err := m.insertRecord(ctx, m.migrationsTable, file.base); err != nil {
			return err
		}
	}
	return nil
}

// Down reverts the most recently applied migration.
func (m *Manager) Down(ctx context.Context) error {
	if err := m.ensureTables(ctx); err != nil {
		return err
	}
	var latest string
	err := m.db.QueryRowContext(ctx,
		fmt.Sprintf(`select name from %s order by applied_at desc limit 1`, m.migrationsTable),
	).Scan(&latest)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	downPath := filepath.Join(m.migrationsDir, strings.TrimSuffix(latest, ".up.sql")+".down.sql")
	if err := m.exec(ctx, downPath); err != nil {
		return fmt.Errorf("revert migration %s: %w", latest, err)
	}
	_, err = m.db.ExecContext(ctx,
		fmt.Sprintf(`delete from %s where name = $1`, m.migrationsTable), latest)
	return err
}

// Seed applies all pending seed files.
func (m *Manager) Seed(ctx context.Context) error {
	if err := m.ensureTables(ctx); err != nil {
		return err
	}
	executed, err := m.listExecuted(ctx, m.seedsTable)
	if err != nil {
		return err
	}
	files, err := collectSQL(m.seedsDir, ".sql")
	if err != nil {
		return err
	}
	for _, file := range files {
		if executed[file.base] {
			continue
		}
		if err := m.exec(ctx, file.path); err != nil {
			return fmt.Errorf("apply seed %s: %w", file.base, err)
		}
		if err := m.insertRecord(ctx, m.seedsTable, file.base); err != nil {
			return err
		}
	}
	return nil
}

// Status lists applied migrations and seeds with their timestamps.
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	if err := m.ensureTables(ctx); err != nil {
		return nil, err
	}
	var out []string
	for _, table := range []string{m.migrationsTable, m.seedsTable} {
		rows, err := m.db.QueryContext(ctx,
			fmt.Sprintf(`select name, applied_at from %s order by applied_at`, table))
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var (
				name    string
				applied time.Time
			)
			if err := rows.Scan(&name, &applied); err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, fmt.Sprintf("%s\t%s\t%s", table, name, applied.UTC().Format(time.RFC3339)))
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

func (m *Manager) ensureTables(ctx context.Context) error {
	for _, table := range []string{m.migrationsTable, m.seedsTable} {
		_, err := m.db.ExecContext(ctx, fmt.Sprintf(`
			create table if not exists %s (
				name text primary key,
				applied_at timestamptz not null default now()
			)`, table))
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) listExecuted(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`select name from %s`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	executed := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		executed[name] = true
	}
	return executed, rows.Err()
}

func (m *Manager) exec(ctx context.Context, path string) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, string(contents)); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Manager) insertRecord(ctx context.Context, table, name string) error {
	_, err := m.db.ExecContext(ctx,
		fmt.Sprintf(`insert into %s(name) values($1) on conflict do nothing`, table), name)
	return err
}

type sqlFile struct {
	base string
	path string
}

func collectSQL(dir, suffix string) ([]sqlFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []sqlFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		files = append(files, sqlFile{base: entry.Name(), path: filepath.Join(dir, entry.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].base < files[j].base })
	return files, nil
}
