// Package migrations runs the engine's schema migrations. Applied
// migrations are recorded in schema_migrations with a batch number;
// a rollback undoes one batch at a time, newest first.
package migrations

import (
	"fmt"
	"log"
	"regexp"
	"time"

	"gorm.io/gorm"
)

// Migration is one applied-migration record.
type Migration struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"unique;not null"`
	Batch     int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Migration) TableName() string {
	return "schema_migrations"
}

type MigrationFunc func(*gorm.DB) error

// MigrationDefinition pairs a migration name with its Up and Down
// steps. Down may be nil for migrations that cannot be undone.
type MigrationDefinition struct {
	Name string
	Up   MigrationFunc
	Down MigrationFunc
}

// Migration names carry their date so lexical order is apply order.
var namePattern = regexp.MustCompile(`^\d{4}_\d{2}_\d{2}_\d{6}_[a-z0-9_]+$`)

// Migrator applies registered migrations in registration order.
type Migrator struct {
	db      *gorm.DB
	defined []MigrationDefinition
}

func NewMigrator(db *gorm.DB) *Migrator {
	if err := db.AutoMigrate(&Migration{}); err != nil {
		log.Printf("migrations: preparing schema_migrations table: %v", err)
	}
	return &Migrator{db: db}
}

// AddMigration registers a migration. The name must follow the
// YYYY_MM_DD_HHMMSS_description convention.
func (m *Migrator) AddMigration(def MigrationDefinition) error {
	if !namePattern.MatchString(def.Name) {
		return fmt.Errorf("migration name %q does not match YYYY_MM_DD_HHMMSS_description", def.Name)
	}
	if def.Up == nil {
		return fmt.Errorf("migration %q has no up step", def.Name)
	}
	m.defined = append(m.defined, def)
	return nil
}

// Migrate applies every registered migration that has not run yet.
// All migrations applied by one call share a batch number.
func (m *Migrator) Migrate() error {
	applied, err := m.appliedNames()
	if err != nil {
		return err
	}
	batch, err := m.latestBatch()
	if err != nil {
		return err
	}
	batch++

	ran := 0
	for _, def := range m.defined {
		if applied[def.Name] {
			continue
		}
		log.Printf("migrations: applying %s", def.Name)
		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := def.Up(tx); err != nil {
				return err
			}
			return tx.Create(&Migration{Name: def.Name, Batch: batch}).Error
		})
		if err != nil {
			return fmt.Errorf("applying %s: %w", def.Name, err)
		}
		ran++
	}

	if ran == 0 {
		log.Println("migrations: nothing to apply")
	} else {
		log.Printf("migrations: applied %d migration(s) in batch %d", ran, batch)
	}
	return nil
}

// Rollback undoes the newest batches, one batch per step. Records
// within a batch are rolled back newest first.
func (m *Migrator) Rollback(steps int) error {
	if steps <= 0 {
		steps = 1
	}

	for step := 0; step < steps; step++ {
		batch, err := m.latestBatch()
		if err != nil {
			return err
		}
		if batch == 0 {
			log.Println("migrations: nothing to roll back")
			return nil
		}

		var records []Migration
		if err := m.db.Where("batch = ?", batch).Order("id DESC").Find(&records).Error; err != nil {
			return fmt.Errorf("loading batch %d: %w", batch, err)
		}

		for _, record := range records {
			def, ok := m.lookup(record.Name)
			if !ok {
				return fmt.Errorf("no definition registered for applied migration %s", record.Name)
			}
			if def.Down == nil {
				return fmt.Errorf("migration %s has no down step", record.Name)
			}
			log.Printf("migrations: rolling back %s", record.Name)
			err := m.db.Transaction(func(tx *gorm.DB) error {
				if err := def.Down(tx); err != nil {
					return err
				}
				return tx.Delete(&Migration{}, record.ID).Error
			})
			if err != nil {
				return fmt.Errorf("rolling back %s: %w", record.Name, err)
			}
		}
		log.Printf("migrations: rolled back batch %d (%d migration(s))", batch, len(records))
	}
	return nil
}

func (m *Migrator) appliedNames() (map[string]bool, error) {
	var names []string
	if err := m.db.Model(&Migration{}).Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("loading applied migrations: %w", err)
	}
	applied := make(map[string]bool, len(names))
	for _, name := range names {
		applied[name] = true
	}
	return applied, nil
}

func (m *Migrator) latestBatch() (int, error) {
	var batch *int
	err := m.db.Model(&Migration{}).Select("MAX(batch)").Scan(&batch).Error
	if err != nil {
		return 0, fmt.Errorf("reading latest batch: %w", err)
	}
	if batch == nil {
		return 0, nil
	}
	return *batch, nil
}

func (m *Migrator) lookup(name string) (MigrationDefinition, bool) {
	for _, def := range m.defined {
		if def.Name == name {
			return def, true
		}
	}
	return MigrationDefinition{}, false
}
