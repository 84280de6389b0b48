package migrations

import (
	"testing"

	"gorm.io/gorm"
)

func TestAddMigrationValidatesName(t *testing.T) {
	cases := []struct {
		name    string
		migName string
		ok      bool
	}{
		{"dated name", "2025_06_01_000000_create_engine_tables", true},
		{"missing timestamp", "create_engine_tables", false},
		{"short date", "2025_6_1_0_create_engine_tables", false},
		{"uppercase description", "2025_06_01_000000_CreateTables", false},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &Migrator{}
			err := m.AddMigration(MigrationDefinition{
				Name: tc.migName,
				Up:   func(*gorm.DB) error { return nil },
			})
			if tc.ok && err != nil {
				t.Errorf("AddMigration(%q) = %v, want nil", tc.migName, err)
			}
			if !tc.ok && err == nil {
				t.Errorf("AddMigration(%q) accepted an invalid name", tc.migName)
			}
		})
	}
}

func TestAddMigrationRequiresUpStep(t *testing.T) {
	m := &Migrator{}
	err := m.AddMigration(MigrationDefinition{Name: "2025_06_01_000000_no_up"})
	if err == nil {
		t.Fatal("AddMigration accepted a definition without an up step")
	}
}
