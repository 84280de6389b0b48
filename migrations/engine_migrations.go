package migrations

import "gorm.io/gorm"

func GetEngineMigrations() []MigrationDefinition {
	return []MigrationDefinition{
		{
			Name: "2025_06_01_000000_create_engine_tables",
			Up: func(db *gorm.DB) error {
				// Create tournaments table
				if err := db.Exec(`
					CREATE TABLE IF NOT EXISTS tournaments (
						id BIGSERIAL PRIMARY KEY,
						name VARCHAR(255) NOT NULL,
						slug VARCHAR(255) UNIQUE NOT NULL,
						game_module_id VARCHAR(64) NOT NULL,
						format VARCHAR(20) NOT NULL,
						status VARCHAR(20) NOT NULL DEFAULT 'draft',
						description TEXT,
						frozen BOOLEAN DEFAULT FALSE,
						freeze_reason TEXT,
						min_participants INT DEFAULT 2,
						max_participants INT DEFAULT 0,
						game_settings JSONB,
						stage_plan JSONB,
						current_stage INT DEFAULT 0,
						auto_confirm_mins INT DEFAULT 15,
						dispute_deadline_mins INT DEFAULT 60,
						void_policy VARCHAR(32) NOT NULL DEFAULT 'replay',
						prize_table JSONB,
						registration_closes_at TIMESTAMP NULL,
						check_in_closes_at TIMESTAMP NULL,
						starts_at TIMESTAMP NULL,
						created_at TIMESTAMP DEFAULT NOW(),
						updated_at TIMESTAMP DEFAULT NOW(),
						deleted_at TIMESTAMP NULL
					);
					CREATE INDEX IF NOT EXISTS idx_tournaments_deleted_at ON tournaments(deleted_at);
					CREATE INDEX IF NOT EXISTS idx_tournaments_status ON tournaments(status);
					CREATE INDEX IF NOT EXISTS idx_tournaments_format ON tournaments(format);
				`).Error; err != nil {
					return err
				}

				// Create registrations table
				if err := db.Exec(`
					CREATE TABLE IF NOT EXISTS registrations (
						id BIGSERIAL PRIMARY KEY,
						tournament_id BIGINT NOT NULL,
						competitor_ref VARCHAR(128) NOT NULL,
						display_name VARCHAR(255) NOT NULL,
						status VARCHAR(20) NOT NULL DEFAULT 'pending',
						seed INT DEFAULT 0,
						roster_snapshot JSONB,
						checked_in_at TIMESTAMP NULL,
						created_at TIMESTAMP DEFAULT NOW(),
						updated_at TIMESTAMP DEFAULT NOW(),
						deleted_at TIMESTAMP NULL,
						FOREIGN KEY (tournament_id) REFERENCES tournaments(id) ON DELETE CASCADE
					);
					CREATE UNIQUE INDEX IF NOT EXISTS idx_tournament_competitor ON registrations(tournament_id, competitor_ref);
					CREATE INDEX IF NOT EXISTS idx_registrations_deleted_at ON registrations(deleted_at);
					CREATE INDEX IF NOT EXISTS idx_registrations_status ON registrations(status);
				`).Error; err != nil {
					return err
				}

				// Create brackets table
				if err := db.Exec(`
					CREATE TABLE IF NOT EXISTS brackets (
						id BIGSERIAL PRIMARY KEY,
						tournament_id BIGINT NOT NULL,
						stage INT NOT NULL DEFAULT 1,
						format VARCHAR(20) NOT NULL,
						rounds INT NOT NULL,
						current_round INT DEFAULT 0,
						grand_final_match_id BIGINT NULL,
						created_at TIMESTAMP DEFAULT NOW(),
						updated_at TIMESTAMP DEFAULT NOW(),
						deleted_at TIMESTAMP NULL,
						FOREIGN KEY (tournament_id) REFERENCES tournaments(id) ON DELETE CASCADE
					);
					CREATE INDEX IF NOT EXISTS idx_brackets_deleted_at ON brackets(deleted_at);
					CREATE INDEX IF NOT EXISTS idx_brackets_tournament_id ON brackets(tournament_id);
				`).Error; err != nil {
					return err
				}

				// Create matches table
				if err := db.Exec(`
					CREATE TABLE IF NOT EXISTS matches (
						id BIGSERIAL PRIMARY KEY,
						tournament_id BIGINT NOT NULL,
						bracket_id BIGINT NOT NULL,
						round INT NOT NULL,
						position INT NOT NULL,
						section VARCHAR(20),
						status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
						version BIGINT NOT NULL DEFAULT 1,
						home_registration_id BIGINT NULL,
						away_registration_id BIGINT NULL,
						home_bye BOOLEAN DEFAULT FALSE,
						away_bye BOOLEAN DEFAULT FALSE,
						winner_to_id BIGINT NULL,
						winner_to_slot INT DEFAULT 0,
						loser_to_id BIGINT NULL,
						loser_to_slot INT DEFAULT 0,
						winner_registration_id BIGINT NULL,
						submitted_payload JSONB,
						submitted_by VARCHAR(128),
						result_score VARCHAR(64),
						result_metadata JSONB,
						void BOOLEAN DEFAULT FALSE,
						ready_at TIMESTAMP NULL,
						started_at TIMESTAMP NULL,
						submitted_at TIMESTAMP NULL,
						completed_at TIMESTAMP NULL,
						disputed_at TIMESTAMP NULL,
						created_at TIMESTAMP DEFAULT NOW(),
						updated_at TIMESTAMP DEFAULT NOW(),
						deleted_at TIMESTAMP NULL,
						FOREIGN KEY (tournament_id) REFERENCES tournaments(id) ON DELETE CASCADE,
						FOREIGN KEY (bracket_id) REFERENCES brackets(id) ON DELETE CASCADE,
						FOREIGN KEY (home_registration_id) REFERENCES registrations(id),
						FOREIGN KEY (away_registration_id) REFERENCES registrations(id),
						FOREIGN KEY (winner_registration_id) REFERENCES registrations(id)
					);
					CREATE INDEX IF NOT EXISTS idx_matches_deleted_at ON matches(deleted_at);
					CREATE INDEX IF NOT EXISTS idx_matches_tournament_id ON matches(tournament_id);
					CREATE INDEX IF NOT EXISTS idx_matches_bracket_id ON matches(bracket_id);
					CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status);
					CREATE INDEX IF NOT EXISTS idx_matches_home_registration_id ON matches(home_registration_id);
					CREATE INDEX IF NOT EXISTS idx_matches_away_registration_id ON matches(away_registration_id);
					CREATE INDEX IF NOT EXISTS idx_matches_winner_registration_id ON matches(winner_registration_id);
				`).Error; err != nil {
					return err
				}

				// Create disputes and dispute_evidence tables
				if err := db.Exec(`
					CREATE TABLE IF NOT EXISTS disputes (
						id BIGSERIAL PRIMARY KEY,
						tournament_id BIGINT NOT NULL,
						match_id BIGINT NOT NULL,
						raised_by VARCHAR(128) NOT NULL,
						reason TEXT NOT NULL,
						status VARCHAR(20) NOT NULL DEFAULT 'open',
						deadline_at TIMESTAMP NOT NULL,
						resolution VARCHAR(20),
						resolution_note TEXT,
						resolved_by VARCHAR(128),
						resolved_at TIMESTAMP NULL,
						created_at TIMESTAMP DEFAULT NOW(),
						updated_at TIMESTAMP DEFAULT NOW(),
						deleted_at TIMESTAMP NULL,
						FOREIGN KEY (tournament_id) REFERENCES tournaments(id) ON DELETE CASCADE,
						FOREIGN KEY (match_id) REFERENCES matches(id) ON DELETE CASCADE
					);
					CREATE INDEX IF NOT EXISTS idx_disputes_deleted_at ON disputes(deleted_at);
					CREATE INDEX IF NOT EXISTS idx_disputes_tournament_id ON disputes(tournament_id);
					CREATE INDEX IF NOT EXISTS idx_disputes_match_id ON disputes(match_id);
					CREATE INDEX IF NOT EXISTS idx_disputes_status ON disputes(status);

					CREATE TABLE IF NOT EXISTS dispute_evidence (
						id BIGSERIAL PRIMARY KEY,
						dispute_id BIGINT NOT NULL,
						submitted_by VARCHAR(128) NOT NULL,
						note TEXT,
						url VARCHAR(512),
						created_at TIMESTAMP DEFAULT NOW(),
						FOREIGN KEY (dispute_id) REFERENCES disputes(id) ON DELETE CASCADE
					);
					CREATE INDEX IF NOT EXISTS idx_dispute_evidence_dispute_id ON dispute_evidence(dispute_id);
				`).Error; err != nil {
					return err
				}

				// Create settlement_records table
				if err := db.Exec(`
					CREATE TABLE IF NOT EXISTS settlement_records (
						id BIGSERIAL PRIMARY KEY,
						tournament_id BIGINT NOT NULL,
						registration_id BIGINT NOT NULL,
						category VARCHAR(20) NOT NULL,
						idempotency_key VARCHAR(64) UNIQUE NOT NULL,
						payload JSONB NOT NULL,
						status VARCHAR(20) NOT NULL DEFAULT 'pending',
						attempts INT DEFAULT 0,
						last_error TEXT,
						external_ref VARCHAR(128),
						delivered_at TIMESTAMP NULL,
						created_at TIMESTAMP DEFAULT NOW(),
						updated_at TIMESTAMP DEFAULT NOW(),
						deleted_at TIMESTAMP NULL,
						FOREIGN KEY (tournament_id) REFERENCES tournaments(id) ON DELETE CASCADE,
						FOREIGN KEY (registration_id) REFERENCES registrations(id)
					);
					CREATE INDEX IF NOT EXISTS idx_settlement_records_deleted_at ON settlement_records(deleted_at);
					CREATE INDEX IF NOT EXISTS idx_settlement_records_tournament_id ON settlement_records(tournament_id);
					CREATE INDEX IF NOT EXISTS idx_settlement_records_status ON settlement_records(status);
				`).Error; err != nil {
					return err
				}

				return nil
			},
			Down: func(db *gorm.DB) error {
				// Drop tables in reverse order (because of foreign keys)
				if err := db.Exec("DROP TABLE IF EXISTS settlement_records CASCADE").Error; err != nil {
					return err
				}
				if err := db.Exec("DROP TABLE IF EXISTS dispute_evidence CASCADE").Error; err != nil {
					return err
				}
				if err := db.Exec("DROP TABLE IF EXISTS disputes CASCADE").Error; err != nil {
					return err
				}
				if err := db.Exec("DROP TABLE IF EXISTS matches CASCADE").Error; err != nil {
					return err
				}
				if err := db.Exec("DROP TABLE IF EXISTS brackets CASCADE").Error; err != nil {
					return err
				}
				if err := db.Exec("DROP TABLE IF EXISTS registrations CASCADE").Error; err != nil {
					return err
				}
				if err := db.Exec("DROP TABLE IF EXISTS tournaments CASCADE").Error; err != nil {
					return err
				}
				return nil
			},
		},
	}
}
