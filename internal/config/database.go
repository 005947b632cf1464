package config

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog"
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config, log zerolog.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := CreateTables(db, log); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(64) PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS properties (
		id VARCHAR(64) PRIMARY KEY,
		owner_id VARCHAR(64) NOT NULL,
		address TEXT NOT NULL,
		status VARCHAR(20) NOT NULL,
		rented_to VARCHAR(64),
		rented_at TIMESTAMP,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS contracts (
		contract_id VARCHAR(128) PRIMARY KEY,
		property_id VARCHAR(64) NOT NULL,
		landlord_id VARCHAR(64) NOT NULL,
		tenant_id VARCHAR(64) NOT NULL,
		status VARCHAR(40) NOT NULL,
		digital_hash VARCHAR(80) NOT NULL,
		document JSONB NOT NULL,
		version BIGINT NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		CHECK (landlord_id <> tenant_id)
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id VARCHAR(36) PRIMARY KEY,
		property_id VARCHAR(64) NOT NULL,
		participant_key TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (property_id, participant_key)
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id VARCHAR(36) PRIMARY KEY,
		conversation_id VARCHAR(36) NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		sender_id VARCHAR(64),
		body TEXT NOT NULL,
		is_system BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stored_signatures (
		user_id VARCHAR(64) PRIMARY KEY,
		signature_image TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
}

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_contracts_landlord_id ON contracts(landlord_id)",
	"CREATE INDEX IF NOT EXISTS idx_contracts_tenant_id ON contracts(tenant_id)",
	"CREATE INDEX IF NOT EXISTS idx_contracts_property_id ON contracts(property_id)",
	"CREATE INDEX IF NOT EXISTS idx_chat_messages_conversation ON chat_messages(conversation_id, created_at)",
}

// CreateTables creates the necessary tables in the database
func CreateTables(db *sqlx.DB, log zerolog.Logger) error {
	for _, stmt := range tables {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// Indexes are not critical
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			log.Warn().Err(err).Str("statement", idx).Msg("Failed to create index")
		}
	}

	return nil
}
