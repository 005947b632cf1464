package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rongwang/lease-contract-server/internal/models"
)

const uniqueViolation = "23505"

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// contractRow is the table shape; the aggregate itself lives in the document column
type contractRow struct {
	ContractID string    `db:"contract_id"`
	Document   []byte    `db:"document"`
	Version    int64     `db:"version"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (row contractRow) decode() (*models.Contract, error) {
	var c models.Contract
	if err := json.Unmarshal(row.Document, &c); err != nil {
		return nil, fmt.Errorf("decoding contract %s: %w", row.ContractID, err)
	}
	c.Version = row.Version
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// Contract store methods
func (r *PostgresRepository) GetContract(ctx context.Context, contractID string) (*models.Contract, error) {
	query := `SELECT contract_id, document, version, created_at, updated_at FROM contracts WHERE contract_id = $1`

	var row contractRow
	err := r.db.GetContext(ctx, &row, query, contractID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return row.decode()
}

func (r *PostgresRepository) CreateContract(ctx context.Context, contract *models.Contract) error {
	contract.Version = 1
	doc, err := json.Marshal(contract)
	if err != nil {
		return fmt.Errorf("encoding contract: %w", err)
	}

	query := `
		INSERT INTO contracts (contract_id, property_id, landlord_id, tenant_id, status, digital_hash,
		                       document, version, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		contract.ContractID, contract.PropertyID, contract.LandlordID, contract.TenantID,
		string(contract.ContractStatus.Current), contract.DigitalHash, doc, contract.Version,
		contract.ExpiresAt, contract.CreatedAt, contract.UpdatedAt)
	if err != nil {
		contract.Version = 0
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}

	return nil
}

func (r *PostgresRepository) SaveContract(ctx context.Context, contract *models.Contract) error {
	expected := contract.Version
	contract.Version = expected + 1
	doc, err := json.Marshal(contract)
	if err != nil {
		contract.Version = expected
		return fmt.Errorf("encoding contract: %w", err)
	}

	query := `
		UPDATE contracts
		SET tenant_id = $1, status = $2, digital_hash = $3, document = $4, version = $5, updated_at = $6
		WHERE contract_id = $7 AND version = $8
	`

	res, err := r.db.ExecContext(ctx, query,
		contract.TenantID, string(contract.ContractStatus.Current), contract.DigitalHash, doc,
		contract.Version, contract.UpdatedAt, contract.ContractID, expected)
	if err != nil {
		contract.Version = expected
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		contract.Version = expected
		return err
	}
	if affected == 1 {
		return nil
	}

	contract.Version = expected
	var exists bool
	err = r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM contracts WHERE contract_id = $1)`, contract.ContractID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (r *PostgresRepository) DeleteContract(ctx context.Context, contractID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contracts WHERE contract_id = $1`, contractID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListContractsByParty(ctx context.Context, userID string) ([]*models.Contract, error) {
	query := `
		SELECT contract_id, document, version, created_at, updated_at FROM contracts
		WHERE landlord_id = $1 OR tenant_id = $1
		ORDER BY created_at DESC
	`

	var rows []contractRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}

	contracts := make([]*models.Contract, 0, len(rows))
	for _, row := range rows {
		c, err := row.decode()
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, nil
}

// User directory methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	// Generate a new UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.CreatedAt, user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *PostgresRepository) UserExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID)
	return exists, err
}

func (r *PostgresRepository) GetDisplayInfo(ctx context.Context, userID string) (*models.DisplayInfo, error) {
	query := `SELECT id, name, email FROM users WHERE id = $1`

	var info models.DisplayInfo
	err := r.db.QueryRowxContext(ctx, query, userID).Scan(&info.ID, &info.Name, &info.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &info, nil
}

// Property methods
func (r *PostgresRepository) UpsertProperty(ctx context.Context, property *models.Property) error {
	if property.ID == "" {
		property.ID = uuid.New().String()
	}
	if property.Status == "" {
		property.Status = models.PropertyAvailable
	}
	property.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO properties (id, owner_id, address, status, rented_to, rented_at, updated_at)
		VALUES (:id, :owner_id, :address, :status, :rented_to, :rented_at, :updated_at)
		ON CONFLICT (id) DO UPDATE
		SET owner_id = EXCLUDED.owner_id, address = EXCLUDED.address, status = EXCLUDED.status,
		    rented_to = EXCLUDED.rented_to, rented_at = EXCLUDED.rented_at, updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.NamedExecContext(ctx, query, property)
	return err
}

func (r *PostgresRepository) GetProperty(ctx context.Context, propertyID string) (*models.Property, error) {
	var property models.Property
	err := r.db.GetContext(ctx, &property, `SELECT * FROM properties WHERE id = $1`, propertyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &property, nil
}

func (r *PostgresRepository) MarkRented(ctx context.Context, propertyID, tenantID string, at time.Time) error {
	query := `
		UPDATE properties SET status = $1, rented_to = $2, rented_at = $3, updated_at = $3
		WHERE id = $4
	`

	res, err := r.db.ExecContext(ctx, query, models.PropertyRented, tenantID, at, propertyID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Chat methods
func (r *PostgresRepository) PostSystemMessage(
	ctx context.Context,
	propertyID string,
	participantIDs []string,
	text string,
) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()

	// Find or create the conversation for this property and participant set
	var conversationID string
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO conversations (id, property_id, participant_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (property_id, participant_key) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING id`,
		uuid.New().String(), propertyID, participantKey(participantIDs), now).Scan(&conversationID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_messages (id, conversation_id, sender_id, body, is_system, created_at)
		VALUES ($1, $2, NULL, $3, TRUE, $4)`,
		uuid.New().String(), conversationID, text, now)
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// Signature vault methods
func (r *PostgresRepository) GetStoredSignature(ctx context.Context, userID string) (string, bool, error) {
	var image string
	err := r.db.GetContext(ctx, &image, `SELECT signature_image FROM stored_signatures WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return image, image != "", nil
}

func (r *PostgresRepository) StoreSignature(ctx context.Context, userID, signatureImage string) error {
	query := `
		INSERT INTO stored_signatures (user_id, signature_image, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET signature_image = EXCLUDED.signature_image, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, userID, signatureImage, time.Now().UTC())
	return err
}
