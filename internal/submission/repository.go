package submission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/domain"
	_ "github.com/lib/pq"
)

var ErrNoPendingSubmission = errors.New("no pending submission for user")

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type Repository struct {
	db *sql.DB
}

// RepoInterface is the submission-attempt store. The pending attempt is what
// keeps an idempotency key stable across retries of the same cart state.
type RepoInterface interface {
	Close() error
	RunMigrations(*Credentials) error
	CreatePending(ctx context.Context, sub *domain.Submission) error
	GetPendingByUser(ctx context.Context, userID string) (*domain.Submission, error)
	MarkCompleted(ctx context.Context, id, orderID string) error
	RecordFailure(ctx context.Context, id, message string) error
	SupersedePending(ctx context.Context, id string) error
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) CreatePending(ctx context.Context, sub *domain.Submission) error {
	query := `INSERT INTO submissions (id, user_id, customer_id, idempotency_key, cart_fingerprint, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		sub.ID,
		sub.UserID,
		sub.CustomerID,
		sub.IdempotencyKey,
		sub.CartFingerprint,
		domain.SubmissionStatusPending.String(),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// GetPendingByUser returns the user's single pending attempt, if any. The
// partial unique index on (user_id) WHERE status = PENDING guarantees there is
// at most one.
func (r *Repository) GetPendingByUser(ctx context.Context, userID string) (*domain.Submission, error) {
	query := `SELECT id, user_id, customer_id, idempotency_key, cart_fingerprint, status, order_id, last_error, created_at, updated_at
	          FROM submissions
	          WHERE user_id = $1 AND status = $2`

	var sub domain.Submission
	var status string
	err := r.db.QueryRowContext(ctx, query, userID, domain.SubmissionStatusPending.String()).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.CustomerID,
		&sub.IdempotencyKey,
		&sub.CartFingerprint,
		&status,
		&sub.OrderID,
		&sub.LastError,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoPendingSubmission
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending submission: %w", err)
	}

	sub.Status = domain.SubmissionStatus(status)
	return &sub, nil
}

func (r *Repository) MarkCompleted(ctx context.Context, id, orderID string) error {
	query := `UPDATE submissions SET status = $1, order_id = $2, updated_at = $3 WHERE id = $4`

	_, err := r.db.ExecContext(ctx, query, domain.SubmissionStatusCompleted.String(), orderID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark submission completed: %w", err)
	}
	return nil
}

// RecordFailure stores the latest error but keeps the attempt pending so a
// retry reuses the same idempotency key.
func (r *Repository) RecordFailure(ctx context.Context, id, message string) error {
	query := `UPDATE submissions SET last_error = $1, updated_at = $2 WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, message, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to record submission failure: %w", err)
	}
	return nil
}

// SupersedePending retires an attempt whose cart state no longer exists. Its
// key is never used for a different cart.
func (r *Repository) SupersedePending(ctx context.Context, id string) error {
	query := `UPDATE submissions SET status = $1, updated_at = $2 WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, domain.SubmissionStatusSuperseded.String(), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to supersede submission: %w", err)
	}
	return nil
}
