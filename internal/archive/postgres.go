package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"voicebrief/pkg/logger"
	"voicebrief/pkg/model"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens the archive database and applies pending
// migrations from the migrations directory.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Archive database ready")

	return &PostgresStore{pool: pool}, nil
}

func runMigrations(databaseURL string) error {
	migrationsPath, err := filepath.Abs("migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	connConfig, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	db := stdlib.OpenDB(*connConfig)
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", filepath.ToSlash(migrationsPath)),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply")
	} else {
		logger.Info("Migrations applied successfully")
	}

	return nil
}

// SaveRun inserts a completed run. A rerun of the same message (restart
// with an empty in-memory ledger) upserts rather than erroring.
func (s *PostgresStore) SaveRun(ctx context.Context, rec *model.RunRecord) error {
	query := `
		INSERT INTO voice_runs (
			id, message_key, chat_id, message_id, transcript,
			summary, duration_seconds, audio_key, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (message_key) DO UPDATE
		SET transcript = EXCLUDED.transcript,
		    summary = EXCLUDED.summary,
		    audio_key = EXCLUDED.audio_key`

	_, err := s.pool.Exec(ctx, query,
		rec.ID,
		rec.MessageKey,
		rec.ChatID,
		rec.MessageID,
		rec.Transcript,
		rec.Summary,
		rec.Duration,
		rec.AudioKey,
		rec.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// GetRunByMessageKey retrieves an archived run by its message key.
func (s *PostgresStore) GetRunByMessageKey(ctx context.Context, messageKey string) (*model.RunRecord, error) {
	query := `
		SELECT id, message_key, chat_id, message_id, transcript,
		       summary, duration_seconds, audio_key, created_at
		FROM voice_runs
		WHERE message_key = $1`

	var rec model.RunRecord
	row := s.pool.QueryRow(ctx, query, messageKey)

	err := row.Scan(
		&rec.ID,
		&rec.MessageKey,
		&rec.ChatID,
		&rec.MessageID,
		&rec.Transcript,
		&rec.Summary,
		&rec.Duration,
		&rec.AudioKey,
		&rec.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("run not found")
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &rec, nil
}

// ListRecentRuns returns the newest archived runs for a chat.
func (s *PostgresStore) ListRecentRuns(ctx context.Context, chatID int64, limit int) ([]*model.RunRecord, error) {
	query := `
		SELECT id, message_key, chat_id, message_id, transcript,
		       summary, duration_seconds, audio_key, created_at
		FROM voice_runs
		WHERE chat_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.RunRecord
	for rows.Next() {
		var rec model.RunRecord
		err := rows.Scan(
			&rec.ID,
			&rec.MessageKey,
			&rec.ChatID,
			&rec.MessageID,
			&rec.Transcript,
			&rec.Summary,
			&rec.Duration,
			&rec.AudioKey,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
