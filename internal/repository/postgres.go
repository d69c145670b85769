package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/neuraestate/property-matcher/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// PostgresRepository handles database operations
type PostgresRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute) // Shorter lifetime to avoid stale connections
	db.SetConnMaxIdleTime(2 * time.Minute) // Close idle connections sooner

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Migrate creates the tables used by the event log and the listing index
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// RecordLead stores a lead, assigning its timestamp
func (r *PostgresRepository) RecordLead(ctx context.Context, lead model.Lead) (model.Lead, error) {
	lead.Timestamp = r.stamp(lead.Timestamp)
	query := `
		INSERT INTO leads (source, name, email, phone, notes, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		lead.Source, lead.Name, lead.Email, lead.Phone, lead.Notes, nullable(lead.SessionID), *lead.Timestamp)
	if err != nil {
		return lead, fmt.Errorf("failed to record lead: %w", err)
	}
	return lead, nil
}

// RecordFeedback stores a feedback note, assigning its timestamp
func (r *PostgresRepository) RecordFeedback(ctx context.Context, fb model.Feedback) (model.Feedback, error) {
	fb.Timestamp = r.stamp(fb.Timestamp)
	query := `INSERT INTO feedback (message, session_id, created_at) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, fb.Message, nullable(fb.SessionID), *fb.Timestamp); err != nil {
		return fb, fmt.Errorf("failed to record feedback: %w", err)
	}
	return fb, nil
}

// RecordTurn stores a chat turn audit record
func (r *PostgresRepository) RecordTurn(ctx context.Context, turn model.TurnRecord) error {
	turn.Timestamp = r.stamp(turn.Timestamp)
	prefs, err := json.Marshal(turn.Preferences)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	query := `
		INSERT INTO chat_turns (session_id, user_message, reply, preferences, listing_count, next_action, took_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, query,
		turn.SessionID, turn.UserMessage, turn.Reply, prefs, turn.ListingCount, string(turn.NextAction), turn.TookMs, *turn.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record turn: %w", err)
	}
	return nil
}

// CardEmbedding pairs a card with its embedding; a nil embedding leaves the
// stored vector untouched.
type CardEmbedding struct {
	Card      model.PropertyCard
	Embedding []float32
}

// UpsertCards indexes cards that carry an id. It returns the number stored
// and per-card errors.
func (r *PostgresRepository) UpsertCards(ctx context.Context, items []CardEmbedding) (int, []string) {
	success := 0
	var errs []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to start transaction: %v", err))
		return success, errs
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO property_cards (id, card, embedding, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET card = EXCLUDED.card,
		    embedding = COALESCE(EXCLUDED.embedding, property_cards.embedding),
		    updated_at = NOW()
	`)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to prepare statement: %v", err))
		return success, errs
	}
	defer stmt.Close()

	for _, item := range items {
		if item.Card.ID == nil {
			continue
		}
		data, err := json.Marshal(item.Card)
		if err != nil {
			errs = append(errs, fmt.Sprintf("card %s: %v", *item.Card.ID, err))
			continue
		}
		var vec any
		if len(item.Embedding) > 0 {
			vec = pgvector.NewVector(item.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, *item.Card.ID, data, vec); err != nil {
			errs = append(errs, fmt.Sprintf("card %s: %v", *item.Card.ID, err))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		errs = append(errs, fmt.Sprintf("failed to commit transaction: %v", err))
		return 0, errs
	}

	return success, errs
}

type cardRow struct {
	ID   string `db:"id"`
	Card []byte `db:"card"`
}

// GetCard retrieves an indexed card, or nil when unknown
func (r *PostgresRepository) GetCard(ctx context.Context, id string) (*model.PropertyCard, error) {
	var row cardRow
	err := r.db.GetContext(ctx, &row, `SELECT id, card FROM property_cards WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	card, err := decodeCard(row)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// SimilarCards returns the cards nearest to the anchor card's embedding
func (r *PostgresRepository) SimilarCards(ctx context.Context, id string, limit int) ([]model.PropertyCard, error) {
	query := `
		SELECT c.id, c.card
		FROM property_cards c, property_cards anchor
		WHERE anchor.id = $1
		  AND anchor.embedding IS NOT NULL
		  AND c.id <> anchor.id
		  AND c.embedding IS NOT NULL
		ORDER BY c.embedding <=> anchor.embedding
		LIMIT $2
	`
	var rows []cardRow
	if err := r.db.SelectContext(ctx, &rows, query, id, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch similar cards: %w", err)
	}

	cards := make([]model.PropertyCard, 0, len(rows))
	for _, row := range rows {
		card, err := decodeCard(row)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func decodeCard(row cardRow) (model.PropertyCard, error) {
	var card model.PropertyCard
	if err := json.Unmarshal(row.Card, &card); err != nil {
		return card, fmt.Errorf("failed to decode card %s: %w", row.ID, err)
	}
	if card.Amenities == nil {
		card.Amenities = []string{}
	}
	return card, nil
}

func (r *PostgresRepository) stamp(ts *time.Time) *time.Time {
	if ts != nil {
		return ts
	}
	now := r.now()
	return &now
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
