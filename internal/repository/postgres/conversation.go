package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/duochat/duochat-server/internal/model"
)

var _ model.ConversationStore = (*ConversationRepository)(nil)

type ConversationRepository struct {
	db *Connection
}

func NewConversationRepository(db *Connection) *ConversationRepository {
	return &ConversationRepository{
		db: db,
	}
}

// FindOrCreate inserts the candidate conversation; on conflict with the
// pair's unique constraint the existing row is returned instead. Insert
// and lookup run as one statement, so concurrent calls for the same pair
// cannot both create a row.
func (r *ConversationRepository) FindOrCreate(ctx context.Context, candidate model.Conversation) (model.Conversation, error) {
	query := `
		WITH ins AS (
			INSERT INTO conversations (id, participant_lo, participant_hi)
			VALUES ($1, $2, $3)
			ON CONFLICT (participant_lo, participant_hi) DO NOTHING
			RETURNING id, participant_lo, participant_hi, created_at, updated_at
		)
		SELECT id, participant_lo, participant_hi, created_at, updated_at
		FROM ins
		UNION ALL
		SELECT c.id, c.participant_lo, c.participant_hi, c.created_at, c.updated_at
		FROM conversations c
		WHERE NOT EXISTS (SELECT 1 FROM ins)
		  AND c.participant_lo = $2 AND c.participant_hi = $3
		LIMIT 1`

	conv, err := r.scanConversationRow(r.db.QueryRow(ctx, query,
		candidate.ID, candidate.Participants.Lo, candidate.Participants.Hi,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		// A concurrent insert committed after our statement's snapshot was
		// taken: the insert conflicted but the winning row was not yet
		// visible to the select. Re-fetch it.
		return r.getByPair(ctx, candidate.Participants)
	}
	if err != nil {
		return model.Conversation{}, fmt.Errorf("failed to find or create conversation: %w", err)
	}

	conv.Messages, err = r.messagesFor(ctx, conv.ID)
	if err != nil {
		return model.Conversation{}, err
	}

	return conv, nil
}

// AppendMessage locks the conversation row, inserts the message, and bumps
// updated_at, all in one transaction. The row lock serializes concurrent
// appends to the same conversation, so sequence numbers and timestamps are
// monotonic per conversation.
func (r *ConversationRepository) AppendMessage(ctx context.Context, msg model.Message) (model.Message, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to begin append transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// clock_timestamp() rather than now(): the lock is taken here, and the
	// wall-clock read must happen after it for appends to carry
	// non-decreasing timestamps.
	const bump = `
		UPDATE conversations SET updated_at = clock_timestamp()
		WHERE id = $1
		RETURNING updated_at`

	var updatedAt time.Time
	if err := tx.QueryRow(ctx, bump, msg.ConversationID).Scan(&updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Message{}, model.ErrNotFound
		}
		return model.Message{}, fmt.Errorf("failed to bump conversation: %w", err)
	}

	const insert = `
		INSERT INTO messages (id, conversation_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, conversation_id, sender_id, body, seq, created_at`

	var saved model.Message
	err = tx.QueryRow(ctx, insert,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Body, updatedAt,
	).Scan(
		&saved.ID, &saved.ConversationID, &saved.SenderID, &saved.Body,
		&saved.Seq, &saved.CreatedAt,
	)
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to insert message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Message{}, fmt.Errorf("failed to commit append: %w", err)
	}

	return saved, nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Conversation, error) {
	query := `
		SELECT id, participant_lo, participant_hi, created_at, updated_at
		FROM conversations WHERE id = $1`

	conv, err := r.scanConversationRow(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Conversation{}, model.ErrNotFound
		}
		return model.Conversation{}, fmt.Errorf("failed to get conversation by id: %w", err)
	}

	conv.Messages, err = r.messagesFor(ctx, conv.ID)
	if err != nil {
		return model.Conversation{}, err
	}

	return conv, nil
}

func (r *ConversationRepository) GetByParticipant(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	query := `
		SELECT id, participant_lo, participant_hi, created_at, updated_at
		FROM conversations
		WHERE participant_lo = $1 OR participant_hi = $1
		ORDER BY updated_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversations by participant: %w", err)
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		conv, err := r.scanConversationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read conversation rows: %w", err)
	}

	if err := r.attachMessages(ctx, convs); err != nil {
		return nil, err
	}

	return convs, nil
}

func (r *ConversationRepository) getByPair(ctx context.Context, pair model.ParticipantPair) (model.Conversation, error) {
	query := `
		SELECT id, participant_lo, participant_hi, created_at, updated_at
		FROM conversations
		WHERE participant_lo = $1 AND participant_hi = $2`

	conv, err := r.scanConversationRow(r.db.QueryRow(ctx, query, pair.Lo, pair.Hi))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Conversation{}, model.ErrNotFound
		}
		return model.Conversation{}, fmt.Errorf("failed to get conversation by pair: %w", err)
	}

	conv.Messages, err = r.messagesFor(ctx, conv.ID)
	if err != nil {
		return model.Conversation{}, err
	}

	return conv, nil
}

func (r *ConversationRepository) messagesFor(ctx context.Context, conversationID uuid.UUID) ([]model.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, body, seq, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY seq`

	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// attachMessages loads messages for all conversations in one query and
// buckets them by conversation.
func (r *ConversationRepository) attachMessages(ctx context.Context, convs []model.Conversation) error {
	if len(convs) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}

	query := `
		SELECT id, conversation_id, sender_id, body, seq, created_at
		FROM messages
		WHERE conversation_id = ANY($1)
		ORDER BY seq`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to get messages for conversations: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return err
	}

	byConv := make(map[uuid.UUID][]model.Message, len(convs))
	for _, m := range msgs {
		byConv[m.ConversationID] = append(byConv[m.ConversationID], m)
	}
	for i := range convs {
		convs[i].Messages = byConv[convs[i].ID]
	}

	return nil
}

func (r *ConversationRepository) scanConversationRow(row pgx.Row) (model.Conversation, error) {
	var conv model.Conversation
	err := row.Scan(
		&conv.ID, &conv.Participants.Lo, &conv.Participants.Hi,
		&conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		return model.Conversation{}, err
	}
	return conv, nil
}

func scanMessages(rows pgx.Rows) ([]model.Message, error) {
	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		err := rows.Scan(
			&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.Seq, &m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read message rows: %w", err)
	}

	return msgs, nil
}
