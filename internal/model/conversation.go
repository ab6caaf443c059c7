package model

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ConversationStore defines persistence operations for conversations and
// their messages.
type ConversationStore interface {
	// FindOrCreate returns the conversation for the candidate's participant
	// pair, inserting the candidate if no conversation exists yet. The
	// operation is atomic: concurrent calls for the same pair all resolve
	// to one persisted row.
	FindOrCreate(ctx context.Context, candidate Conversation) (Conversation, error)
	// AppendMessage appends msg to its conversation and bumps the
	// conversation's updated_at in the same transaction. The returned
	// message carries the storage-assigned sequence and timestamp.
	AppendMessage(ctx context.Context, msg Message) (Message, error)
	GetByID(ctx context.Context, id uuid.UUID) (Conversation, error)
	GetByParticipant(ctx context.Context, userID uuid.UUID) ([]Conversation, error)
}

var (
	ErrPairIncomplete = errors.New("participant pair requires two ids")
	ErrPairSelf       = errors.New("participant pair must hold two distinct ids")
)

// ParticipantPair is the canonical order-independent encoding of the two
// user ids that identify a conversation: Lo < Hi bytewise, matching the
// uuid ordering Postgres uses for the pair's unique constraint.
type ParticipantPair struct {
	Lo uuid.UUID
	Hi uuid.UUID
}

// NewParticipantPair normalizes two user ids into a ParticipantPair.
// Both ids must be non-nil and distinct.
func NewParticipantPair(a, b uuid.UUID) (ParticipantPair, error) {
	if a == uuid.Nil || b == uuid.Nil {
		return ParticipantPair{}, ErrPairIncomplete
	}
	if a == b {
		return ParticipantPair{}, ErrPairSelf
	}
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return ParticipantPair{Lo: a, Hi: b}, nil
}

// Contains reports whether id is one of the pair's members.
func (p ParticipantPair) Contains(id uuid.UUID) bool {
	return id == p.Lo || id == p.Hi
}

// IDs returns both members in canonical order.
func (p ParticipantPair) IDs() [2]uuid.UUID {
	return [2]uuid.UUID{p.Lo, p.Hi}
}

// Conversation is the persisted dialog between exactly two users. Messages
// are append-only and ordered by Seq; UpdatedAt is bumped on every append.
type Conversation struct {
	ID           uuid.UUID
	Participants ParticipantPair
	Messages     []Message
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Message is a single entry in a conversation's log. Seq and CreatedAt are
// assigned by storage at append time; Seq strictly increases within a
// conversation.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Body           string
	Seq            int64
	CreatedAt      time.Time
}
