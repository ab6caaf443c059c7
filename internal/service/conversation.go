package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/duochat/duochat-server/internal/apierrors"
	"github.com/duochat/duochat-server/internal/logger"
	"github.com/duochat/duochat-server/internal/model"
)

// Conversation resolves participant pairs to canonical conversations and
// appends messages to them.
type Conversation struct {
	conversationStore model.ConversationStore
	userStore         model.UserStore
	logger            *logger.Logger
}

func NewConversation(
	conversationStore model.ConversationStore,
	userStore model.UserStore,
	logger *logger.Logger,
) *Conversation {
	return &Conversation{
		conversationStore: conversationStore,
		userStore:         userStore,
		logger:            logger,
	}
}

// ConversationResult is a conversation with its participant pair expanded
// to full user records, in canonical pair order. Message senders always
// refer to one of the two participants.
type ConversationResult struct {
	Conversation model.Conversation
	Participants [2]model.User
}

// Participant returns the expanded user for id, if it is one of the pair.
func (r ConversationResult) Participant(id uuid.UUID) (model.User, bool) {
	for _, u := range r.Participants {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}

// FindOrCreate resolves two participant ids to the single conversation for
// that unordered pair, creating it if absent. The returned flag reports
// whether a new conversation was created. Malformed, duplicate, or
// unknown participant ids fail validation; they are never silently
// dropped.
func (s *Conversation) FindOrCreate(ctx context.Context, participantIDs []string) (ConversationResult, bool, error) {
	s.logger.Debug("Conversation service: find or create",
		"participants", participantIDs)

	if len(participantIDs) != 2 {
		return ConversationResult{}, false, apierrors.NewValidation("exactly two participants are required")
	}

	ids := make([]uuid.UUID, 2)
	for i, raw := range participantIDs {
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			return ConversationResult{}, false, apierrors.NewValidationf("invalid participant id %q", raw)
		}
		ids[i] = id
	}

	pair, err := model.NewParticipantPair(ids[0], ids[1])
	if errors.Is(err, model.ErrPairSelf) {
		return ConversationResult{}, false, apierrors.NewValidation("participants must be two distinct users")
	}
	if err != nil {
		return ConversationResult{}, false, apierrors.NewValidation(err.Error())
	}

	participants, err := s.resolvePair(ctx, pair)
	if err != nil {
		return ConversationResult{}, false, err
	}

	candidate := model.Conversation{
		ID:           uuid.New(),
		Participants: pair,
	}

	saved, err := s.conversationStore.FindOrCreate(ctx, candidate)
	if err != nil {
		s.logger.Error("Conversation service: find or create failed",
			"participant_lo", pair.Lo,
			"participant_hi", pair.Hi,
			"error", err.Error())
		return ConversationResult{}, false, fmt.Errorf("failed to find or create conversation: %w", err)
	}

	created := saved.ID == candidate.ID
	if created {
		s.logger.Info("Conversation service: conversation created",
			"conversation_id", saved.ID,
			"participant_lo", pair.Lo,
			"participant_hi", pair.Hi)
	}

	return ConversationResult{Conversation: saved, Participants: participants}, created, nil
}

// Append adds a message to an existing conversation. The sender must be
// one of the conversation's two participants and the text must be
// non-empty.
func (s *Conversation) Append(ctx context.Context, conversationID, senderID, text string) (ConversationResult, error) {
	convID, err := uuid.Parse(conversationID)
	if err != nil {
		return ConversationResult{}, apierrors.NewValidationf("invalid conversation id %q", conversationID)
	}
	sender, err := uuid.Parse(senderID)
	if err != nil {
		return ConversationResult{}, apierrors.NewValidationf("invalid sender id %q", senderID)
	}
	if strings.TrimSpace(text) == "" {
		return ConversationResult{}, apierrors.NewValidation("message text is required")
	}

	conv, err := s.conversationStore.GetByID(ctx, convID)
	if errors.Is(err, model.ErrNotFound) {
		return ConversationResult{}, apierrors.NewErrConversationNotFound(conversationID)
	}
	if err != nil {
		return ConversationResult{}, fmt.Errorf("failed to get conversation: %w", err)
	}

	if !conv.Participants.Contains(sender) {
		return ConversationResult{}, apierrors.NewValidationf("sender %s is not a participant of conversation %s", sender, convID)
	}

	saved, err := s.conversationStore.AppendMessage(ctx, model.Message{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderID:       sender,
		Body:           text,
	})
	if errors.Is(err, model.ErrNotFound) {
		return ConversationResult{}, apierrors.NewErrConversationNotFound(conversationID)
	}
	if err != nil {
		s.logger.Error("Conversation service: append failed",
			"conversation_id", convID,
			"sender_id", sender,
			"error", err.Error())
		return ConversationResult{}, fmt.Errorf("failed to append message: %w", err)
	}

	s.logger.Info("Conversation service: message appended",
		"conversation_id", convID,
		"sender_id", sender,
		"seq", saved.Seq)

	conv.Messages = append(conv.Messages, saved)
	conv.UpdatedAt = saved.CreatedAt

	participants, err := s.resolvePair(ctx, conv.Participants)
	if err != nil {
		return ConversationResult{}, err
	}

	return ConversationResult{Conversation: conv, Participants: participants}, nil
}

// ListForUser returns every conversation the user takes part in, expanded.
// A user with no conversations gets an empty result, not an error.
func (s *Conversation) ListForUser(ctx context.Context, userID string) ([]ConversationResult, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apierrors.NewValidationf("invalid user id %q", userID)
	}

	if _, err := s.userStore.GetByID(ctx, id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, apierrors.NewErrUserNotFound(userID)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	convs, err := s.conversationStore.GetByParticipant(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	return s.expand(ctx, convs)
}

// Get resolves one conversation by id, expanded.
func (s *Conversation) Get(ctx context.Context, conversationID string) (ConversationResult, error) {
	id, err := uuid.Parse(conversationID)
	if err != nil {
		return ConversationResult{}, apierrors.NewValidationf("invalid conversation id %q", conversationID)
	}

	conv, err := s.conversationStore.GetByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return ConversationResult{}, apierrors.NewErrConversationNotFound(conversationID)
	}
	if err != nil {
		return ConversationResult{}, fmt.Errorf("failed to get conversation: %w", err)
	}

	participants, err := s.resolvePair(ctx, conv.Participants)
	if err != nil {
		return ConversationResult{}, err
	}

	return ConversationResult{Conversation: conv, Participants: participants}, nil
}

// resolvePair fetches both members of a pair, failing with a not-found
// error naming the missing user.
func (s *Conversation) resolvePair(ctx context.Context, pair model.ParticipantPair) ([2]model.User, error) {
	ids := pair.IDs()
	users, err := s.userStore.GetByIDs(ctx, ids[:])
	if err != nil {
		return [2]model.User{}, fmt.Errorf("failed to resolve participants: %w", err)
	}

	byID := make(map[uuid.UUID]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	var out [2]model.User
	for i, id := range ids {
		u, ok := byID[id]
		if !ok {
			return [2]model.User{}, apierrors.NewErrUserNotFound(id.String())
		}
		out[i] = u
	}

	return out, nil
}

// expand resolves participant pairs for a batch of conversations with a
// single user lookup.
func (s *Conversation) expand(ctx context.Context, convs []model.Conversation) ([]ConversationResult, error) {
	if len(convs) == 0 {
		return []ConversationResult{}, nil
	}

	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, c := range convs {
		for _, id := range c.Participants.IDs() {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	users, err := s.userStore.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve participants: %w", err)
	}
	byID := make(map[uuid.UUID]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	results := make([]ConversationResult, 0, len(convs))
	for _, c := range convs {
		var pair [2]model.User
		for i, id := range c.Participants.IDs() {
			u, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("participant %s of conversation %s has no user record", id, c.ID)
			}
			pair[i] = u
		}
		results = append(results, ConversationResult{Conversation: c, Participants: pair})
	}

	return results, nil
}
