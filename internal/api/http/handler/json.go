package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/duochat/duochat-server/internal/model"
	"github.com/duochat/duochat-server/internal/service"
)

// userJSON is the wire form of a user. The password digest never leaves
// the server.
type userJSON struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func toUserJSON(u model.User) userJSON {
	return userJSON{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toUsersJSON(users []model.User) []userJSON {
	out := make([]userJSON, 0, len(users))
	for _, u := range users {
		out = append(out, toUserJSON(u))
	}
	return out
}

// messageJSON is the wire form of a message. The sender is expanded to
// the participant's user record. "timeStamp" keeps the field name
// existing clients parse.
type messageJSON struct {
	ID        uuid.UUID `json:"id"`
	Sender    userJSON  `json:"sender"`
	Text      string    `json:"text"`
	Seq       int64     `json:"seq"`
	TimeStamp time.Time `json:"timeStamp"`
}

// chatJSON is the wire form of a conversation with participants and
// message senders expanded.
type chatJSON struct {
	ID           uuid.UUID     `json:"id"`
	Participants []userJSON    `json:"participants"`
	Messages     []messageJSON `json:"messages"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func toChatJSON(res service.ConversationResult) chatJSON {
	participants := make([]userJSON, 0, 2)
	for _, u := range res.Participants {
		participants = append(participants, toUserJSON(u))
	}

	messages := make([]messageJSON, 0, len(res.Conversation.Messages))
	for _, m := range res.Conversation.Messages {
		sender, _ := res.Participant(m.SenderID)
		messages = append(messages, messageJSON{
			ID:        m.ID,
			Sender:    toUserJSON(sender),
			Text:      m.Body,
			Seq:       m.Seq,
			TimeStamp: m.CreatedAt,
		})
	}

	return chatJSON{
		ID:           res.Conversation.ID,
		Participants: participants,
		Messages:     messages,
		CreatedAt:    res.Conversation.CreatedAt,
		UpdatedAt:    res.Conversation.UpdatedAt,
	}
}

func toChatsJSON(results []service.ConversationResult) []chatJSON {
	out := make([]chatJSON, 0, len(results))
	for _, r := range results {
		out = append(out, toChatJSON(r))
	}
	return out
}
