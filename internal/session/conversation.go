package session

import (
	"context"
	"sync"
	"time"

	"github.com/andrewtitoo/ReMissionCapstone/internal/model"
)

const botGreeting = "Hello! I am CHIIP, your companion for IBD management. Here are some insights based on your latest symptom data."

// Conversation is the append-only message surface for the bot view.
// It is seeded with server-provided insight text and lives only as long
// as the view does; nothing here is persisted.
type Conversation struct {
	gateway Gateway
	userID  string

	mu    sync.Mutex
	turns []model.BotTurn
}

// NewConversation seeds the transcript with the greeting and the
// analysis the backend produced for this user.
func NewConversation(gateway Gateway, userID string, summary model.InsightSummary) *Conversation {
	c := &Conversation{gateway: gateway, userID: userID}
	c.appendBot(botGreeting)
	if len(summary.Insights) > 0 {
		for _, line := range summary.Insights {
			c.appendBot(line)
		}
	} else if summary.SummaryText != "" {
		c.appendBot(summary.SummaryText)
	}
	return c
}

// Send records the user's turn, asks the backend for a reply and
// records that too. On failure the user turn is kept so the transcript
// reflects what was actually said.
func (c *Conversation) Send(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	c.turns = append(c.turns, model.BotTurn{
		Speaker: model.SpeakerUser,
		Text:    text,
		SentAt:  time.Now(),
	})
	c.mu.Unlock()

	reply, err := c.gateway.SendBotMessage(ctx, c.userID, text)
	if err != nil {
		return "", err
	}
	c.appendBot(reply)
	return reply, nil
}

// Turns returns a copy of the transcript in order.
func (c *Conversation) Turns() []model.BotTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.BotTurn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Conversation) appendBot(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, model.BotTurn{
		Speaker: model.SpeakerBot,
		Text:    text,
		SentAt:  time.Now(),
	})
}
