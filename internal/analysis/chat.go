package analysis

import (
	"context"
	"strings"
	"sync"

	"github.com/ayush/docmind/backend/internal/models"
	"github.com/ayush/docmind/backend/internal/prompt"
)

// Greeting opens every conversation. It is shown but never sent.
const Greeting = "Hello! I'm here to help you understand your document. What would you like to know?"

// ChatView is the observable conversation.
type ChatView struct {
	Snapshot[string]
	Messages []models.ChatMessage `json:"messages"`
}

// Chat is a conversation about the document. Earlier turns are replayed
// with every new message.
type Chat struct {
	*Orchestrator[string]

	mu       sync.Mutex
	messages []models.ChatMessage
}

func NewChat(deps Deps) *Chat {
	c := &Chat{Orchestrator: NewOrchestrator(chatTool, deps)}
	c.messages = greeting()
	return c
}

func greeting() []models.ChatMessage {
	return []models.ChatMessage{{Role: "system", Content: Greeting}}
}

// Send asks message about the document. A blank message does nothing.
func (c *Chat) Send(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}

	c.mu.Lock()
	history := append([]models.ChatMessage(nil), c.messages...)
	c.mu.Unlock()

	call, err := c.start(prompt.Options{Message: message, History: history})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.messages = append(c.messages, models.ChatMessage{Role: "user", Content: message})
	c.mu.Unlock()

	c.reply(c.finish(ctx, call))
	return nil
}

// Retry asks the failed message again. It is not added to the
// conversation a second time.
func (c *Chat) Retry(ctx context.Context) error {
	call, err := c.startRetry()
	if err != nil {
		return err
	}
	c.reply(c.finish(ctx, call))
	return nil
}

func (c *Chat) reply(content string, out outcome) {
	if out != outcomeDone {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, models.ChatMessage{Role: "assistant", Content: content})
}

func (c *Chat) Discard() {
	c.Orchestrator.Discard()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = greeting()
}

func (c *Chat) Messages() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ChatMessage(nil), c.messages...)
}

func (c *Chat) View() any {
	return ChatView{Snapshot: c.Snapshot(), Messages: c.Messages()}
}
