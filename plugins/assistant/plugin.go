// ABOUTME: Assistant plugin answering player questions through OpenAI.
// ABOUTME: Registers the ask chat command; without an API key it explains it is not configured.

package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/2389/rokcore/internal/players"
	"github.com/2389/rokcore/plugins/core"
)

const (
	requestTimeout = 15 * time.Second
	systemPrompt   = "You are a helpful assistant on a Reign of Kings game server. Answer in one or two short sentences."
)

func init() {
	core.Register("assistant", func() core.Plugin { return New(nil) })
}

// Completer is the part of the OpenAI client the plugin uses
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type AssistantPlugin struct {
	core.Base
	client Completer
	model  string
	api    core.API
}

// New creates the plugin. A nil client is replaced at Init by an OpenAI
// client when the host has an API key.
func New(client Completer) *AssistantPlugin {
	return &AssistantPlugin{
		Base:   core.Base{Title: "Assistant"},
		client: client,
	}
}

func (p *AssistantPlugin) Init(api core.API) error {
	p.api = api
	p.model = api.Setting("openai_model")
	if p.model == "" {
		p.model = openai.GPT4oMini
	}
	if p.client == nil {
		if key := api.Setting("openai_api_key"); key != "" {
			p.client = openai.NewClient(key)
		}
	}
	api.AddChatCommand("ask", p, p.ask)
	return nil
}

// ask blocks the command until the completion returns or times out
func (p *AssistantPlugin) ask(caller players.Caller, command string, args []string) {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		caller.Reply(fmt.Sprintf("Usage: /%s <question>", command))
		return
	}
	if p.client == nil {
		caller.Reply("assistant is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	answer, err := p.complete(ctx, question)
	if err != nil {
		p.api.Logger().Warn("assistant request failed", "plugin", p.Name(), "caller", caller.ID(), "error", err)
		caller.Reply("assistant is unavailable right now")
		return
	}
	caller.Reply(answer)
}

func (p *AssistantPlugin) complete(ctx context.Context, question string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		MaxTokens:   150,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
