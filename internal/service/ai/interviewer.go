package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"mockly/internal/config"
	"mockly/internal/model/interview"
)

const systemPrompt = `You are a professional interviewer conducting a mock job interview.
The scripted questions are finished; you are now in the open-ended part of the conversation.
Ask exactly one concise follow-up question that digs deeper into what the candidate just said.
Stay encouraging and professional. Do not evaluate or score the candidate out loud.`

// historyLimit bounds how much of the timeline is sent to the model.
const historyLimit = 10

// Interviewer generates open-ended follow-up questions once the scripted
// question list is exhausted.
type Interviewer struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	log       *zap.Logger
}

// NewInterviewer wires the prompt template and chat model into a chain.
func NewInterviewer(ctx context.Context, cfg config.AIConfig, log *zap.Logger) (*Interviewer, error) {
	if log == nil {
		log = zap.NewNop()
	}

	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile interviewer chain: %w", err)
	}

	return &Interviewer{chatModel: chatModel, chain: runnable, log: log}, nil
}

// FollowUp produces one follow-up question grounded in the conversation so
// far and the candidate's latest answer.
func (i *Interviewer) FollowUp(ctx context.Context, history []interview.Message, userText string) (string, error) {
	response, err := i.chain.Invoke(ctx, map[string]any{
		"system":  systemPrompt,
		"history": buildHistory(history),
		"query":   userText,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run interviewer chain: %w", err)
	}

	reply := strings.TrimSpace(response.Content)
	i.log.Debug("generated follow-up", zap.Int("length", len(reply)))
	return reply, nil
}

// buildHistory maps the recent timeline onto model roles. The latest user
// message travels as the query, so it is excluded here.
func buildHistory(messages []interview.Message) []*schema.Message {
	if len(messages) > 0 && messages[len(messages)-1].Sender == interview.SenderUser {
		messages = messages[:len(messages)-1]
	}
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Sender {
		case interview.SenderUser:
			history = append(history, schema.UserMessage(msg.Text))
		case interview.SenderAI:
			history = append(history, schema.AssistantMessage(msg.Text, nil))
		}
	}
	return history
}
