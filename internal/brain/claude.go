package brain

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// claudeFactsTool declares species_facts to Claude. It takes no input.
func claudeFactsTool() anthropic.ToolUnionParam {
	tool := anthropic.ToolUnionParamOfTool(
		anthropic.ToolInputSchemaParam{
			Type:       "object",
			Properties: map[string]any{},
		},
		speciesFactsTool,
	)
	tool.OfTool.Description = anthropic.String(speciesFactsDescription)
	return tool
}

// claudeProvider implements Provider using the Anthropic Claude API.
type claudeProvider struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
	tools     []anthropic.ToolUnionParam
}

func newClaudeProvider(apiKey, model string, maxTokens int64) *claudeProvider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &claudeProvider{
		client:    &client,
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
		tools:     []anthropic.ToolUnionParam{claudeFactsTool()},
	}
}

func (c *claudeProvider) Send(ctx context.Context, systemPrompt string, history []Message) (*Response, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:  toClaudeMessages(history),
		Tools:     c.tools,
	})
	if err != nil {
		return nil, err
	}
	return fromClaude(resp), nil
}

func toClaudeMessages(history []Message) []anthropic.MessageParam {
	msgs := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		if m.Role == roleAssistant {
			var blocks []anthropic.ContentBlockParamUnion
			if m.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Text))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Input, tc.Name))
			}
			msgs = append(msgs, anthropic.NewAssistantMessage(blocks...))
			continue
		}

		if len(m.ToolResults) == 0 {
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text)))
			continue
		}
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.ToolResults))
		for _, tr := range m.ToolResults {
			blocks = append(blocks, anthropic.NewToolResultBlock(tr.ID, tr.Content, tr.IsError))
		}
		msgs = append(msgs, anthropic.NewUserMessage(blocks...))
	}
	return msgs
}

func fromClaude(resp *anthropic.Message) *Response {
	out := &Response{Done: resp.StopReason != anthropic.StopReasonToolUse}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Text += block.AsText().Text
		case "tool_use":
			tu := block.AsToolUse()
			raw, _ := json.Marshal(tu.Input)
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: tu.ID, Name: tu.Name, Input: raw})
		}
	}
	return out
}
