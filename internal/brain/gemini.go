package brain

import (
	"context"
	"encoding/json"

	"google.golang.org/genai"
)

// geminiProvider implements Provider using the Google Gemini API.
type geminiProvider struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig // SystemInstruction is set per call
}

func newGeminiProvider(ctx context.Context, apiKey, model string, maxTokens int64) (*geminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &geminiProvider{
		client: client,
		model:  model,
		config: &genai.GenerateContentConfig{
			MaxOutputTokens: int32(maxTokens),
			Tools: []*genai.Tool{{
				FunctionDeclarations: []*genai.FunctionDeclaration{{
					Name:        speciesFactsTool,
					Description: speciesFactsDescription,
				}},
			}},
		},
	}, nil
}

func (g *geminiProvider) Send(ctx context.Context, systemPrompt string, history []Message) (*Response, error) {
	config := *g.config
	config.SystemInstruction = genai.NewContentFromText(systemPrompt, "")

	resp, err := g.client.Models.GenerateContent(ctx, g.model, toGeminiContents(history), &config)
	if err != nil {
		return nil, err
	}
	return fromGemini(resp), nil
}

func toGeminiContents(history []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.RoleUser
		if m.Role == roleAssistant {
			role = genai.RoleModel
		}

		var parts []*genai.Part
		if m.Text != "" {
			parts = append(parts, genai.NewPartFromText(m.Text))
		}
		for _, tc := range m.ToolCalls {
			var args map[string]any
			_ = json.Unmarshal(tc.Input, &args)
			parts = append(parts, genai.NewPartFromFunctionCall(tc.Name, args))
		}
		for _, tr := range m.ToolResults {
			out := map[string]any{"output": tr.Content}
			if tr.IsError {
				out["error"] = true
			}
			// Gemini matches results by function name.
			parts = append(parts, genai.NewPartFromFunctionResponse(tr.Name, out))
		}
		if len(parts) == 0 {
			parts = append(parts, genai.NewPartFromText(""))
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents
}

func fromGemini(resp *genai.GenerateContentResponse) *Response {
	calls := resp.FunctionCalls()
	out := &Response{Text: resp.Text(), Done: len(calls) == 0}
	for _, fc := range calls {
		raw, _ := json.Marshal(fc.Args)
		id := fc.ID
		if id == "" {
			id = fc.Name
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: id, Name: fc.Name, Input: raw})
	}
	return out
}
