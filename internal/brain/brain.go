package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/moorebrett0/digicord/internal/digimon"
	"github.com/moorebrett0/digicord/internal/species"
)

// ErrRateLimited is returned when hints are requested faster than the
// configured rate.
var ErrRateLimited = errors.New("brain: too many hint requests")

// redacted replaces the species name in model output.
const redacted = "???"

// Brain wraps an AI provider with prompt building and the tool-use loop
// that lets the model look up facts about the hidden digimon.
type Brain struct {
	provider Provider
	catalog  *species.Catalog
	maxTools int
	limiter  *rate.Limiter
}

// Config for creating a Brain.
type Config struct {
	// Claude
	ClaudeAPIKey string
	ClaudeModel  string

	// Gemini
	GeminiAPIKey string
	GeminiModel  string

	// Which provider to force ("claude", "gemini", or "" for auto-detect)
	Provider string

	MaxTokens  int64
	MaxTools   int
	RateLimit  int
	RateWindow time.Duration
}

// New creates a Brain. Returns nil if no API key is configured.
func New(ctx context.Context, cfg Config, catalog *species.Catalog) *Brain {
	provider := newProvider(ctx, cfg)
	if provider == nil {
		slog.Info("brain: no API key configured, hints disabled")
		return nil
	}
	return NewWithProvider(provider, cfg, catalog)
}

// NewWithProvider creates a Brain around an existing provider.
func NewWithProvider(provider Provider, cfg Config, catalog *species.Catalog) *Brain {
	limit := rate.Inf
	burst := cfg.RateLimit
	if cfg.RateLimit > 0 && cfg.RateWindow > 0 {
		limit = rate.Every(cfg.RateWindow / time.Duration(cfg.RateLimit))
	}
	if burst <= 0 {
		burst = 1
	}

	return &Brain{
		provider: provider,
		catalog:  catalog,
		maxTools: cfg.MaxTools,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

// newProvider auto-detects or forces the AI provider.
func newProvider(ctx context.Context, cfg Config) Provider {
	pick := cfg.Provider

	// Auto-detect if not forced
	if pick == "" {
		switch {
		case cfg.ClaudeAPIKey != "":
			pick = "claude"
		case cfg.GeminiAPIKey != "":
			pick = "gemini"
		}
	}

	switch pick {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			slog.Error("brain: AI_PROVIDER=claude but ANTHROPIC_API_KEY is not set")
			return nil
		}
		slog.Info("brain: using claude", "model", cfg.ClaudeModel)
		return newClaudeProvider(cfg.ClaudeAPIKey, cfg.ClaudeModel, cfg.MaxTokens)
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			slog.Error("brain: AI_PROVIDER=gemini but GOOGLE_API_KEY is not set")
			return nil
		}
		slog.Info("brain: using gemini", "model", cfg.GeminiModel)
		p, err := newGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.MaxTokens)
		if err != nil {
			slog.Error("brain: failed to create gemini provider", "err", err)
			return nil
		}
		return p
	default:
		return nil
	}
}

// Hint asks the model for a short riddle about ind's species. The species
// name never appears in the returned text.
func (b *Brain) Hint(ctx context.Context, ind digimon.Individual) (string, error) {
	if !b.limiter.Allow() {
		return "", ErrRateLimited
	}

	rec, err := b.catalog.Record(ind.SpeciesNumber)
	if err != nil {
		return "", err
	}

	history := []Message{
		{Role: roleUser, Text: fmt.Sprintf("Give me a hint about the wild level %d digimon.", ind.Level)},
	}

	// Tool-use loop
	for i := 0; i <= b.maxTools; i++ {
		resp, err := b.provider.Send(ctx, b.buildSystemPrompt(rec), history)
		if err != nil {
			slog.Error("brain: AI API error", "err", err)
			return "", fmt.Errorf("AI API error: %w", err)
		}

		if resp.Done {
			return redact(resp.Text, rec.Name), nil
		}

		history = append(history, Message{
			Role:      roleAssistant,
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		var results []ToolResult
		for _, tc := range resp.ToolCalls {
			content, isError := b.executeTool(tc.Name, rec)
			results = append(results, ToolResult{
				ID:      tc.ID,
				Name:    tc.Name,
				Content: content,
				IsError: isError,
			})
		}

		history = append(history, Message{
			Role:        roleUser,
			ToolResults: results,
		})
	}

	slog.Warn("brain: hit max tool iterations", "max", b.maxTools)
	return fallbackHint(rec), nil
}

// speciesFacts is what the species_facts tool hands back to the model.
type speciesFacts struct {
	Stage          string   `json:"stage"`
	NameLength     int      `json:"name_length"`
	FirstLetter    string   `json:"first_letter"`
	DigivolvesFrom []string `json:"digivolves_from"`
	DigivolvesTo   []string `json:"digivolves_to"`
}

func (b *Brain) executeTool(name string, rec species.Record) (string, bool) {
	switch name {
	case speciesFactsTool:
		facts := speciesFacts{
			Stage:          rec.Stage,
			NameLength:     len([]rune(rec.Name)),
			FirstLetter:    firstLetter(rec.Name),
			DigivolvesFrom: rec.Digivolutions.From,
		}
		for _, to := range rec.Digivolutions.To {
			facts.DigivolvesTo = append(facts.DigivolvesTo, to.Name)
		}
		out, err := json.Marshal(facts)
		if err != nil {
			return fmt.Sprintf("marshal facts: %v", err), true
		}
		return string(out), false

	default:
		return fmt.Sprintf("unknown tool: %s", name), true
	}
}

func (b *Brain) buildSystemPrompt(rec species.Record) string {
	return fmt.Sprintf(`You are the narrator of a Digimon catching game on Discord.
A wild digimon has appeared and players must type its exact name to catch it.

## The hidden digimon
- Name: %s (SECRET, never write it or any part of it)
- Stage: %s

## Guidelines
- Answer with a single riddle-like hint of 1-2 sentences.
- Never reveal the name, spell it, or give anagrams of it.
- You can call the %s tool for stage and digivolution facts.
- Mentioning what it digivolves from or into is allowed.`,
		rec.Name, rec.Stage, speciesFactsTool)
}

// fallbackHint is used when the model never produced a final answer.
func fallbackHint(rec species.Record) string {
	return fmt.Sprintf("It is a %s stage digimon whose name starts with %q and has %d letters.",
		rec.Stage, firstLetter(rec.Name), len([]rune(rec.Name)))
}

func firstLetter(name string) string {
	for _, r := range name {
		return strings.ToUpper(string(r))
	}
	return ""
}

func redact(text, name string) string {
	if name == "" {
		return text
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(name))
	return re.ReplaceAllString(text, redacted)
}
