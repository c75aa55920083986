package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Bot wraps the Discord session and manages slash commands, messages, and presence.
type Bot struct {
	session *discordgo.Session
	guildID string // "" registers commands globally

	router *Router
}

// NewBot creates and configures a Discord bot (does not connect yet).
func NewBot(token, guildID string) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("invalid bot token: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsGuilds

	return &Bot{
		session: session,
		guildID: guildID,
	}, nil
}

// Session exposes the underlying session for the router.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// SetRouter wires the router to handle messages and interactions.
func (b *Bot) SetRouter(r *Router) {
	b.router = r
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)
	b.session.AddHandler(b.onReady)
}

// Start opens the Discord connection and registers slash commands.
// Blocks until context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord: open session: %w", err)
	}

	slog.Info("discord: connected", "user", b.session.State.User.Username)

	if err := b.registerCommands(); err != nil {
		b.session.Close()
		return err
	}

	// Wait for shutdown
	<-ctx.Done()
	slog.Info("discord: shutting down")
	return b.session.Close()
}

// UpdatePresence sets the bot's Discord status line.
func (b *Bot) UpdatePresence(activity string) {
	err := b.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status: "online",
		Activities: []*discordgo.Activity{
			{
				Name: activity,
				Type: discordgo.ActivityTypeWatching,
			},
		},
	})
	if err != nil {
		slog.Debug("discord: update presence failed", "err", err)
	}
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info("discord: ready", "user", r.User.Username, "guilds", len(r.Guilds))
	b.UpdatePresence("for wild digimon")
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore own messages
	if s.State != nil && s.State.User != nil && m.Author != nil && m.Author.ID == s.State.User.ID {
		return
	}

	if b.router != nil {
		b.router.HandleMessage(m)
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if b.router != nil {
		b.router.HandleInteraction(i)
	}
}

func (b *Bot) registerCommands() error {
	appID := b.session.State.User.ID
	registered, err := b.session.ApplicationCommandBulkOverwrite(appID, b.guildID, Commands())
	if err != nil {
		return fmt.Errorf("discord: register commands: %w", err)
	}
	for _, cmd := range registered {
		slog.Info("discord: registered command", "cmd", cmd.Name, "guild", b.guildID)
	}
	return nil
}
