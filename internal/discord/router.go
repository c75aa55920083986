package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/moorebrett0/digicord/internal/brain"
	"github.com/moorebrett0/digicord/internal/collection"
	"github.com/moorebrett0/digicord/internal/encounter"
	"github.com/moorebrett0/digicord/internal/monitor"
	"github.com/moorebrett0/digicord/internal/species"
)

const (
	deletePrefix     = "digimon-delete"
	handlerTimeout   = 10 * time.Second
	hintTimeout      = 30 * time.Second
	nicknameMaxRunes = 32
)

// Session is the part of *discordgo.Session the router talks to.
type Session interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// RouterConfig wires a Router.
type RouterConfig struct {
	Session     Session
	OwnerIDs    []string
	Catalog     *species.Catalog
	Encounters  *encounter.Generator
	Collections *collection.Manager
	Brain       *brain.Brain     // nil if hints are disabled
	Monitor     *monitor.Monitor // optional
	ImagesDir   string
	PageSize    int
}

// Validate ensures all required dependencies are provided.
func (c *RouterConfig) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	if c.Session == nil {
		return errors.New("session cannot be nil")
	}
	if c.Catalog == nil {
		return errors.New("catalog cannot be nil")
	}
	if c.Encounters == nil {
		return errors.New("encounters cannot be nil")
	}
	if c.Collections == nil {
		return errors.New("collections cannot be nil")
	}
	return nil
}

// Router dispatches Discord messages, slash commands and button clicks.
type Router struct {
	session     Session
	owners      map[string]bool
	catalog     *species.Catalog
	encounters  *encounter.Generator
	collections *collection.Manager
	brain       *brain.Brain
	monitor     *monitor.Monitor
	imagesDir   string
	pageSize    int
}

// NewRouter creates a router. Wire it to a Bot with Bot.SetRouter.
func NewRouter(cfg *RouterConfig) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	owners := make(map[string]bool, len(cfg.OwnerIDs))
	for _, id := range cfg.OwnerIDs {
		owners[id] = true
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = collection.DefaultPageSize
	}

	return &Router{
		session:     cfg.Session,
		owners:      owners,
		catalog:     cfg.Catalog,
		encounters:  cfg.Encounters,
		collections: cfg.Collections,
		brain:       cfg.Brain,
		monitor:     cfg.Monitor,
		imagesDir:   cfg.ImagesDir,
		pageSize:    pageSize,
	}, nil
}

// IsOwner checks if a user ID is in the owner list.
func (r *Router) IsOwner(userID string) bool {
	return r.owners[userID]
}

// HandleMessage rolls the spawn chance for every guild message from a human.
func (r *Router) HandleMessage(m *discordgo.MessageCreate) {
	if m.GuildID == "" || m.Author == nil || m.Author.Bot {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	ok, err := r.encounters.ShouldSpawn(ctx)
	if err != nil {
		slog.Error("router: spawn roll failed", "guild", m.GuildID, "err", err)
		return
	}
	if !ok {
		return
	}

	p, err := r.encounters.Spawn(ctx, m.GuildID, m.ChannelID)
	if err != nil {
		slog.Error("router: spawn failed", "guild", m.GuildID, "err", err)
		return
	}
	if err := r.AnnounceSpawn(p); err != nil {
		slog.Error("router: announce spawn failed", "guild", m.GuildID, "channel", p.ChannelID, "err", err)
	}
}

// AnnounceSpawn posts the wild digimon embed to the encounter's channel.
func (r *Router) AnnounceSpawn(p encounter.Pending) error {
	if r.monitor != nil {
		r.monitor.RecordSpawn()
	}
	embed := SpawnEmbed(p)
	files := r.attachImages(embed, p.Species.Number)
	_, err := r.session.ChannelMessageSendComplex(p.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Files:  files,
	})
	return err
}

// HandleInteraction dispatches slash commands and button clicks.
func (r *Router) HandleInteraction(i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		r.handleCommand(i)
	case discordgo.InteractionMessageComponent:
		r.handleComponent(i)
	}
}

func (r *Router) handleCommand(i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if r.monitor != nil {
		r.monitor.RecordCommand()
	}

	if data.Name == "help" {
		r.respondEphemeral(i, TemplateHelp())
		return
	}
	if i.GuildID == "" {
		r.respondEphemeral(i, "Digicord commands only work inside a server.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	switch data.Name {
	case "catch":
		r.handleCatch(ctx, i, optionString(data.Options, "name"))
	case "hint":
		r.handleHint(i)
	case "digimon":
		if len(data.Options) == 0 {
			r.respondEphemeral(i, "Unknown command.")
			return
		}
		sub := data.Options[0]
		r.handleDigimon(ctx, i, sub.Name, sub.Options)
	case "admin":
		if len(data.Options) == 0 {
			r.respondEphemeral(i, "Unknown command.")
			return
		}
		sub := data.Options[0]
		r.handleAdmin(ctx, i, sub.Name, sub.Options)
	default:
		r.respondEphemeral(i, "Unknown command.")
	}
}

func (r *Router) handleCatch(ctx context.Context, i *discordgo.InteractionCreate, guess string) {
	userID := interactionUserID(i)

	res, err := r.encounters.Catch(ctx, i.GuildID, userID, guess)
	switch {
	case err == nil:
		if r.monitor != nil {
			r.monitor.RecordCatch()
		}
		r.respondEmbed(i, CaughtEmbed(userID, res))
	case errors.Is(err, encounter.ErrNoEncounter):
		r.respondEphemeral(i, "There is no wild digimon to catch right now.")
	case errors.Is(err, encounter.ErrNoMatch):
		r.respondEphemeral(i, fmt.Sprintf("%q is not it. Try again!", guess))
	case errors.Is(err, encounter.ErrAlreadyCaught):
		r.respondEphemeral(i, "Too slow! Someone else caught it first.")
	default:
		r.respondEmbed(i, r.errorEmbed("Catch Failed", userID, err))
	}
}

func (r *Router) handleHint(i *discordgo.InteractionCreate) {
	if r.brain == nil {
		r.respondEphemeral(i, "Hints are disabled. (No AI API key configured)")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), hintTimeout)
	defer cancel()

	p, err := r.encounters.Pending(ctx, i.GuildID)
	if err != nil {
		if errors.Is(err, encounter.ErrNoEncounter) {
			r.respondEphemeral(i, "There is no wild digimon right now.")
			return
		}
		r.respondEmbed(i, r.errorEmbed("Hint Failed", interactionUserID(i), err))
		return
	}

	r.respondDeferred(i)
	hint, err := r.brain.Hint(ctx, p.Digimon)
	if err != nil {
		if errors.Is(err, brain.ErrRateLimited) {
			r.followup(i, "I need a moment to think... too many hints! Try again shortly.")
			return
		}
		slog.Error("router: hint failed", "guild", i.GuildID, "err", err)
		r.followup(i, "I couldn't come up with a hint this time.")
		return
	}
	r.followupEmbed(i, HintEmbed(hint))
}

func (r *Router) handleDigimon(ctx context.Context, i *discordgo.InteractionCreate, sub string, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	userID := interactionUserID(i)

	switch sub {
	case "select":
		id := int(optionInt(opts, "id", 0))
		if err := r.collections.Select(ctx, userID, id); err != nil {
			r.respondEmbed(i, r.errorEmbed("Selection Failed", userID, err))
			return
		}
		e, err := r.collections.Get(ctx, userID, id)
		if err != nil {
			r.respondEmbed(i, r.errorEmbed("Selection Failed", userID, err))
			return
		}
		slog.Info("router: selected", "user", userID, "id", id)
		r.respondEmbed(i, ResultEmbed("Selection Successful",
			fmt.Sprintf("%s: Selected %s", mention(userID), e.Label()), colorSuccess))

	case "info":
		e, err := r.collections.ResolveSelected(ctx, userID)
		if err != nil {
			r.respondEmbed(i, r.errorEmbed("Get Info Failed", userID, err))
			return
		}
		embed := InfoEmbed(e)
		r.respondEmbedFiles(i, embed, r.attachImages(embed, e.Species.Number), nil)

	case "list":
		page := int(optionInt(opts, "page", 1))
		p, err := r.collections.List(ctx, userID, page, r.pageSize)
		if err != nil {
			r.respondEmbed(i, r.errorEmbed("List Failed", userID, err))
			return
		}
		r.respondEmbed(i, ListEmbed(p))

	case "nickname":
		nickname := strings.TrimSpace(optionString(opts, "name"))
		if len([]rune(nickname)) > nicknameMaxRunes {
			r.respondEphemeral(i, fmt.Sprintf("Nicknames can be at most %d characters.", nicknameMaxRunes))
			return
		}
		e, err := r.collections.ResolveSelected(ctx, userID)
		if err != nil {
			r.respondEmbed(i, r.errorEmbed("Nickname Change Failed", userID, err))
			return
		}
		if err := r.collections.Rename(ctx, userID, e.ID, nickname); err != nil {
			r.respondEmbed(i, r.errorEmbed("Nickname Change Failed", userID, err))
			return
		}
		shown := nickname
		if shown == "" {
			shown = e.Species.Name
		}
		slog.Info("router: renamed", "user", userID, "id", e.ID, "from", e.Digimon.Nickname, "to", nickname)
		r.respondEmbed(i, ResultEmbed("Nickname Change Successful",
			fmt.Sprintf("%s Changed to %s", mention(userID), shown), colorSuccess))

	case "delete":
		e, err := r.collections.ResolveSelected(ctx, userID)
		if err != nil {
			r.respondEmbed(i, r.errorEmbed("Deletion Failed", userID, err))
			return
		}
		embed := InfoEmbed(e)
		embed.Description += fmt.Sprintf("\n\n%s Confirm Deletion", mention(userID))
		r.respondEmbedFiles(i, embed, r.attachImages(embed, e.Species.Number), deleteButtons(userID, e.ID))

	default:
		r.respondEphemeral(i, "Unknown command.")
	}
}

func (r *Router) handleAdmin(ctx context.Context, i *discordgo.InteractionCreate, sub string, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	userID := interactionUserID(i)

	switch sub {
	case "spawn-channel":
		if !isAdmin(i) && !r.IsOwner(userID) {
			r.respondEphemeral(i, "Only server administrators can do that.")
			return
		}
		channelID := ""
		for _, o := range opts {
			if o.Name == "channel" {
				channelID = o.ChannelValue(nil).ID
			}
		}
		if err := r.encounters.SetSpawnChannel(ctx, i.GuildID, channelID); err != nil {
			r.respondEmbed(i, r.errorEmbed("Set Spawn Channel: Failure", userID, err))
			return
		}
		where := "any"
		if channelID != "" {
			where = "<#" + channelID + ">"
		}
		slog.Info("router: spawn channel set", "guild", i.GuildID, "channel", channelID)
		r.respondEmbed(i, ResultEmbed("Set Spawn Channel: Success", "Spawn channel set to "+where, colorSuccess))

	case "spawn-chance":
		if !r.IsOwner(userID) {
			r.respondEphemeral(i, "Only bot owners can do that.")
			return
		}
		chance := int(optionInt(opts, "percent", 0))
		err := r.encounters.SetSpawnChance(ctx, chance)
		switch {
		case errors.Is(err, encounter.ErrInvalidSpawnChance):
			r.respondEmbed(i, ResultEmbed("Set Spawn Chance: Failure",
				fmt.Sprintf("Spawn chance has to be (0,100], which is not %d", chance), colorFailure))
		case err != nil:
			r.respondEmbed(i, r.errorEmbed("Set Spawn Chance: Failure", userID, err))
		default:
			slog.Info("router: spawn chance set", "chance", chance)
			r.respondEmbed(i, ResultEmbed("Set Spawn Chance: Success",
				fmt.Sprintf("Spawn chance set to %d%%", chance), colorSuccess))
		}

	case "spawn":
		if !r.IsOwner(userID) {
			r.respondEphemeral(i, "Only bot owners can do that.")
			return
		}
		p, err := r.encounters.Spawn(ctx, i.GuildID, i.ChannelID)
		if err != nil {
			r.respondEmbed(i, r.errorEmbed("Spawn Failed", userID, err))
			return
		}
		r.respondEphemeral(i, "A wild digimon was released.")
		if err := r.AnnounceSpawn(p); err != nil {
			slog.Error("router: announce spawn failed", "guild", i.GuildID, "channel", p.ChannelID, "err", err)
		}

	case "status":
		if !r.IsOwner(userID) {
			r.respondEphemeral(i, "Only bot owners can do that.")
			return
		}
		chance, err := r.encounters.SpawnChance(ctx)
		if err != nil {
			r.respondEmbed(i, r.errorEmbed("Status Failed", userID, err))
			return
		}
		var stats *monitor.Stats
		if r.monitor != nil {
			s := r.monitor.Stats()
			stats = &s
		}
		r.respondEmbed(i, StatusEmbed(r.catalog.Len(), chance, stats))

	default:
		r.respondEphemeral(i, "Unknown command.")
	}
}

func (r *Router) handleComponent(i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	confirm, ownerID, id, err := parseDeleteCustomID(customID)
	if err != nil {
		slog.Warn("router: unknown component", "custom_id", customID, "err", err)
		return
	}

	userID := interactionUserID(i)
	if userID != ownerID {
		r.respondEphemeral(i, "That confirmation isn't yours.")
		return
	}

	if !confirm {
		r.updateMessage(i, ResultEmbed("", mention(userID)+": Deletion canceled", colorNeutral))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	e, err := r.collections.Delete(ctx, userID, id)
	if err != nil {
		r.updateMessage(i, r.errorEmbed("Deletion Failed", userID, err))
		return
	}
	slog.Info("router: deleted", "user", userID, "id", id, "species", e.Species.Name)
	r.updateMessage(i, ResultEmbed("Deletion Successful",
		fmt.Sprintf("%s: Deleted %d: %s", mention(userID), e.ID, e.Label()), colorSuccess))
}

// errorEmbed turns a domain error into the embed the user sees.
func (r *Router) errorEmbed(title, userID string, err error) *discordgo.MessageEmbed {
	var pageErr *collection.InvalidPageError
	switch {
	case errors.Is(err, collection.ErrNoCaughtDigimon):
		return ResultEmbed("Not Applicable", mention(userID)+": You have no Digimon", colorFailure)
	case errors.Is(err, collection.ErrNoSelectedDigimon):
		return ResultEmbed("No Digimon Selected",
			mention(userID)+": You have not selected a Digimon. Please do so with `/digimon select` first.", colorFailure)
	case errors.Is(err, collection.ErrUnknownDigimonID):
		return ResultEmbed(title, mention(userID)+": No such Digimon with that ID exists", colorFailure)
	case errors.As(err, &pageErr):
		return ResultEmbed("Not a Valid Page Number",
			fmt.Sprintf("%s: Page number must be [1,%d]", mention(userID), pageErr.Max), colorFailure)
	case errors.Is(err, species.ErrUnknownSpecies):
		slog.Error("router: collection references a species missing from the catalog", "user", userID, "err", err)
		return ResultEmbed(title, "That Digimon's species data is missing. Please tell a bot owner.", colorFailure)
	default:
		slog.Error("router: command failed", "user", userID, "title", title, "err", err)
		return ResultEmbed(title, "Something went wrong. Try again in a moment.", colorFailure)
	}
}

// attachImages loads the sprite and field image for a species and points
// the embed at them. Missing images are skipped.
func (r *Router) attachImages(embed *discordgo.MessageEmbed, number int) []*discordgo.File {
	if r.imagesDir == "" {
		return nil
	}

	var files []*discordgo.File
	if f := loadImage(species.SpritePath(r.imagesDir, number), species.SpriteFile(number)); f != nil {
		files = append(files, f)
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: "attachment://" + f.Name}
	}
	if f := loadImage(species.FieldPath(r.imagesDir, number), species.FieldFile(number)); f != nil {
		files = append(files, f)
		embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + f.Name}
	}
	return files
}

func loadImage(path, name string) *discordgo.File {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("router: image unavailable", "path", path, "err", err)
		return nil
	}
	return &discordgo.File{Name: name, ContentType: "image/png", Reader: bytes.NewReader(data)}
}

// --- Interaction response helpers ---

func (r *Router) respondEmbed(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	r.respondEmbedFiles(i, embed, nil, nil)
}

func (r *Router) respondEmbedFiles(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, files []*discordgo.File, components []discordgo.MessageComponent) {
	err := r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Files:      files,
			Components: components,
		},
	})
	if err != nil {
		slog.Error("discord: respond failed", "err", err)
	}
}

func (r *Router) respondEphemeral(i *discordgo.InteractionCreate, content string) {
	err := r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Error("discord: respond failed", "err", err)
	}
}

func (r *Router) respondDeferred(i *discordgo.InteractionCreate) {
	err := r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		slog.Error("discord: defer failed", "err", err)
	}
}

func (r *Router) updateMessage(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: []discordgo.MessageComponent{},
		},
	})
	if err != nil {
		slog.Error("discord: update message failed", "err", err)
	}
}

func (r *Router) followup(i *discordgo.InteractionCreate, content string) {
	if _, err := r.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
	}); err != nil {
		slog.Error("discord: followup failed", "err", err)
	}
}

func (r *Router) followupEmbed(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	if _, err := r.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	}); err != nil {
		slog.Error("discord: followup failed", "err", err)
	}
}

// --- Option and id helpers ---

func optionString(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, o := range opts {
		if o.Name == name {
			return o.StringValue()
		}
	}
	return ""
}

func optionInt(opts []*discordgo.ApplicationCommandInteractionDataOption, name string, fallback int64) int64 {
	for _, o := range opts {
		if o.Name == name {
			return o.IntValue()
		}
	}
	return fallback
}

// deleteCustomID encodes a delete confirmation button:
// digimon-delete:<yes|no>:<userID>:<entryID>
func deleteCustomID(confirm bool, userID string, id int) string {
	answer := "no"
	if confirm {
		answer = "yes"
	}
	return fmt.Sprintf("%s:%s:%s:%d", deletePrefix, answer, userID, id)
}

func parseDeleteCustomID(customID string) (confirm bool, userID string, id int, err error) {
	parts := strings.Split(customID, ":")
	if len(parts) != 4 || parts[0] != deletePrefix {
		return false, "", 0, fmt.Errorf("not a delete button: %q", customID)
	}
	switch parts[1] {
	case "yes":
		confirm = true
	case "no":
	default:
		return false, "", 0, fmt.Errorf("bad answer %q", parts[1])
	}
	if parts[2] == "" {
		return false, "", 0, errors.New("missing user id")
	}
	id, err = strconv.Atoi(parts[3])
	if err != nil {
		return false, "", 0, fmt.Errorf("bad entry id: %w", err)
	}
	return confirm, parts[2], id, nil
}

func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
