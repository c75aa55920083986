package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/moorebrett0/digicord/internal/collection"
	"github.com/moorebrett0/digicord/internal/digimon"
	"github.com/moorebrett0/digicord/internal/encounter"
	"github.com/moorebrett0/digicord/internal/monitor"
	"github.com/moorebrett0/digicord/internal/species"
)

const (
	colorSuccess = 0x57F287 // green
	colorFailure = 0xED4245 // red
	colorNeutral = 0x5865F2 // blurple
)

// progressBar renders a visual bar like ████████░░ 78/100
func progressBar(value, limit, width int) string {
	filled := 0
	if limit > 0 {
		filled = value * width / limit
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	empty := width - filled
	return fmt.Sprintf("%s%s %d/%d", strings.Repeat("█", filled), strings.Repeat("░", empty), value, limit)
}

// stageColor returns a Discord embed color for the stage.
func stageColor(stage species.Stage) int {
	switch stage {
	case species.StageBaby:
		return 0xF9E2AF // pale yellow
	case species.StageInTraining:
		return 0xFEE75C // yellow
	case species.StageRookie:
		return 0x57F287 // green
	case species.StageChampion:
		return 0x3BA55C // dark green
	case species.StageUltimate:
		return 0x5865F2 // blurple
	case species.StageMega:
		return 0xEB459E // fuchsia
	case species.StageUltra:
		return 0xED4245 // red
	case species.StageArmor:
		return 0x99AAB5 // grey
	default:
		return colorNeutral
	}
}

// ResultEmbed is the plain title + description embed most replies use.
func ResultEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Type:        discordgo.EmbedTypeRich,
		Title:       title,
		Description: description,
		Color:       color,
	}
}

// SpawnEmbed announces a wild encounter. The species stays hidden.
func SpawnEmbed(p encounter.Pending) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Type:        discordgo.EmbedTypeRich,
		Title:       "A Wild Digimon has Appeared!",
		Description: "Guess its name with `/catch <name>` to catch it.",
		Color:       stageColor(p.Species.Stage),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("level %d", p.Digimon.Level),
		},
		Timestamp: p.SpawnedAt.Format(time.RFC3339),
	}
}

// CaughtEmbed congratulates the catcher.
func CaughtEmbed(userID string, res encounter.CatchResult) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Type:  discordgo.EmbedTypeRich,
		Title: "Congratulations!",
		Description: fmt.Sprintf("%s caught a level %d %s",
			mention(userID), res.Digimon.Level, res.Species.Name),
		Color: colorSuccess,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("added to your collection as #%d", res.ID),
		},
	}
}

// InfoEmbed shows one collection entry.
func InfoEmbed(e collection.Entry) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Type:  discordgo.EmbedTypeRich,
		Title: e.Label(),
		Description: fmt.Sprintf("Stage: %s\nLevel: %d",
			e.Species.Stage, e.Digimon.Level),
		Color: stageColor(e.Species.Stage),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Level", Value: "`" + progressBar(e.Digimon.Level, digimon.MaxLevel, 10) + "`", Inline: false},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("id %d | species #%d", e.ID, e.Species.Number),
		},
	}
}

// ListEmbed renders one page of a collection.
func ListEmbed(p collection.Page) *discordgo.MessageEmbed {
	var b strings.Builder
	for _, e := range p.Entries {
		fmt.Fprintf(&b, "%d: %s; Level: %d\n", e.ID, e.Label(), e.Digimon.Level)
	}
	fmt.Fprintf(&b, "Page %d of %d", p.Number, p.TotalPages)

	return &discordgo.MessageEmbed{
		Type:        discordgo.EmbedTypeRich,
		Title:       fmt.Sprintf("Owned Digimon: Page %d", p.Number),
		Description: b.String(),
		Color:       colorNeutral,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d caught", p.Total),
		},
	}
}

// HintEmbed wraps an AI generated riddle.
func HintEmbed(hint string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Type:        discordgo.EmbedTypeRich,
		Title:       "Hint",
		Description: hint,
		Color:       colorNeutral,
	}
}

// StatusEmbed summarizes the bot for its owners. stats may be nil.
func StatusEmbed(speciesCount, spawnChance int, stats *monitor.Stats) *discordgo.MessageEmbed {
	desc := fmt.Sprintf("Species: %d\nSpawn chance: %d%%", speciesCount, spawnChance)
	if stats != nil {
		desc += "\n" + monitor.FormatStats(*stats)
	}
	return &discordgo.MessageEmbed{
		Type:        discordgo.EmbedTypeRich,
		Title:       "Digicord Status",
		Description: desc,
		Color:       colorNeutral,
	}
}

// deleteButtons asks userID to confirm deleting entry id.
func deleteButtons(userID string, id int) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Yes, delete",
					Style:    discordgo.DangerButton,
					CustomID: deleteCustomID(true, userID, id),
				},
				discordgo.Button{
					Label:    "No",
					Style:    discordgo.SecondaryButton,
					CustomID: deleteCustomID(false, userID, id),
				},
			},
		},
	}
}

func TemplateHelp() string {
	return "**Digicord Commands**\n\n" +
		"`/catch <name>` — Catch the wild digimon by guessing its name\n" +
		"`/hint` — Get a riddle about the wild digimon\n" +
		"`/digimon list [page]` — List your digimon\n" +
		"`/digimon select <id>` — Select one of your digimon\n" +
		"`/digimon info` — Show your selected digimon\n" +
		"`/digimon nickname [name]` — Rename your selected digimon (empty resets it)\n" +
		"`/digimon delete` — Release your selected digimon\n" +
		"`/admin spawn-channel [channel]` — Pin spawns to a channel (admins)\n" +
		"`/admin spawn-chance <percent>` — Set the spawn chance (bot owners)\n" +
		"`/admin spawn` — Spawn a digimon now (bot owners)\n" +
		"`/admin status` — Show bot status (bot owners)\n" +
		"`/help` — This message\n\n" +
		"Wild digimon appear as people chat. Be the first to name one!"
}

func mention(userID string) string {
	return "<@" + userID + ">"
}
