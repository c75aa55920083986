package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/moorebrett0/digicord/internal/store"
)

// Commands is the slash command set the bot registers.
func Commands() []*discordgo.ApplicationCommand {
	adminPerm := int64(discordgo.PermissionAdministrator)
	dmAllowed := false
	minID := 1.0
	minChance := float64(store.MinSpawnChance)

	return []*discordgo.ApplicationCommand{
		{
			Name:         "catch",
			Description:  "Catch the wild digimon by guessing its name",
			DMPermission: &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "The digimon's name",
					Required:    true,
				},
			},
		},
		{
			Name:         "hint",
			Description:  "Get a riddle about the wild digimon",
			DMPermission: &dmAllowed,
		},
		{
			Name:         "digimon",
			Description:  "Manage your caught digimon",
			DMPermission: &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "select",
					Description: "Select one of your digimon",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "id",
							Description: "Id from /digimon list",
							Required:    true,
							MinValue:    &minID,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "info",
					Description: "Show your selected digimon",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List your digimon",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "page",
							Description: "Page number",
							MinValue:    &minID,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "nickname",
					Description: "Rename your selected digimon",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "name",
							Description: "New nickname, leave empty to reset",
							MaxLength:   nicknameMaxRunes,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "Release your selected digimon",
				},
			},
		},
		{
			Name:                     "admin",
			Description:              "Configure digimon spawning",
			DefaultMemberPermissions: &adminPerm,
			DMPermission:             &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "spawn-channel",
					Description: "Pin spawns to a channel, or clear it to spawn anywhere",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "channel",
							Description:  "Spawn channel",
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "spawn-chance",
					Description: "Set the chance (percent) that a message spawns a digimon",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "percent",
							Description: "1 to 100",
							Required:    true,
							MinValue:    &minChance,
							MaxValue:    store.MaxSpawnChance,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "spawn",
					Description: "Spawn a digimon right now",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "Show catalog size, spawn chance and bot health",
				},
			},
		},
		{
			Name:        "help",
			Description: "Show available commands",
		},
	}
}
