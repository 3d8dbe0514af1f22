package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Notifier delivers an assembled payload to one channel. Transport-level
// failures are the delivery collaborator's problem; the relay logs them
// and moves on.
type Notifier interface {
	Send(ctx context.Context, channelID string, embed Embed) error
}

type DiscordNotifier struct {
	session *discordgo.Session
}

func NewDiscordNotifier(token string) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open Discord session: %w", err)
	}
	zap.L().Info("Discord session opened")
	return &DiscordNotifier{session: session}, nil
}

func (d *DiscordNotifier) Send(ctx context.Context, channelID string, embed Embed) error {
	if channelID == "" {
		return nil
	}
	_, err := d.session.ChannelMessageSendEmbed(channelID, toMessageEmbed(embed), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send embed to channel %s: %w", channelID, err)
	}
	return nil
}

func (d *DiscordNotifier) Close() error {
	return d.session.Close()
}

func toMessageEmbed(embed Embed) *discordgo.MessageEmbed {
	msg := &discordgo.MessageEmbed{
		Title: embed.Title,
		URL:   embed.URL,
		Color: embed.Color,
	}
	if embed.Author.Name != "" {
		msg.Author = &discordgo.MessageEmbedAuthor{
			Name:    embed.Author.Name,
			IconURL: embed.Author.Thumbnail,
			URL:     embed.Author.URL,
		}
	}
	if embed.ThumbnailURL != "" {
		msg.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: embed.ThumbnailURL}
	}
	if embed.ImageURL != "" {
		msg.Image = &discordgo.MessageEmbedImage{URL: embed.ImageURL}
	}
	for _, f := range embed.Fields {
		msg.Fields = append(msg.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	ts := embed.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	msg.Timestamp = ts.UTC().Format(time.RFC3339)
	if embed.FooterText != "" {
		msg.Footer = &discordgo.MessageEmbedFooter{
			Text:    embed.FooterText,
			IconURL: embed.FooterIcon,
		}
	}
	return msg
}
