package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramDeliverer posts notifications to one Telegram chat.
type TelegramDeliverer struct {
	bot    telegramSender
	chatID int64
}

// NewTelegramDeliverer connects to the Bot API with token.
func NewTelegramDeliverer(token string, chatID int64) (*TelegramDeliverer, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramDeliverer{bot: bot, chatID: chatID}, nil
}

func (d *TelegramDeliverer) Name() string { return "telegram" }

func (d *TelegramDeliverer) Deliver(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(d.chatID, n.Text())
	msg.DisableNotification = !n.SoundEnabled
	_, err := d.bot.Send(msg)
	return err
}

type discordSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordDeliverer posts notifications as embeds to one Discord channel.
type DiscordDeliverer struct {
	session   discordSender
	channelID string
}

// NewDiscordDeliverer creates a bot session with token. The REST calls it
// makes do not need an open gateway connection.
func NewDiscordDeliverer(token, channelID string) (*DiscordDeliverer, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return &DiscordDeliverer{session: s, channelID: channelID}, nil
}

func (d *DiscordDeliverer) Name() string { return "discord" }

func (d *DiscordDeliverer) Deliver(ctx context.Context, n Notification) error {
	embed := &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: n.Body,
		Timestamp:   n.FireAt.Format("2006-01-02T15:04:05Z07:00"),
		Color:       0x2E86DE,
	}
	if n.Priority == "high" {
		embed.Color = 0xE74C3C
	}
	_, err := d.session.ChannelMessageSendEmbed(d.channelID, embed, discordgo.WithContext(ctx))
	return err
}
