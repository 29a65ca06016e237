package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/camuig/quant-relay/internal/bot"
	"github.com/camuig/quant-relay/internal/logger"
)

// Connect authenticates the bot token with Telegram.
func Connect(token string, log *logger.Logger) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	log.Info("telegram bot connected", "id", api.Self.ID, "name", api.Self.FirstName, "username", api.Self.UserName)
	return api, nil
}

type Requester interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// RegisterCommands publishes the command menu shown by chat clients.
func RegisterCommands(r Requester, commands []bot.Command) error {
	list := make([]tgbotapi.BotCommand, 0, len(commands))
	for _, c := range commands {
		list = append(list, tgbotapi.BotCommand{
			Command:     strings.TrimPrefix(c.Name, "/"),
			Description: c.Description,
		})
	}

	if _, err := r.Request(tgbotapi.NewSetMyCommands(list...)); err != nil {
		return fmt.Errorf("set bot commands: %w", err)
	}
	return nil
}
