package clients

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramClient оборачивает Bot API. Используется и поллером команд, и
// нотификатором дайджестов: SendMessage реализует notify.TelegramSender.
type TelegramClient struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

func NewTelegramClient(token string, logger *slog.Logger) *TelegramClient {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Ошибка при создании Telegram клиента", "error", err)
	}

	return &TelegramClient{
		bot:    bot,
		logger: logger,
	}
}

// SetBaseURL устанавливает базовый URL для API Telegram (используется в тестах).
func (c *TelegramClient) SetBaseURL(url string) {
	if c.bot != nil {
		c.bot.SetAPIEndpoint(url)
	}
}

func (c *TelegramClient) SendMessage(_ context.Context, chatID int64, text string) error {
	if c.bot == nil {
		return fmt.Errorf("telegram клиент не инициализирован")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	_, err := c.bot.Send(msg)
	if err != nil {
		return fmt.Errorf("ошибка при отправке сообщения: %w", err)
	}

	return nil
}

func (c *TelegramClient) SetMyCommands(_ context.Context, commands map[string]string) error {
	if c.bot == nil {
		return fmt.Errorf("telegram клиент не инициализирован")
	}

	botAPICommands := make([]tgbotapi.BotCommand, 0, len(commands))
	for command, description := range commands {
		botAPICommands = append(botAPICommands, tgbotapi.BotCommand{
			Command:     command,
			Description: description,
		})
	}

	setCommandsConfig := tgbotapi.NewSetMyCommands(botAPICommands...)

	_, err := c.bot.Request(setCommandsConfig)
	if err != nil {
		return fmt.Errorf("ошибка при установке команд бота: %w", err)
	}

	return nil
}

func (c *TelegramClient) GetBot() *tgbotapi.BotAPI {
	return c.bot
}
