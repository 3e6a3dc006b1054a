package telegram

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/central-university-dev/go-WebMonitor/internal/bot/clients"
)

type BotService interface {
	ProcessCommand(ctx context.Context, chatID int64, text string) (string, error)
}

// Poller читает входящие команды через long polling и отправляет ответы.
type Poller struct {
	telegramClient *clients.TelegramClient
	botService     BotService
	logger         *slog.Logger
	updatesChan    tgbotapi.UpdatesChannel
	stopChan       chan struct{}
}

func NewPoller(telegramClient *clients.TelegramClient, botService BotService, logger *slog.Logger) *Poller {
	return &Poller{
		telegramClient: telegramClient,
		botService:     botService,
		logger:         logger,
		stopChan:       make(chan struct{}),
	}
}

func (p *Poller) Start() {
	p.logger.Info("Запуск Telegram поллера")

	bot := p.telegramClient.GetBot()
	if bot == nil {
		p.logger.Error("Не удалось получить доступ к API бота")
		return
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	p.updatesChan = bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-p.stopChan:
				p.logger.Info("Получен сигнал остановки поллера")
				return
			case update := <-p.updatesChan:
				p.processUpdate(&update)
			}
		}
	}()
}

func (p *Poller) Stop() {
	p.logger.Info("Остановка Telegram поллера")
	close(p.stopChan)
}

func (p *Poller) processUpdate(update *tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}

	chatID := update.Message.Chat.ID
	text := update.Message.Text

	p.logger.Info("Получена команда",
		"chat_id", chatID,
		"text", text,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	response, err := p.botService.ProcessCommand(ctx, chatID, text)
	if err != nil {
		p.logger.Error("Ошибка при обработке команды",
			"error", err,
			"chat_id", chatID,
			"text", text,
		)

		response = "Something went wrong while processing the command. Please try again later."
	}

	if response == "" {
		return
	}

	sendCtx, sendCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer sendCancel()

	if err := p.telegramClient.SendMessage(sendCtx, chatID, response); err != nil {
		p.logger.Error("Ошибка при отправке ответа",
			"error", err,
			"chat_id", chatID,
		)
	}
}
