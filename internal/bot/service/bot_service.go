package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	customerrors "github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/notify"
)

const digestListLimit = 20

const usageText = "Usage:\n" +
	"/monitor — overview\n" +
	"/monitor topic list|add|remove\n" +
	"/monitor entity list|add|remove [topic]\n" +
	"/monitor resource list|add|remove [entity]\n" +
	"/monitor subscribe <target> <channel> [config]\n" +
	"/monitor check [topic] [entity]\n" +
	"/monitor digest [topic]"

type MonitorRegistry interface {
	AddTopic(ctx context.Context, name, description string) (*models.Topic, error)
	GetTopics(ctx context.Context) ([]*models.Topic, error)
	RemoveTopic(ctx context.Context, name string) error
	AddEntity(ctx context.Context, topicName, name, url string, entityType models.EntityType) (*models.Entity, error)
	GetEntities(ctx context.Context, topicName string) ([]*models.Entity, error)
	RemoveEntity(ctx context.Context, name string) error
	AddResource(ctx context.Context, entityName, url, name string, resourceType models.ResourceType) (*models.Resource, error)
	GetResources(ctx context.Context, entityName string) ([]*models.Resource, error)
	RemoveResource(ctx context.Context, id int64) error
	Subscribe(ctx context.Context, target string, channelType models.ChannelType,
		channelConfig json.RawMessage) (*models.Subscriber, error)
	GetRecentDigests(ctx context.Context, topicName string, limit int) ([]*models.Digest, error)
}

type CheckRunner interface {
	RunCheck(ctx context.Context, filter *models.RunFilter, runLabel string) (*models.RunSummary, error)
}

// BotService разбирает команды бота и переводит их в операции реестра и
// запуска проверок. Ответы пользователю возвращаются готовыми HTML-сообщениями.
type BotService struct {
	registry MonitorRegistry
	runner   CheckRunner
	logger   *slog.Logger
}

func NewBotService(registry MonitorRegistry, runner CheckRunner, logger *slog.Logger) *BotService {
	return &BotService{
		registry: registry,
		runner:   runner,
		logger:   logger,
	}
}

func (s *BotService) ProcessCommand(ctx context.Context, chatID int64, text string) (string, error) {
	args := strings.Fields(text)
	if len(args) == 0 {
		return "", nil
	}

	switch args[0] {
	case "/start":
		return "Hi! I watch web resources for changes and send digests.\n\n" + usageText, nil
	case "/help":
		return usageText, nil
	case "/monitor":
		return s.handleMonitor(ctx, chatID, args[1:]), nil
	default:
		return usageText, nil
	}
}

func (s *BotService) handleMonitor(ctx context.Context, chatID int64, args []string) string {
	if len(args) == 0 {
		return s.overview(ctx)
	}

	switch strings.ToLower(args[0]) {
	case "topic":
		return s.handleTopic(ctx, args[1:])
	case "entity":
		return s.handleEntity(ctx, args[1:])
	case "resource":
		return s.handleResource(ctx, args[1:])
	case "subscribe":
		return s.handleSubscribe(ctx, chatID, args[1:])
	case "check":
		return s.handleCheck(ctx, args[1:])
	case "digest":
		return s.handleDigest(ctx, args[1:])
	default:
		return usageText
	}
}

func (s *BotService) overview(ctx context.Context) string {
	topics, err := s.registry.GetTopics(ctx)
	if err != nil {
		s.logger.Error("Ошибка при получении обзора топиков", "error", err)
		return "Failed to load monitor overview."
	}

	if len(topics) == 0 {
		return "No monitor topics. Use /monitor topic add <name>"
	}

	var b strings.Builder

	b.WriteString("<b>Monitor Topics:</b>\n")

	for _, topic := range topics {
		icon := "✅"
		if !topic.Enabled {
			icon = "⏸"
		}

		entities, err := s.registry.GetEntities(ctx, topic.Name)
		if err != nil {
			s.logger.Error("Ошибка при получении сущностей топика", "topic", topic.Name, "error", err)
			continue
		}

		resourceCount := 0

		for _, entity := range entities {
			resources, err := s.registry.GetResources(ctx, entity.Name)
			if err != nil {
				continue
			}

			resourceCount += len(resources)
		}

		desc := ""
		if topic.Description != "" {
			desc = " — " + topic.Description
		}

		fmt.Fprintf(&b, "\n%s <b>%s</b>%s\n   %d entities, %d resources\n",
			icon, topic.Name, desc, len(entities), resourceCount)
	}

	return b.String()
}

func (s *BotService) handleTopic(ctx context.Context, args []string) string {
	if len(args) == 0 || strings.ToLower(args[0]) == "list" {
		topics, err := s.registry.GetTopics(ctx)
		if err != nil {
			s.logger.Error("Ошибка при получении списка топиков", "error", err)
			return "Failed to list topics."
		}

		if len(topics) == 0 {
			return "No topics. Use /monitor topic add <name>"
		}

		var b strings.Builder

		b.WriteString("<b>Topics:</b>\n")

		for _, topic := range topics {
			icon := "✅"
			if !topic.Enabled {
				icon = "⏸"
			}

			desc := ""
			if topic.Description != "" {
				desc = " — " + topic.Description
			}

			fmt.Fprintf(&b, "\n%s <b>%s</b>%s", icon, topic.Name, desc)
		}

		return b.String()
	}

	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) < 2 {
			return "Usage: /monitor topic add <name> [description]"
		}

		name := args[1]
		description := strings.Join(args[2:], " ")

		_, err := s.registry.AddTopic(ctx, name, description)
		if err != nil {
			if errors.Is(err, &customerrors.ErrTopicAlreadyExists{}) {
				return fmt.Sprintf("Topic '%s' already exists.", name)
			}

			s.logger.Error("Ошибка при создании топика", "name", name, "error", err)

			return "Failed to create topic."
		}

		return fmt.Sprintf("✅ Topic '%s' created", name)
	case "remove":
		if len(args) < 2 {
			return "Usage: /monitor topic remove <name>"
		}

		name := args[1]

		if err := s.registry.RemoveTopic(ctx, name); err != nil {
			if errors.Is(err, &customerrors.ErrTopicNotFound{}) {
				return fmt.Sprintf("Topic '%s' not found.", name)
			}

			s.logger.Error("Ошибка при удалении топика", "name", name, "error", err)

			return "Failed to delete topic."
		}

		return fmt.Sprintf("✅ Deleted topic '%s'", name)
	default:
		return "Usage: /monitor topic list|add|remove"
	}
}

func (s *BotService) handleEntity(ctx context.Context, args []string) string {
	if len(args) == 0 || strings.ToLower(args[0]) == "list" {
		topicFilter := ""
		if len(args) > 1 {
			topicFilter = args[1]
		}

		entities, err := s.registry.GetEntities(ctx, topicFilter)
		if err != nil {
			if errors.Is(err, &customerrors.ErrTopicNotFound{}) {
				return fmt.Sprintf("Topic '%s' not found.", topicFilter)
			}

			s.logger.Error("Ошибка при получении списка сущностей", "error", err)

			return "Failed to list entities."
		}

		if len(entities) == 0 {
			return "No entities. Use /monitor entity add <topic> <name> <url> [type]"
		}

		var b strings.Builder

		b.WriteString("<b>Entities:</b>\n")

		for _, entity := range entities {
			icon := "✅"
			if !entity.Enabled {
				icon = "⏸"
			}

			fmt.Fprintf(&b, "\n%s <b>%s</b> (%s)", icon, entity.Name, entity.Type)

			if entity.URL != "" {
				fmt.Fprintf(&b, "\n   %s", entity.URL)
			}
		}

		return b.String()
	}

	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) < 4 {
			return "Usage: /monitor entity add <topic> <name> <url> [type]\n" +
				"Types: company, person, organization, product"
		}

		topicName, name, url := args[1], args[2], args[3]

		entityType := models.EntityCompany
		if len(args) > 4 {
			entityType = models.EntityType(args[4])
		}

		_, err := s.registry.AddEntity(ctx, topicName, name, url, entityType)
		if err != nil {
			switch {
			case errors.Is(err, &customerrors.ErrTopicNotFound{}):
				return fmt.Sprintf("Topic '%s' not found.", topicName)
			case isInvalidEntityType(err):
				return fmt.Sprintf("Invalid type '%s'. Valid: company, person, organization, product", entityType)
			case isEntityAlreadyExists(err):
				return fmt.Sprintf("Entity '%s' already exists.", name)
			}

			s.logger.Error("Ошибка при добавлении сущности", "name", name, "error", err)

			return "Failed to add entity."
		}

		return fmt.Sprintf("✅ Entity '%s' added to topic '%s'", name, topicName)
	case "remove":
		if len(args) < 2 {
			return "Usage: /monitor entity remove <name>"
		}

		name := args[1]

		if err := s.registry.RemoveEntity(ctx, name); err != nil {
			if errors.Is(err, &customerrors.ErrEntityNotFound{}) {
				return fmt.Sprintf("Entity '%s' not found.", name)
			}

			s.logger.Error("Ошибка при удалении сущности", "name", name, "error", err)

			return "Failed to delete entity."
		}

		return fmt.Sprintf("✅ Deleted entity '%s'", name)
	default:
		return "Usage: /monitor entity list|add|remove"
	}
}

func (s *BotService) handleResource(ctx context.Context, args []string) string {
	if len(args) == 0 || strings.ToLower(args[0]) == "list" {
		entityFilter := ""
		if len(args) > 1 {
			entityFilter = args[1]
		}

		resources, err := s.registry.GetResources(ctx, entityFilter)
		if err != nil {
			if errors.Is(err, &customerrors.ErrEntityNotFound{}) {
				return fmt.Sprintf("Entity '%s' not found.", entityFilter)
			}

			s.logger.Error("Ошибка при получении списка ресурсов", "error", err)

			return "Failed to list resources."
		}

		if len(resources) == 0 {
			return "No resources. Use /monitor resource add <entity> <url> <type> [name]"
		}

		var b strings.Builder

		b.WriteString("<b>Resources:</b>\n")

		for _, resource := range resources {
			last := "never"
			if !resource.LastCheckedAt.IsZero() {
				last = resource.LastCheckedAt.Format("01-02 15:04")
			}

			fmt.Fprintf(&b, "\n[%d] <b>%s</b> (%s)\n   %s (last: %s)",
				resource.ID, resource.Name, resource.Type, resource.URL, last)
		}

		return b.String()
	}

	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) < 4 {
			return "Usage: /monitor resource add <entity> <url> <type> [name]\n" +
				"Types: blog, repo, pricing, jobs, changelog, deals"
		}

		entityName, url := args[1], args[2]
		resourceType := models.ResourceType(args[3])
		name := strings.Join(args[4:], " ")

		resource, err := s.registry.AddResource(ctx, entityName, url, name, resourceType)
		if err != nil {
			switch {
			case errors.Is(err, &customerrors.ErrEntityNotFound{}):
				return fmt.Sprintf("Entity '%s' not found.", entityName)
			case isInvalidResourceType(err):
				return fmt.Sprintf("Invalid type '%s'. Valid: blog, repo, pricing, jobs, changelog, deals", resourceType)
			}

			s.logger.Error("Ошибка при добавлении ресурса", "url", url, "error", err)

			return "Failed to add resource."
		}

		return fmt.Sprintf("✅ Resource '%s' added to '%s'", resource.Name, entityName)
	case "remove":
		if len(args) < 2 {
			return "Usage: /monitor resource remove <id>"
		}

		resourceID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return "Resource ID must be a number."
		}

		if err := s.registry.RemoveResource(ctx, resourceID); err != nil {
			if errors.Is(err, &customerrors.ErrResourceNotFound{}) {
				return fmt.Sprintf("Resource #%d not found.", resourceID)
			}

			s.logger.Error("Ошибка при удалении ресурса", "resourceID", resourceID, "error", err)

			return "Failed to delete resource."
		}

		return fmt.Sprintf("✅ Deleted resource #%d", resourceID)
	default:
		return "Usage: /monitor resource list|add|remove"
	}
}

func (s *BotService) handleSubscribe(ctx context.Context, chatID int64, args []string) string {
	const subscribeUsage = "Usage: /monitor subscribe <target> <channel> [config]\n" +
		"Channels: telegram, webhook, kafka\n" +
		"Webhook requires URL as 3rd arg"

	if len(args) < 2 {
		return subscribeUsage
	}

	target := args[0]
	channelType := models.ChannelType(strings.ToLower(args[1]))

	var channelConfig json.RawMessage

	switch channelType {
	case models.ChannelTelegram:
		channelConfig, _ = json.Marshal(map[string]int64{"chat_id": chatID})
	case models.ChannelWebhook:
		if len(args) < 3 {
			return "Webhook requires URL: /monitor subscribe <target> webhook <webhook_url>"
		}

		channelConfig, _ = json.Marshal(map[string]string{"webhook_url": args[2]})
	case models.ChannelKafka:
		channelConfig = json.RawMessage(`{}`)
	default:
		return "Channel must be 'telegram', 'webhook' or 'kafka'."
	}

	_, err := s.registry.Subscribe(ctx, target, channelType, channelConfig)
	if err != nil {
		if errors.Is(err, &customerrors.ErrSubscribeTargetNotFound{}) {
			return fmt.Sprintf("'%s' not found as topic, entity or resource.", target)
		}

		s.logger.Error("Ошибка при создании подписки", "target", target, "error", err)

		return "Failed to add subscription."
	}

	return fmt.Sprintf("✅ Subscribed to '%s' via %s", target, channelType)
}

func (s *BotService) handleCheck(ctx context.Context, args []string) string {
	var filter *models.RunFilter

	label := "Check"

	if len(args) > 0 {
		filter = &models.RunFilter{TopicName: args[0]}
		label = fmt.Sprintf("Check [%s]", args[0])

		if len(args) > 1 {
			filter.EntityName = args[1]
		}
	}

	summary, err := s.runner.RunCheck(ctx, filter, label)
	if err != nil {
		s.logger.Error("Ошибка при запуске проверки", "error", err)
		return "Monitor check failed."
	}

	return notify.FormatDigestMessage(summary.Digests, label)
}

func (s *BotService) handleDigest(ctx context.Context, args []string) string {
	topicName := ""
	if len(args) > 0 {
		topicName = args[0]
	}

	digests, err := s.registry.GetRecentDigests(ctx, topicName, digestListLimit)
	if err != nil {
		if errors.Is(err, &customerrors.ErrTopicNotFound{}) {
			return fmt.Sprintf("Topic '%s' not found.", topicName)
		}

		s.logger.Error("Ошибка при получении дайджестов", "error", err)

		return "Failed to load digests."
	}

	if len(digests) == 0 {
		return "No digests found."
	}

	var b strings.Builder

	b.WriteString("<b>Recent Digests:</b>\n")

	for _, digest := range digests {
		fmt.Fprintf(&b, "\n%s [%s] <code>%s</code>: %s",
			notify.ChangeIcon(digest.ChangeType),
			digest.CreatedAt.Format("01-02 15:04"),
			digest.ChangeType,
			digest.Summary,
		)
	}

	return b.String()
}

func isInvalidEntityType(err error) bool {
	var invalidType *customerrors.ErrInvalidEntityType
	return errors.As(err, &invalidType)
}

func isInvalidResourceType(err error) bool {
	var invalidType *customerrors.ErrInvalidResourceType
	return errors.As(err, &invalidType)
}

func isEntityAlreadyExists(err error) bool {
	var alreadyExists *customerrors.ErrEntityAlreadyExists
	return errors.As(err, &alreadyExists)
}
