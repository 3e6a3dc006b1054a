package notify

import (
	"fmt"
	"strings"

	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
)

// Иконки по типу изменения для сообщений дайджеста.
var changeIcons = map[string]string{
	"new_post":       "\U0001f4dd",
	"price_change":   "\U0001f4b0",
	"new_release":    "\U0001f504",
	"new_job":        "\U0001f465",
	"new_deal":       "\U0001f91d",
	"content_update": "\U0001f4c4",
	"new_feature":    "✨",
}

const defaultIcon = "\U0001f4c4"

// ChangeIcon возвращает иконку для типа изменения.
func ChangeIcon(changeType string) string {
	if icon, ok := changeIcons[changeType]; ok {
		return icon
	}

	return defaultIcon
}

// FormatDigestMessage собирает человекочитаемое сообщение по списку дайджестов.
// Формат HTML-совместимый: telegram отправляет его с parse_mode=HTML, webhook
// получает тот же текст.
func FormatDigestMessage(digests []*models.Digest, runLabel string) string {
	if len(digests) == 0 {
		return fmt.Sprintf("\U0001f50d %s: No changes detected.", runLabel)
	}

	lines := make([]string, 0, len(digests)+1)
	lines = append(lines, fmt.Sprintf("\U0001f50d %s: %d change(s) found\n", runLabel, len(digests)))

	for _, digest := range digests {
		icon := ChangeIcon(digest.ChangeType)

		name := digest.ResourceName
		if name == "" {
			name = "Unknown"
		}

		lines = append(lines, fmt.Sprintf("%s <b>%s</b>: %s", icon, name, digest.Summary))
	}

	return strings.Join(lines, "\n")
}
