package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/central-university-dev/go-WebMonitor/internal/common/httputil"
	"github.com/central-university-dev/go-WebMonitor/internal/config"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/go-resty/resty/v2"
)

const defaultChangeType = "content_update"

var knownChangeTypes = map[string]struct{}{
	"new_post":       {},
	"price_change":   {},
	"new_release":    {},
	"new_job":        {},
	"new_deal":       {},
	"content_update": {},
	"new_feature":    {},
}

type ChangeSummarizer interface {
	SummarizeChanges(ctx context.Context, resource *models.Resource, previous, current string) (*models.SummaryResult, error)
}

// SummarizerClient описывает изменения между двумя снимками через
// chat-completions совместимый API.
type SummarizerClient struct {
	client     *resty.Client
	apiURL     string
	apiKey     string
	model      string
	contentCap int
	logger     *slog.Logger
}

func NewSummarizerClient(cfg *config.Config, logger *slog.Logger) *SummarizerClient {
	client := httputil.CreateResilientHTTPClient(cfg, logger, "summarizer")

	return &SummarizerClient{
		client:     client,
		apiURL:     cfg.SummarizerAPIURL,
		apiKey:     cfg.SummarizerAPIKey,
		model:      cfg.SummarizerModel,
		contentCap: cfg.SummarizerContentCap,
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *SummarizerClient) SummarizeChanges(
	ctx context.Context,
	resource *models.Resource,
	previous, current string,
) (*models.SummaryResult, error) {
	prompt := c.buildPrompt(resource, previous, current)

	request := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json")

	if c.apiKey != "" {
		request.SetHeader("Authorization", "Bearer "+c.apiKey)
	}

	var completion chatCompletionResponse

	resp, err := request.
		SetBody(&chatCompletionRequest{
			Model:    c.model,
			Messages: []chatMessage{{Role: "user", Content: prompt}},
		}).
		SetResult(&completion).
		Post(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе к сервису суммаризации: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("сервис суммаризации вернул статус: %d", resp.StatusCode())
	}

	if len(completion.Choices) == 0 {
		return nil, &errors.ErrMalformedSummary{Raw: string(resp.Body())}
	}

	return parseSummaryResponse(completion.Choices[0].Message.Content)
}

func (c *SummarizerClient) buildPrompt(resource *models.Resource, previous, current string) string {
	return fmt.Sprintf(
		"Compare the OLD and NEW versions of the page '%s' (type: %s). "+
			"Summarize what changed in 1-2 sentences.\n\n"+
			"Classify the change_type as ONE of: new_post, price_change, "+
			"new_release, new_job, new_deal, content_update, new_feature.\n\n"+
			"Respond with ONLY valid JSON, no markdown fences:\n"+
			`{"summary": "...", "change_type": "..."}`+"\n\n"+
			"--- OLD ---\n%s\n\n--- NEW ---\n%s",
		resource.Name,
		resource.Type,
		capContent(previous, c.contentCap),
		capContent(current, c.contentCap),
	)
}

// capContent обрезает содержимое до лимита, отступая назад до границы руны,
// чтобы не разрезать многобайтовый символ.
func capContent(content string, limit int) string {
	if limit <= 0 || len(content) <= limit {
		return content
	}

	for limit > 0 && !utf8.RuneStart(content[limit]) {
		limit--
	}

	return content[:limit]
}

// parseSummaryResponse разбирает ответ модели. Обёртка из markdown-ограждений
// снимается, неизвестный change_type заменяется на content_update.
func parseSummaryResponse(raw string) (*models.SummaryResult, error) {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		} else {
			text = text[3:]
		}

		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	var result models.SummaryResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, &errors.ErrMalformedSummary{Raw: raw}
	}

	if result.Summary == "" {
		return nil, &errors.ErrMalformedSummary{Raw: raw}
	}

	if _, known := knownChangeTypes[result.ChangeType]; !known {
		result.ChangeType = defaultChangeType
	}

	return &result, nil
}
