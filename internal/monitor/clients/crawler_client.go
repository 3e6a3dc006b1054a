package clients

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/central-university-dev/go-WebMonitor/internal/common/httputil"
	"github.com/central-university-dev/go-WebMonitor/internal/config"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/go-resty/resty/v2"
	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

type ContentFetcher interface {
	FetchContent(ctx context.Context, resource *models.Resource) (string, error)
}

// CrawlerClient скачивает ресурс и приводит его содержимое к нормализованному
// markdown. RSS и Atom ленты разворачиваются в список записей, у HTML страниц
// извлекается основное содержимое.
type CrawlerClient struct {
	client     *resty.Client
	converter  *md.Converter
	feedParser *gofeed.Parser
	logger     *slog.Logger
}

func NewCrawlerClient(cfg *config.Config, logger *slog.Logger) *CrawlerClient {
	client := httputil.CreateResilientHTTPClient(cfg, logger, "crawler")

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &CrawlerClient{
		client:     client,
		converter:  converter,
		feedParser: gofeed.NewParser(),
		logger:     logger,
	}
}

func (c *CrawlerClient) FetchContent(ctx context.Context, resource *models.Resource) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml,*/*").
		Get(resource.URL)
	if err != nil {
		return "", &errors.ErrFetchFailed{URL: resource.URL, Cause: err}
	}

	if !resp.IsSuccess() {
		return "", &errors.ErrFetchFailed{URL: resource.URL, Cause: &errors.HTTPError{StatusCode: resp.StatusCode()}}
	}

	body := resp.Body()
	contentType := resp.Header().Get("Content-Type")

	if looksLikeFeed(contentType, body) {
		content, err := c.renderFeed(body)
		if err == nil {
			return content, nil
		}

		c.logger.Warn("Не удалось разобрать ленту, содержимое обрабатывается как HTML",
			"url", resource.URL,
			"error", err,
		)
	}

	return c.renderHTML(resource.URL, body), nil
}

func looksLikeFeed(contentType string, body []byte) bool {
	if strings.Contains(contentType, "rss") ||
		strings.Contains(contentType, "atom") ||
		strings.Contains(contentType, "xml") {
		return true
	}

	head := bytes.TrimSpace(body)
	if len(head) > 256 {
		head = head[:256]
	}

	return bytes.Contains(head, []byte("<rss")) || bytes.Contains(head, []byte("<feed"))
}

// renderFeed превращает ленту в markdown. Порядок записей сохраняется как в
// ленте, одинаковая лента даёт одинаковый хеш.
func (c *CrawlerClient) renderFeed(body []byte) (string, error) {
	feed, err := c.feedParser.Parse(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString("# " + strings.TrimSpace(feed.Title) + "\n")

	for _, item := range feed.Items {
		sb.WriteString("\n## " + strings.TrimSpace(item.Title) + "\n")

		if item.Link != "" {
			sb.WriteString(item.Link + "\n")
		}

		if desc := strings.TrimSpace(item.Description); desc != "" {
			plain, err := c.converter.ConvertString(desc)
			if err == nil {
				desc = plain
			}

			sb.WriteString(strings.TrimSpace(desc) + "\n")
		}
	}

	return normalizeMarkdown(sb.String()), nil
}

func (c *CrawlerClient) renderHTML(pageURL string, body []byte) string {
	source := string(body)

	parsedURL, err := url.Parse(pageURL)
	if err == nil {
		article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
		if err == nil && strings.TrimSpace(article.Content) != "" {
			source = article.Content

			if title := strings.TrimSpace(article.Title); title != "" {
				source = "<h1>" + title + "</h1>\n" + source
			}
		}
	}

	markdown, err := c.converter.ConvertString(source)
	if err != nil {
		c.logger.Warn("Не удалось преобразовать HTML в markdown, извлекается плоский текст",
			"url", pageURL,
			"error", err,
		)

		markdown = extractPlainText([]byte(source))
		if markdown == "" {
			markdown = source
		}
	}

	return normalizeMarkdown(markdown)
}

// extractPlainText собирает текстовые узлы документа, пропуская script и
// style. Запасной вариант, когда конвертация в markdown не удалась.
func extractPlainText(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var sb strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				sb.WriteString(text)
				sb.WriteString("\n")
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return sb.String()
}

func normalizeMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
