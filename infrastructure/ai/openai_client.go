package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cartbot/domain/entities"
	"cartbot/domain/interfaces"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
)

const intentInstruction = `You extract structured actions from natural language. Given a command like "Search headphones on Amazon", return:
{
  "website": "https://www.amazon.com",
  "search": "headphones"
}`

// DefaultModel is used when no model is configured
const DefaultModel = "gpt-3.5-turbo"

const (
	intentTemperature     = 0.2
	classifierTemperature = 0
)

var _ interfaces.Classifier = (*OpenAIClient)(nil)

// OpenAIClient is the text-completion adapter
type OpenAIClient struct {
	client  openai.Client
	model   string
	timeout time.Duration
	logger  *logrus.Logger
}

// Options configures the client
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	// Timeout bounds every completion call
	Timeout time.Duration

	// RequestOptions are appended to the client's options
	RequestOptions []option.RequestOption
}

func NewOpenAIClient(opts Options, logger *logrus.Logger) (*OpenAIClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	reqOpts = append(reqOpts, opts.RequestOptions...)

	return &OpenAIClient{
		client:  openai.NewClient(reqOpts...),
		model:   opts.Model,
		timeout: opts.Timeout,
		logger:  logger,
	}, nil
}

// ParseIntent turns a free-text command into an Intent
func (c *OpenAIClient) ParseIntent(ctx context.Context, command string) (entities.Intent, error) {
	content, err := c.complete(ctx, intentTemperature,
		openai.SystemMessage(intentInstruction),
		openai.UserMessage(command),
	)
	if err != nil {
		return entities.Intent{}, fmt.Errorf("intent completion failed: %w", err)
	}

	intent, err := entities.ParseIntent(content)
	if err != nil {
		c.logger.Debugf("unparseable intent response: %s", content)
		return entities.Intent{}, err
	}
	c.logger.Infof("Parsed intent: website=%s search=%q", intent.Website, intent.Search)
	return intent, nil
}

// ClassifySearchField returns the raw yes/no verdict for text found near an input
func (c *OpenAIClient) ClassifySearchField(ctx context.Context, nearbyText string) (string, error) {
	prompt := fmt.Sprintf("Text near input: \"%s\"\nIs this a search bar on a shopping site? Reply yes or no.", nearbyText)
	content, err := c.complete(ctx, classifierTemperature, openai.UserMessage(prompt))
	if err != nil {
		return "", fmt.Errorf("search field classification failed: %w", err)
	}
	return strings.TrimSpace(content), nil
}

func (c *OpenAIClient) complete(ctx context.Context, temperature float64, messages ...openai.ChatCompletionMessageParamUnion) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from API")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
