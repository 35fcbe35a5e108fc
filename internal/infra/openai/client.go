package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/claim-rag/internal/core/assessment"
)

const (
	// DefaultVisionModel は画像解析に使うデフォルトモデル
	DefaultVisionModel = "gpt-4o"

	// DefaultVisionMaxTokens は画像解析応答の最大トークン数
	DefaultVisionMaxTokens = 1000

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second
)

// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
var ErrAPIKeyNotSet = errors.New("OpenAI API key not set: please set OPENAI_API_KEY environment variable")

// Client は OpenAI の vision モデルで画像を説明させるクライアント
type Client struct {
	client    openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

type clientOptions struct {
	model     string
	maxTokens int
	timeout   time.Duration
	baseURL   string
}

// ClientOption は Client のオプション設定
type ClientOption func(*clientOptions)

// WithVisionModel はモデル名を上書きする
func WithVisionModel(model string) ClientOption {
	return func(o *clientOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithVisionMaxTokens は応答の最大トークン数を上書きする
func WithVisionMaxTokens(maxTokens int) ClientOption {
	return func(o *clientOptions) {
		if maxTokens > 0 {
			o.maxTokens = maxTokens
		}
	}
}

// WithTimeout はAPIコールのタイムアウトを上書きする
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithBaseURL は OpenAI 互換サーバーのURLを指定する
func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// NewClient は新しい Client を作成する
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := clientOptions{
		model:     DefaultVisionModel,
		maxTokens: DefaultVisionMaxTokens,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Client{
		client:    openai.NewClient(requestOptions(apiKey, options.baseURL)...),
		model:     options.model,
		maxTokens: options.maxTokens,
		timeout:   options.timeout,
	}, nil
}

// requestOptions は SDK 共通のリクエストオプションを組み立てる。
// 失敗時の再試行は呼び出し側の責務なので SDK の自動リトライは無効にする
func requestOptions(apiKey, baseURL string) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return opts
}

// ModelName はモデル名を返す
func (c *Client) ModelName() string {
	return c.model
}

// DescribeImage は画像（data URI）とプロンプトを送り、応答テキストを返す
func (c *Client) DescribeImage(ctx context.Context, imageURL, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: imageURL,
				}),
			}),
		},
		MaxTokens: openai.Int(int64(c.maxTokens)),
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", upstreamError("chat completion", err)
	}

	if len(completion.Choices) == 0 {
		return "", &assessment.MalformedResponseError{Err: errors.New("no completion choices returned")}
	}

	return completion.Choices[0].Message.Content, nil
}

// upstreamError は SDK のエラー（通信失敗・HTTPエラー応答）を ErrUpstreamUnavailable として包む
func upstreamError(op string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w (status %d): %w", op, assessment.ErrUpstreamUnavailable, apiErr.StatusCode, err)
	}
	return fmt.Errorf("%s: %w: %w", op, assessment.ErrUpstreamUnavailable, err)
}

// インターフェース実装の確認
var _ assessment.VisionClient = (*Client)(nil)
