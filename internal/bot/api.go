package bot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	nberrors "github.com/gezibash/netbridge/pkg/errors"
)

// DefaultAPIURL is the public Bot API server.
const DefaultAPIURL = "https://api.telegram.org"

// API is the subset of the Bot API the worker uses. Calls may block; every
// call honours ctx.
type API interface {
	GetMe(ctx context.Context) (tgbotapi.User, error)
	GetUpdates(ctx context.Context, cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Send(ctx context.Context, c tgbotapi.Chattable) error
	GetFile(ctx context.Context, fileID string) (tgbotapi.File, error)
	LogOut(ctx context.Context) error
	// FileURL returns the download URL for a path reported by GetFile.
	FileURL(filePath string) string
}

// TelegramAPI implements API over telegram-bot-api.
type TelegramAPI struct {
	bot    *tgbotapi.BotAPI
	client *http.Client
	apiURL string
}

// NewTelegramAPI creates a client for token against apiURL (DefaultAPIURL
// when empty). No request is made until the first call. A nil client uses
// a plain http.Client; long polls are bounded by their context.
func NewTelegramAPI(token, apiURL string, client *http.Client) (*TelegramAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("invalid token: %w", nberrors.ErrInvalidInput)
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	u, err := url.Parse(apiURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q: %w", apiURL, nberrors.ErrInvalidInput)
	}
	if client == nil {
		client = &http.Client{}
	}
	apiURL = strings.TrimRight(apiURL, "/")

	bot := &tgbotapi.BotAPI{Token: token, Client: client, Buffer: 100}
	bot.SetAPIEndpoint(apiURL + "/bot%s/%s")
	return &TelegramAPI{bot: bot, client: client, apiURL: apiURL}, nil
}

type ctxDoer struct {
	ctx    context.Context
	client *http.Client
}

func (d ctxDoer) Do(req *http.Request) (*http.Response, error) {
	return d.client.Do(req.WithContext(d.ctx))
}

// with returns a shallow copy of the library client whose HTTP requests
// carry ctx. The copy shares the token and endpoint.
func (t *TelegramAPI) with(ctx context.Context) *tgbotapi.BotAPI {
	b := *t.bot
	b.Client = ctxDoer{ctx: ctx, client: t.client}
	return &b
}

func (t *TelegramAPI) GetMe(ctx context.Context) (tgbotapi.User, error) {
	return t.with(ctx).GetMe()
}

func (t *TelegramAPI) GetUpdates(ctx context.Context, cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	return t.with(ctx).GetUpdates(cfg)
}

func (t *TelegramAPI) Send(ctx context.Context, c tgbotapi.Chattable) error {
	_, err := t.with(ctx).Send(c)
	return err
}

func (t *TelegramAPI) GetFile(ctx context.Context, fileID string) (tgbotapi.File, error) {
	return t.with(ctx).GetFile(tgbotapi.FileConfig{FileID: fileID})
}

func (t *TelegramAPI) LogOut(ctx context.Context) error {
	_, err := t.with(ctx).Request(tgbotapi.LogOutConfig{})
	return err
}

func (t *TelegramAPI) FileURL(filePath string) string {
	return t.apiURL + "/file/bot" + t.bot.Token + "/" + strings.TrimLeft(filePath, "/")
}

// HTTPClient returns the client used for API calls, for file downloads.
func (t *TelegramAPI) HTTPClient() *http.Client { return t.client }
