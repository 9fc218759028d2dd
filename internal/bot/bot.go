// Package bot turns Telegram updates into fill operations and renders the
// replies.
package bot

import (
	"context"
	"errors"
	"time"

	"cardfill/internal/core"
	"cardfill/internal/intent"
	"cardfill/internal/log"
	"cardfill/internal/telegram"

	"github.com/shopspring/decimal"
)

// Service is the fill facade the bot drives.
type Service interface {
	ParseIntent(text string) intent.Intent
	ResolveScope(ctx context.Context, chatID int64) (core.FillScope, error)
	RecordFill(ctx context.Context, c intent.FillCandidate, user core.User, scope core.FillScope) (core.StoredFill, error)
	GetFill(ctx context.Context, id int64) (core.StoredFill, error)
	ReassignCategory(ctx context.Context, fillID int64, code string) (core.StoredFill, error)
	CreateCategoryForFill(ctx context.Context, fillID int64, name, code string, proportion decimal.Decimal) (core.StoredFill, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	UserFills(ctx context.Context, userID int64, months []time.Month, year int, scope core.FillScope) ([]core.StoredFill, error)
	MonthlyReport(ctx context.Context, months []time.Month, year int, scope core.FillScope) (map[time.Month]core.SummaryOverPeriod, error)
	YearlyReport(ctx context.Context, year int, scope core.FillScope) (core.SummaryOverPeriod, error)
	TotalReport(ctx context.Context, scope core.FillScope) ([]core.UserAmount, error)
	CurrentYear() int
	PreviousYear() int
}

// Sender is the part of the Bot API client used for replies.
type Sender interface {
	SendMessage(ctx context.Context, p telegram.SendMessageParams) (*telegram.Message, error)
	AnswerCallbackQuery(ctx context.Context, id, text string) error
}

type Bot struct {
	svc    Service
	tg     Sender
	logger *log.Logger
	events *log.StructuredLogger
	router *Router
}

func New(svc Service, tg Sender, logger *log.Logger) *Bot {
	b := &Bot{
		svc:    svc,
		tg:     tg,
		logger: logger.WithComponent(log.ComponentBot),
		events: log.NewStructuredLogger(logger),
	}
	b.router = b.routes()
	return b
}

// routes is the complete dispatch table. Order matters: a reply to the
// category prompt must win over the generic text route.
func (b *Bot) routes() *Router {
	r := &Router{}
	r.Handle("new_category_reply", isReplyTo(newCategoryPrompt), b.handleNewCategoryReply)
	r.Handle("text", isText, b.handleText)
	r.Handle(cbShowCategory, isCallback(cbShowCategory), b.handleShowCategory)
	r.Handle(cbChangeCategory, isCallback(cbChangeCategory), b.handleChangeCategory)
	r.Handle(cbNewCategory, isCallback(cbNewCategory), b.handleNewCategory)
	r.Handle(cbFillsPreviousYear, isCallback(cbFillsPreviousYear), b.handleMyFillsPreviousYear)
	r.Handle(cbMy, isCallback(cbMy), b.handleMyFills)
	r.Handle(cbPreviousYear, isCallback(cbPreviousYear), b.handlePreviousYear)
	r.Handle(cbStat, isCallback(cbStat), b.handleStat)
	r.Handle(cbYear, isCallbackExact(cbYear), b.handleYear)
	r.Handle(cbTotal, isCallbackExact(cbTotal), b.handleTotal)
	return r
}

// HandleUpdate processes one update synchronously. Callback queries are
// always answered, even when the handler fails.
func (b *Bot) HandleUpdate(ctx context.Context, u telegram.Update) error {
	route, err := b.router.Dispatch(ctx, &u)

	if cq := u.CallbackQuery; cq != nil {
		if aerr := b.tg.AnswerCallbackQuery(ctx, cq.ID, ""); aerr != nil {
			b.logger.WarnContext(ctx, "Failed to answer callback",
				log.FieldUpdateID, u.UpdateID, log.FieldError, aerr)
		}
	}

	if route == "" {
		b.logger.DebugContext(ctx, "Update ignored", log.FieldUpdateID, u.UpdateID)
		return nil
	}
	if err != nil {
		b.events.LogError(ctx, "Update handling failed", err, log.ComponentBot, route,
			log.NewFields().With(log.FieldUpdateID, u.UpdateID))
		var replied *repliedError
		if chatID, ok := chatOf(&u); ok && !errors.As(err, &replied) {
			if rerr := b.reply(ctx, chatID, failureText(err), nil); rerr != nil {
				b.logger.WarnContext(ctx, "Failed to report failure",
					log.FieldUpdateID, u.UpdateID, log.FieldError, rerr)
			}
		}
		return err
	}
	return nil
}

// repliedError marks a handler error the chat has already been told about.
type repliedError struct {
	err error
}

func (e *repliedError) Error() string { return e.err.Error() }
func (e *repliedError) Unwrap() error { return e.err }

func failureText(err error) string {
	if errors.Is(err, core.ErrNotFound) {
		return notFoundText
	}
	return requestFailedText
}

func chatOf(u *telegram.Update) (int64, bool) {
	switch {
	case u.Message != nil:
		return u.Message.Chat.ID, true
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		return u.CallbackQuery.Message.Chat.ID, true
	}
	return 0, false
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string, kb *telegram.InlineKeyboard) error {
	_, err := b.tg.SendMessage(ctx, telegram.SendMessageParams{ChatID: chatID, Text: text, ReplyMarkup: kb})
	return err
}

func (b *Bot) replyMarkdown(ctx context.Context, chatID int64, text string, kb *telegram.InlineKeyboard) error {
	_, err := b.tg.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   telegram.ParseModeMarkdownV2,
		ReplyMarkup: kb,
	})
	return err
}

// scopeFor resolves the chat's scope. Unconfigured chats get a notice and
// ok=false with a nil error.
func (b *Bot) scopeFor(ctx context.Context, chatID int64) (core.FillScope, bool, error) {
	scope, err := b.svc.ResolveScope(ctx, chatID)
	if errors.Is(err, core.ErrScopeNotConfigured) {
		b.logger.InfoContext(ctx, "Chat has no fill scope", log.FieldChatID, chatID)
		return core.FillScope{}, false, b.reply(ctx, chatID, scopeMissingText, nil)
	}
	if err != nil {
		return core.FillScope{}, false, err
	}
	return scope, true, nil
}

func toCoreUser(u telegram.User) core.User {
	return core.User{
		ID:           u.ID,
		IsBot:        u.IsBot,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.Username,
		LanguageCode: u.LanguageCode,
	}
}
