package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cardfill/internal/core"
	"cardfill/internal/intent"
	"cardfill/internal/log"
	"cardfill/internal/telegram"

	"github.com/shopspring/decimal"
)

// Callback data prefixes. The payload follows the prefix directly.
const (
	cbShowCategory      = "show_category"
	cbChangeCategory    = "change_category"
	cbNewCategory       = "new_category"
	cbMy                = "my"
	cbFillsPreviousYear = "fills_previous_year"
	cbStat              = "stat"
	cbPreviousYear      = "previous_year"
	cbYear              = "year"
	cbTotal             = "total"
)

const (
	newCategoryPrompt = "Создание категории для пополнения номер "
	scopeMissingText  = "Этот чат не настроен для учёта пополнений."
	fillFailedText    = "Ошибка добавления пополнения."
	badAmountText     = "Некорректная сумма пополнения."
	notFoundText      = "Пополнение или категория не найдены."
	requestFailedText = "Не удалось выполнить запрос, попробуйте позже."
	parseMissText     = "Не удалось распознать сообщение. Отправьте сумму с описанием, например «500 такси», или месяцы для отчёта, например «март апрель»."
	badCategoryText   = "Не удалось создать категорию. Формат ответа: название, код, пропорция."
)

var promptFillID = regexp.MustCompile(`^` + newCategoryPrompt + `(\d+):`)

func (b *Bot) handleText(ctx context.Context, u *telegram.Update) error {
	msg := u.Message
	switch in := b.svc.ParseIntent(msg.Text).(type) {
	case intent.FillCandidate:
		return b.recordFill(ctx, msg, in)
	case intent.MonthSelection:
		return b.offerMonthReports(ctx, msg.Chat.ID, in.Months)
	default:
		// Group chats carry conversation; only private chats get the hint.
		if msg.Chat.Type != telegram.ChatTypePrivate {
			return nil
		}
		return b.reply(ctx, msg.Chat.ID, parseMissText, nil)
	}
}

func (b *Bot) recordFill(ctx context.Context, msg *telegram.Message, c intent.FillCandidate) error {
	scope, ok, err := b.scopeFor(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	from := toCoreUser(*msg.From)
	fill, err := b.svc.RecordFill(ctx, c, from, scope)
	if err != nil {
		text := fillFailedText
		if errors.Is(err, core.ErrInvalidAmount) {
			text = badAmountText
		}
		if rerr := b.reply(ctx, msg.Chat.ID, text, nil); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return &repliedError{err: err}
	}
	b.events.LogFillRecorded(ctx, msg.Chat.ID, from.ID, fill.ID, core.FormatAmount(fill.Amount), fill.Category.Code)
	return b.reply(ctx, msg.Chat.ID, acceptedText(fill, from), changeCategoryKeyboard(fill.ID))
}

func (b *Bot) offerMonthReports(ctx context.Context, chatID int64, months []time.Month) error {
	enc := encodeMonths(months)
	kb := telegram.Keyboard(
		telegram.Button("Мои пополнения", cbMy+enc),
		telegram.Button("Отчет за месяцы", cbStat+enc),
		telegram.Button("Отчет за год", cbYear),
		telegram.Button("Сумма всех пополнений", cbTotal),
	)
	text := fmt.Sprintf("Выбраны месяцы: %s. Какая информация интересует?", monthNames(months))
	return b.reply(ctx, chatID, text, kb)
}

func (b *Bot) handleShowCategory(ctx context.Context, u *telegram.Update) error {
	fillID, err := strconv.ParseInt(strings.TrimPrefix(u.CallbackQuery.Data, cbShowCategory), 10, 64)
	if err != nil {
		return fmt.Errorf("bad callback %q: %w", u.CallbackQuery.Data, err)
	}
	fill, err := b.svc.GetFill(ctx, fillID)
	if err != nil {
		return err
	}
	cats, err := b.svc.ListCategories(ctx)
	if err != nil {
		return err
	}
	buttons := make([]telegram.InlineButton, 0, len(cats)+1)
	for _, c := range cats {
		buttons = append(buttons, telegram.Button(c.Name, fmt.Sprintf("%s%s/%d", cbChangeCategory, c.Code, fillID)))
	}
	buttons = append(buttons, telegram.Button("Новая категория", fmt.Sprintf("%s%d", cbNewCategory, fillID)))

	text := "Выберите категорию для пополнения " + fillSubject(fill)
	return b.reply(ctx, u.CallbackQuery.Message.Chat.ID, text, telegram.Keyboard(buttons...))
}

func (b *Bot) handleChangeCategory(ctx context.Context, u *telegram.Update) error {
	payload := strings.TrimPrefix(u.CallbackQuery.Data, cbChangeCategory)
	code, rawID, found := strings.Cut(payload, "/")
	fillID, err := strconv.ParseInt(rawID, 10, 64)
	if !found || err != nil || code == "" {
		return fmt.Errorf("bad callback %q", u.CallbackQuery.Data)
	}
	fill, err := b.svc.ReassignCategory(ctx, fillID, code)
	if err != nil {
		return err
	}
	return b.reply(ctx, u.CallbackQuery.Message.Chat.ID, changedText(fill), changeCategoryKeyboard(fill.ID))
}

func (b *Bot) handleNewCategory(ctx context.Context, u *telegram.Update) error {
	fillID, err := strconv.ParseInt(strings.TrimPrefix(u.CallbackQuery.Data, cbNewCategory), 10, 64)
	if err != nil {
		return fmt.Errorf("bad callback %q: %w", u.CallbackQuery.Data, err)
	}
	text := fmt.Sprintf("%s%d:\nОтветьте на это сообщение: название, код, пропорция", newCategoryPrompt, fillID)
	return b.reply(ctx, u.CallbackQuery.Message.Chat.ID, text, nil)
}

func (b *Bot) handleNewCategoryReply(ctx context.Context, u *telegram.Update) error {
	msg := u.Message
	m := promptFillID.FindStringSubmatch(msg.ReplyToMessage.Text)
	name, code, proportion, perr := parseNewCategory(msg.Text)
	if m == nil || perr != nil {
		b.logger.InfoContext(ctx, "Rejected category reply",
			log.FieldChatID, msg.Chat.ID, log.FieldError, perr)
		return b.reply(ctx, msg.Chat.ID, badCategoryText, nil)
	}
	fillID, _ := strconv.ParseInt(m[1], 10, 64)

	fill, err := b.svc.CreateCategoryForFill(ctx, fillID, name, code, proportion)
	if errors.Is(err, core.ErrInvalidCategory) {
		return b.reply(ctx, msg.Chat.ID, badCategoryText, nil)
	}
	if err != nil {
		return err
	}
	return b.reply(ctx, msg.Chat.ID, changedText(fill), changeCategoryKeyboard(fill.ID))
}

// parseNewCategory splits "name, code, proportion".
func parseNewCategory(text string) (name, code string, proportion decimal.Decimal, err error) {
	parts := strings.Split(text, ",")
	if len(parts) != 3 {
		return "", "", decimal.Zero, fmt.Errorf("expected 3 comma-separated fields, got %d", len(parts))
	}
	name = strings.TrimSpace(parts[0])
	code = strings.TrimSpace(parts[1])
	proportion, err = decimal.NewFromString(strings.TrimSpace(parts[2]))
	if err != nil {
		return "", "", decimal.Zero, fmt.Errorf("proportion: %w", err)
	}
	return name, code, proportion, nil
}

func (b *Bot) handleMyFills(ctx context.Context, u *telegram.Update) error {
	return b.myFills(ctx, u, cbMy, b.svc.CurrentYear(), true)
}

func (b *Bot) handleMyFillsPreviousYear(ctx context.Context, u *telegram.Update) error {
	return b.myFills(ctx, u, cbFillsPreviousYear, b.svc.PreviousYear(), false)
}

func (b *Bot) myFills(ctx context.Context, u *telegram.Update, prefix string, year int, offerPrevious bool) error {
	cq := u.CallbackQuery
	months, err := decodeMonths(strings.TrimPrefix(cq.Data, prefix))
	if err != nil || len(months) == 0 {
		return fmt.Errorf("bad callback %q", cq.Data)
	}
	chatID := cq.Message.Chat.ID
	scope, ok, err := b.scopeFor(ctx, chatID)
	if !ok {
		return err
	}
	from := toCoreUser(cq.From)
	fills, err := b.svc.UserFills(ctx, from.ID, months, year, scope)
	if err != nil {
		return err
	}
	var kb *telegram.InlineKeyboard
	if offerPrevious {
		kb = telegram.Keyboard(telegram.Button("Предыдущий год", cbFillsPreviousYear+encodeMonths(months)))
	}
	return b.reply(ctx, chatID, userFillsText(fills, from, months, year), kb)
}

func (b *Bot) handleStat(ctx context.Context, u *telegram.Update) error {
	cq := u.CallbackQuery
	months, err := decodeMonths(strings.TrimPrefix(cq.Data, cbStat))
	if err != nil || len(months) == 0 {
		return fmt.Errorf("bad callback %q", cq.Data)
	}
	kb := telegram.Keyboard(telegram.Button("Предыдущий год", cbPreviousYear+encodeMonths(months)))
	return b.monthly(ctx, cq.Message.Chat.ID, months, b.svc.CurrentYear(), kb)
}

// handlePreviousYear serves both the monthly ("previous_year3,4") and the
// yearly ("previous_year") variants.
func (b *Bot) handlePreviousYear(ctx context.Context, u *telegram.Update) error {
	cq := u.CallbackQuery
	months, err := decodeMonths(strings.TrimPrefix(cq.Data, cbPreviousYear))
	if err != nil {
		return fmt.Errorf("bad callback %q: %w", cq.Data, err)
	}
	if len(months) == 0 {
		return b.yearly(ctx, cq.Message.Chat.ID, b.svc.PreviousYear(), nil)
	}
	return b.monthly(ctx, cq.Message.Chat.ID, months, b.svc.PreviousYear(), nil)
}

func (b *Bot) handleYear(ctx context.Context, u *telegram.Update) error {
	kb := telegram.Keyboard(telegram.Button("Предыдущий год", cbPreviousYear))
	return b.yearly(ctx, u.CallbackQuery.Message.Chat.ID, b.svc.CurrentYear(), kb)
}

func (b *Bot) handleTotal(ctx context.Context, u *telegram.Update) error {
	chatID := u.CallbackQuery.Message.Chat.ID
	scope, ok, err := b.scopeFor(ctx, chatID)
	if !ok {
		return err
	}
	totals, err := b.svc.TotalReport(ctx, scope)
	if err != nil {
		return err
	}
	return b.reply(ctx, chatID, totalText(totals), nil)
}

func (b *Bot) monthly(ctx context.Context, chatID int64, months []time.Month, year int, kb *telegram.InlineKeyboard) error {
	scope, ok, err := b.scopeFor(ctx, chatID)
	if !ok {
		return err
	}
	report, err := b.svc.MonthlyReport(ctx, months, year, scope)
	if err != nil {
		return err
	}
	return b.replyMarkdown(ctx, chatID, monthlyText(report, months, year, scope), kb)
}

func (b *Bot) yearly(ctx context.Context, chatID int64, year int, kb *telegram.InlineKeyboard) error {
	scope, ok, err := b.scopeFor(ctx, chatID)
	if !ok {
		return err
	}
	s, err := b.svc.YearlyReport(ctx, year, scope)
	if err != nil {
		return err
	}
	return b.replyMarkdown(ctx, chatID, summaryText(strconv.Itoa(year), s, scope), kb)
}

func changeCategoryKeyboard(fillID int64) *telegram.InlineKeyboard {
	return telegram.Keyboard(telegram.Button("Сменить категорию", fmt.Sprintf("%s%d", cbShowCategory, fillID)))
}
