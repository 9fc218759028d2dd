package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"cardfill/internal/core"
	"cardfill/internal/log"
	"cardfill/internal/report"
	"cardfill/internal/services"
	"cardfill/internal/storage/memory"
	"cardfill/internal/telegram"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	groupChat   int64 = -100
	privateChat int64 = 7
)

var (
	minorUser = telegram.User{ID: 1, FirstName: "Min", Username: "minor"}
	majorUser = telegram.User{ID: 2, FirstName: "Maj", Username: "major"}
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []telegram.SendMessageParams
	answered []string
	sendErr  error
}

func (f *fakeSender) SendMessage(_ context.Context, p telegram.SendMessageParams) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, p)
	return &telegram.Message{MessageID: int64(len(f.sent)), Chat: telegram.Chat{ID: p.ChatID}, Text: p.Text}, nil
}

func (f *fakeSender) AnswerCallbackQuery(_ context.Context, id, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, id)
	return nil
}

func (f *fakeSender) last(t *testing.T) telegram.SendMessageParams {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func newTestBot(t *testing.T) (*Bot, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	return New(newTestService(t), sender, log.New(log.Config{Output: io.Discard})), sender
}

func newTestService(t *testing.T) Service {
	t.Helper()
	store := memory.New(
		core.Category{Code: "FOOD", Name: "Еда", Aliases: []string{"mcdonalds"}, Proportion: decimal.RequireFromString("0.5")},
		core.Category{Code: "RENT", Name: "Аренда", Proportion: decimal.NewFromInt(1)},
	)
	store.AddScope(core.FillScope{ID: 1, Type: core.ScopeGroup, ChatID: groupChat})
	store.AddScope(core.FillScope{ID: 2, Type: core.ScopePrivate, ChatID: privateChat})

	clock := func() time.Time { return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC) }
	return services.NewFillService(store, report.Contributors{MinorUserID: minorUser.ID, MajorUserID: majorUser.ID},
		services.WithClock(clock))
}

// failingService overrides selected operations of a working service.
type failingService struct {
	Service
	reassignErr error
	yearlyErr   error
}

func (f failingService) ReassignCategory(ctx context.Context, fillID int64, code string) (core.StoredFill, error) {
	if f.reassignErr != nil {
		return core.StoredFill{}, f.reassignErr
	}
	return f.Service.ReassignCategory(ctx, fillID, code)
}

func (f failingService) YearlyReport(ctx context.Context, year int, scope core.FillScope) (core.SummaryOverPeriod, error) {
	if f.yearlyErr != nil {
		return core.SummaryOverPeriod{}, f.yearlyErr
	}
	return f.Service.YearlyReport(ctx, year, scope)
}

var updateSeq int64

func textUpdate(chatID int64, from telegram.User, text string) telegram.Update {
	updateSeq++
	return telegram.Update{
		UpdateID: updateSeq,
		Message: &telegram.Message{
			MessageID: updateSeq,
			From:      &from,
			Chat:      chatFor(chatID),
			Text:      text,
		},
	}
}

func chatFor(chatID int64) telegram.Chat {
	if chatID > 0 {
		return telegram.Chat{ID: chatID, Type: telegram.ChatTypePrivate}
	}
	return telegram.Chat{ID: chatID, Type: "group"}
}

func replyUpdate(chatID int64, from telegram.User, text, repliedTo string) telegram.Update {
	u := textUpdate(chatID, from, text)
	u.Message.ReplyToMessage = &telegram.Message{Chat: telegram.Chat{ID: chatID}, Text: repliedTo}
	return u
}

func callbackUpdate(chatID int64, from telegram.User, data string) telegram.Update {
	updateSeq++
	return telegram.Update{
		UpdateID: updateSeq,
		CallbackQuery: &telegram.CallbackQuery{
			ID:      fmt.Sprintf("cb%d", updateSeq),
			From:    from,
			Message: &telegram.Message{Chat: chatFor(chatID)},
			Data:    data,
		},
	}
}

func buttonData(kb *telegram.InlineKeyboard) []string {
	if kb == nil {
		return nil
	}
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			out = append(out, b.CallbackData)
		}
	}
	return out
}

func TestRecordFill(t *testing.T) {
	b, sender := newTestBot(t)
	require.NoError(t, b.HandleUpdate(context.Background(), textUpdate(groupChat, minorUser, "300 mcdonalds lunch")))

	msg := sender.last(t)
	assert.Equal(t, groupChat, msg.ChatID)
	assert.Equal(t, "Принято 300р. от @minor: mcdonalds lunch, категория: Еда.", msg.Text)
	assert.Equal(t, []string{"show_category1"}, buttonData(msg.ReplyMarkup))
}

func TestRecordFillWithoutDescription(t *testing.T) {
	b, sender := newTestBot(t)
	require.NoError(t, b.HandleUpdate(context.Background(), textUpdate(groupChat, majorUser, "1,250.50")))
	assert.Equal(t, "Принято 1250.5р. от @major, категория: Прочее.", sender.last(t).Text)
}

func TestUnconfiguredChat(t *testing.T) {
	b, sender := newTestBot(t)
	require.NoError(t, b.HandleUpdate(context.Background(), textUpdate(999, minorUser, "100 taxi")))
	assert.Equal(t, scopeMissingText, sender.last(t).Text)
}

func TestIgnoredText(t *testing.T) {
	b, sender := newTestBot(t)
	require.NoError(t, b.HandleUpdate(context.Background(), textUpdate(groupChat, minorUser, "hello there")))
	require.NoError(t, b.HandleUpdate(context.Background(), textUpdate(groupChat, minorUser, "1 and 2")))
	assert.Empty(t, sender.sent)
}

func TestUnparsedTextInPrivateChat(t *testing.T) {
	b, sender := newTestBot(t)
	require.NoError(t, b.HandleUpdate(context.Background(), textUpdate(privateChat, minorUser, "hello there")))

	msg := sender.last(t)
	assert.Equal(t, privateChat, msg.ChatID)
	assert.Equal(t, parseMissText, msg.Text)
}

func TestRecordFillInvalidAmount(t *testing.T) {
	b, sender := newTestBot(t)
	err := b.HandleUpdate(context.Background(), textUpdate(groupChat, minorUser, "0.004 taxi"))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	require.Len(t, sender.sent, 1, "failure reported exactly once")
	assert.Equal(t, badAmountText, sender.sent[0].Text)
}

func TestMonthSelection(t *testing.T) {
	b, sender := newTestBot(t)
	require.NoError(t, b.HandleUpdate(context.Background(), textUpdate(groupChat, minorUser, "апрель март")))

	msg := sender.last(t)
	assert.Equal(t, "Выбраны месяцы: Март, Апрель. Какая информация интересует?", msg.Text)
	assert.Equal(t, []string{"my3,4", "stat3,4", "year", "total"}, buttonData(msg.ReplyMarkup))
}

func TestShowAndChangeCategory(t *testing.T) {
	b, sender := newTestBot(t)
	ctx := context.Background()
	require.NoError(t, b.HandleUpdate(ctx, textUpdate(groupChat, majorUser, "900 rent")))
	assert.Contains(t, sender.last(t).Text, "категория: Прочее.")

	cb := callbackUpdate(groupChat, majorUser, "show_category1")
	require.NoError(t, b.HandleUpdate(ctx, cb))
	msg := sender.last(t)
	assert.Equal(t, "Выберите категорию для пополнения 900р. (rent)", msg.Text)
	data := buttonData(msg.ReplyMarkup)
	assert.Contains(t, data, "change_categoryRENT/1")
	assert.Contains(t, data, "change_categoryOTHER/1")
	assert.Equal(t, "new_category1", data[len(data)-1])

	require.NoError(t, b.HandleUpdate(ctx, callbackUpdate(groupChat, majorUser, "change_categoryRENT/1")))
	assert.Equal(t, `Категория пополнения 900р. (rent) изменена на "Аренда".`, sender.last(t).Text)

	require.NoError(t, b.HandleUpdate(ctx, textUpdate(groupChat, majorUser, "rent 100")))
	assert.Contains(t, sender.last(t).Text, "категория: Аренда.")

	assert.Len(t, sender.answered, 2)
}

func TestChangeCategoryUnknownCode(t *testing.T) {
	b, sender := newTestBot(t)
	ctx := context.Background()
	require.NoError(t, b.HandleUpdate(ctx, textUpdate(groupChat, majorUser, "900 rent")))

	err := b.HandleUpdate(ctx, callbackUpdate(groupChat, majorUser, "change_categoryNOPE/1"))
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Len(t, sender.answered, 1, "callback answered even on failure")
	assert.Equal(t, notFoundText, sender.last(t).Text)
}

func TestCallbackFailureReplies(t *testing.T) {
	tests := []struct {
		name     string
		svc      func(Service) Service
		data     string
		wantErr  error
		wantText string
	}{
		{
			name:     "reassign not found",
			svc:      func(s Service) Service { return failingService{Service: s, reassignErr: core.ErrNotFound} },
			data:     "change_categoryRENT/42",
			wantErr:  core.ErrNotFound,
			wantText: notFoundText,
		},
		{
			name:     "report backend failure",
			svc:      func(s Service) Service { return failingService{Service: s, yearlyErr: io.ErrUnexpectedEOF} },
			data:     "year",
			wantErr:  io.ErrUnexpectedEOF,
			wantText: requestFailedText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			b := New(tt.svc(newTestService(t)), sender, log.New(log.Config{Output: io.Discard}))

			err := b.HandleUpdate(context.Background(), callbackUpdate(groupChat, majorUser, tt.data))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, sender.answered, 1)

			msg := sender.last(t)
			assert.Equal(t, groupChat, msg.ChatID)
			assert.Equal(t, tt.wantText, msg.Text)
		})
	}
}

func TestNewCategoryFlow(t *testing.T) {
	b, sender := newTestBot(t)
	ctx := context.Background()
	require.NoError(t, b.HandleUpdate(ctx, textUpdate(groupChat, minorUser, "250 Gym")))

	require.NoError(t, b.HandleUpdate(ctx, callbackUpdate(groupChat, minorUser, "new_category1")))
	prompt := sender.last(t).Text
	assert.True(t, strings.HasPrefix(prompt, "Создание категории для пополнения номер 1:"))

	require.NoError(t, b.HandleUpdate(ctx, replyUpdate(groupChat, minorUser, "Спорт, SPORT", prompt)))
	assert.Equal(t, badCategoryText, sender.last(t).Text)

	require.NoError(t, b.HandleUpdate(ctx, replyUpdate(groupChat, minorUser, "Спорт, SPORT, 0.25", prompt)))
	assert.Equal(t, `Категория пополнения 250р. (Gym) изменена на "Спорт".`, sender.last(t).Text)

	require.NoError(t, b.HandleUpdate(ctx, textUpdate(groupChat, majorUser, "gym 300")))
	assert.Contains(t, sender.last(t).Text, "категория: Спорт.")
}

func TestNewCategoryInvalidCode(t *testing.T) {
	b, sender := newTestBot(t)
	ctx := context.Background()
	require.NoError(t, b.HandleUpdate(ctx, textUpdate(groupChat, minorUser, "250 Gym")))
	prompt := newCategoryPrompt + "1:"

	require.NoError(t, b.HandleUpdate(ctx, replyUpdate(groupChat, minorUser, "Спорт, BAD CODE, 0.25", prompt)))
	assert.Equal(t, badCategoryText, sender.last(t).Text)
}

func TestStatReport(t *testing.T) {
	b, sender := newTestBot(t)
	ctx := context.Background()
	require.NoError(t, b.HandleUpdate(ctx, textUpdate(groupChat, minorUser, "300 mcdonalds")))
	require.NoError(t, b.HandleUpdate(ctx, textUpdate(groupChat, majorUser, "900 mcdonalds")))

	require.NoError(t, b.HandleUpdate(ctx, callbackUpdate(groupChat, minorUser, "stat3")))
	msg := sender.last(t)
	assert.Equal(t, telegram.ParseModeMarkdownV2, msg.ParseMode)
	assert.Contains(t, msg.Text, "*Март 2025:*")
	assert.Contains(t, msg.Text, `@major: 900`)
	assert.Contains(t, msg.Text, `  \- Еда: 1200`)
	assert.Contains(t, msg.Text, `Пропорция: цель 0\.50, факт 0\.33`)
	assert.Equal(t, []string{"previous_year3"}, buttonData(msg.ReplyMarkup))

	require.NoError(t, b.HandleUpdate(ctx, callbackUpdate(groupChat, minorUser, "previous_year3")))
	msg = sender.last(t)
	assert.Contains(t, msg.Text, "*Март 2024:*")
	assert.Contains(t, msg.Text, `Пополнений нет\.`)
}

func TestStatReportPrivateHidesProportions(t *testing.T) {
	b, sender := newTestBot(t)
	ctx := context.Background()
	require.NoError(t, b.HandleUpdate(ctx, textUpdate(privateChat, minorUser, "300 mcdonalds")))
	require.NoError(t, b.HandleUpdate(ctx, callbackUpdate(privateChat, minorUser, "stat3")))
	assert.NotContains(t, sender.last(t).Text, "Пропорция")
}

func TestYearlyReportNotAvailable(t *testing.T) {
	b, sender := newTestBot(t)
	ctx := context.Background()
	require.NoError(t, b.HandleUpdate(ctx, textUpdate(groupChat, minorUser, "300 mcdonalds")))

	require.NoError(t, b.HandleUpdate(ctx, callbackUpdate(groupChat, minorUser, "year")))
	msg := sender.last(t)
	assert.Contains(t, msg.Text, "*2025:*")
	assert.Contains(t, msg.Text, "факт н/д", "major contributor has no spend")
	assert.Equal(t, []string{"previous_year"}, buttonData(msg.ReplyMarkup))

	require.NoError(t, b.HandleUpdate(ctx, callbackUpdate(groupChat, minorUser, "previous_year")))
	assert.Contains(t, sender.last(t).Text, "*2024:*")
}

func TestMyFills(t *testing.T) {
	b, sender := newTestBot(t)
	ctx := context.Background()
	require.NoError(t, b.HandleUpdate(ctx, textUpdate(groupChat, minorUser, "300 mcdonalds")))

	require.NoError(t, b.HandleUpdate(ctx, callbackUpdate(groupChat, minorUser, "my3")))
	msg := sender.last(t)
	assert.Equal(t, "Пополнения @minor за Март 2025:\n2025-03-10: 300 mcdonalds Еда", msg.Text)
	assert.Equal(t, []string{"fills_previous_year3"}, buttonData(msg.ReplyMarkup))

	require.NoError(t, b.HandleUpdate(ctx, callbackUpdate(groupChat, minorUser, "fills_previous_year3")))
	msg = sender.last(t)
	assert.Equal(t, "Не было пополнений в Март 2024.", msg.Text)
	assert.Nil(t, msg.ReplyMarkup)
}

func TestTotal(t *testing.T) {
	b, sender := newTestBot(t)
	ctx := context.Background()
	require.NoError(t, b.HandleUpdate(ctx, callbackUpdate(groupChat, minorUser, "total")))
	assert.Equal(t, "Пополнений пока нет.", sender.last(t).Text)

	require.NoError(t, b.HandleUpdate(ctx, textUpdate(groupChat, minorUser, "300 mcdonalds")))
	require.NoError(t, b.HandleUpdate(ctx, textUpdate(groupChat, majorUser, "900 rent")))
	require.NoError(t, b.HandleUpdate(ctx, callbackUpdate(groupChat, minorUser, "total")))
	assert.Equal(t, "@major: 900\n@minor: 300", sender.last(t).Text)
}

func TestBadCallbackData(t *testing.T) {
	b, _ := newTestBot(t)
	for _, data := range []string{"show_categoryX", "change_categoryRENT", "stat13", "my", "previous_yearfoo"} {
		assert.Error(t, b.HandleUpdate(context.Background(), callbackUpdate(groupChat, minorUser, data)), data)
	}
}

func TestSendFailureIsReturned(t *testing.T) {
	b, sender := newTestBot(t)
	sender.sendErr = errors.New("telegram down")
	err := b.HandleUpdate(context.Background(), textUpdate(groupChat, minorUser, "300 mcdonalds"))
	assert.ErrorContains(t, err, "telegram down")
}

func TestRouteOrder(t *testing.T) {
	b, _ := newTestBot(t)
	routes := b.router.Routes()
	require.GreaterOrEqual(t, len(routes), 2)
	assert.Equal(t, []string{"new_category_reply", "text"}, routes[:2])
	assert.Len(t, routes, 11)
}
