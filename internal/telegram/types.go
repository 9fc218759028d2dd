package telegram

// ChatTypePrivate is Chat.Type for one-to-one chats with the bot.
const ChatTypePrivate = "private"

// Subset of the Bot API object model used by the bot.
type (
	Update struct {
		UpdateID      int64          `json:"update_id"`
		Message       *Message       `json:"message,omitempty"`
		CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
	}

	Message struct {
		MessageID      int64    `json:"message_id"`
		From           *User    `json:"from,omitempty"`
		Chat           Chat     `json:"chat"`
		Date           int64    `json:"date"`
		Text           string   `json:"text,omitempty"`
		ReplyToMessage *Message `json:"reply_to_message,omitempty"`
	}

	Chat struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
	}

	User struct {
		ID           int64  `json:"id"`
		IsBot        bool   `json:"is_bot"`
		FirstName    string `json:"first_name"`
		LastName     string `json:"last_name,omitempty"`
		Username     string `json:"username,omitempty"`
		LanguageCode string `json:"language_code,omitempty"`
	}

	CallbackQuery struct {
		ID      string   `json:"id"`
		From    User     `json:"from"`
		Message *Message `json:"message,omitempty"`
		Data    string   `json:"data"`
	}

	InlineKeyboard struct {
		InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
	}

	InlineButton struct {
		Text         string `json:"text"`
		CallbackData string `json:"callback_data,omitempty"`
		URL          string `json:"url,omitempty"`
	}

	WebhookInfo struct {
		URL                  string `json:"url"`
		PendingUpdateCount   int    `json:"pending_update_count"`
		LastErrorDate        int64  `json:"last_error_date,omitempty"`
		LastErrorMessage     string `json:"last_error_message,omitempty"`
		HasCustomCertificate bool   `json:"has_custom_certificate"`
	}
)

const (
	ParseModeNone       = ""
	ParseModeMarkdownV2 = "MarkdownV2"
)

// Keyboard builds a one-button-per-row inline keyboard.
func Keyboard(buttons ...InlineButton) *InlineKeyboard {
	rows := make([][]InlineButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []InlineButton{b})
	}
	return &InlineKeyboard{InlineKeyboard: rows}
}

// Button is a callback button.
func Button(text, data string) InlineButton {
	return InlineButton{Text: text, CallbackData: data}
}
