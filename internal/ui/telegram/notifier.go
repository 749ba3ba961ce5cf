package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/AntarcBall/every-archive/internal/core/domain"
	"github.com/AntarcBall/every-archive/internal/core/ports"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier는 신규 글을 텔레그램 채팅으로 밀어주는 선택적 구성요소입니다.
// 전송 실패는 호출자가 기록만 하고 무시합니다.
type Notifier struct {
	Bot    *tgbotapi.BotAPI
	ChatID int64
}

func NewNotifier(token, chatIDStr string) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id: %v", err)
	}

	return &Notifier{Bot: bot, ChatID: chatID}, nil
}

var _ ports.Notifier = (*Notifier)(nil)

func (n *Notifier) NotifyNewPost(ctx context.Context, a domain.Article) error {
	text := fmt.Sprintf("📌 새 글: %s\n\n%s", a.Title, truncate(a.Text, 500))
	msg := tgbotapi.NewMessage(n.ChatID, text)
	_, err := n.Bot.Send(msg)
	return err
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
