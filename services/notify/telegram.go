package notifysvc

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"github.com/neussi/comsas-uy1.com/core"
)

// sender is the part of *tgbotapi.BotAPI we use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type telegramNotifier struct {
	bot    sender
	chatID int64
	logger core.Logger
}

var _ core.Notifier = (*telegramNotifier)(nil)

// NewTelegramNotifier posts announcements to the bureau's Telegram group.
func NewTelegramNotifier(conf *core.Config, logger core.Logger) (core.Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(conf.Telegram.Token)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to telegram")
	}
	bot.Debug = conf.Debug
	logger.Info("telegram notifier authorized as @" + bot.Self.UserName)
	return &telegramNotifier{bot: bot, chatID: conf.Telegram.ChatID, logger: logger}, nil
}

func (n *telegramNotifier) Notify(text string) {
	go n.send(text)
}

func (n *telegramNotifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error("sending telegram notification", errors.Wrap(err, "sending telegram message"))
	}
}
