package notifysvc

import (
	"sync"

	"github.com/neussi/comsas-uy1.com/core"
)

type consoleNotifier struct {
	logger core.Logger
}

// NewConsoleNotifier logs announcements; used when no Telegram bot is configured.
func NewConsoleNotifier(logger core.Logger) core.Notifier {
	return &consoleNotifier{logger: logger}
}

func (n *consoleNotifier) Notify(text string) {
	n.logger.Info("notification: " + text)
}

// NotifierMock records notifications synchronously.
type NotifierMock struct {
	mu    sync.Mutex
	texts []string
}

var _ core.Notifier = (*NotifierMock)(nil)

func NewNotifierMock() *NotifierMock {
	return &NotifierMock{}
}

func (n *NotifierMock) Notify(text string) {
	n.mu.Lock()
	n.texts = append(n.texts, text)
	n.mu.Unlock()
}

func (n *NotifierMock) Texts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.texts...)
}

// New picks the Telegram notifier when a bot token is configured, the console one otherwise.
func New(conf *core.Config, logger core.Logger) (core.Notifier, error) {
	if conf.TestMode {
		return NewNotifierMock(), nil
	}
	if conf.Telegram.Token == "" {
		return NewConsoleNotifier(logger), nil
	}
	return NewTelegramNotifier(conf, logger)
}
