package core

// Logger is implemented by services/logger. Extra args are errors, maps or the acting user.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Notifier broadcasts short announcements to the club bureau (e.g. a Telegram group).
type Notifier interface {
	// Notify sends text asynchronously; delivery errors are logged, not returned.
	Notify(text string)
}
