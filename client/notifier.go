package client

import (
	"context"
	"errors"

	"go-cartshop/logger"
)

// Notifier surfaces outcomes to the user. Notify is a transient notice;
// Alert is one the user has to acknowledge.
type Notifier interface {
	Notify(msg string)
	Alert(msg string)
}

// LogNotifier writes notices to a structured logger. It is the default for
// hosts without a UI.
type LogNotifier struct {
	Log *logger.Logger
}

func (n LogNotifier) Notify(msg string) {
	if n.Log == nil {
		return
	}
	n.Log.Info(n.Log.WithField(context.Background(), "notice", msg), "cart.notice")
}

func (n LogNotifier) Alert(msg string) {
	if n.Log == nil {
		return
	}
	n.Log.Warn(context.Background(), "cart.alert", errors.New(msg))
}
