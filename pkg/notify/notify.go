// Package notify delivers short text messages to chat users.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/quatton/podium/pkg/plog"
)

// Notifier sends text to the chat of userID.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// Log writes messages to the logger instead of delivering them.
type Log struct {
	logger *plog.Logger
}

func NewLog(logger *plog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, userID int64, text string) error {
	l.logger.Info("notification", "user_id", userID, "text", text)
	return nil
}

// Async sends in the background. Notify never blocks and never fails;
// delivery errors are logged.
type Async struct {
	next    Notifier
	logger  *plog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsync(next Notifier, timeout time.Duration, logger *plog.Logger) *Async {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = plog.NewDiscard()
	}
	return &Async{next: next, logger: logger, timeout: timeout}
}

func (a *Async) Notify(ctx context.Context, userID int64, text string) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		if err := a.next.Notify(sendCtx, userID, text); err != nil {
			a.logger.Warn("notification failed", "user_id", userID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until in-flight notifications finish.
func (a *Async) Wait() {
	a.wg.Wait()
}
