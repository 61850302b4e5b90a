package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytpod/internal/shared"
)

// ErrorTitle is the title of every error notification.
const ErrorTitle = "An error occurred"

// Notifier shows a short notice to the user (a toast in the TUI, a stderr line in the CLI).
type Notifier interface {
	Notify(title, description string)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(title, description string)

func (f NotifierFunc) Notify(title, description string) { f(title, description) }

// WriterNotifier prints notices as "title: description" lines.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Notify(title, description string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "%s: %s\n", title, description)
}

// IsExpectedCancellation reports whether err comes from a cancelled or superseded request.
func IsExpectedCancellation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, shared.ErrAutocancelled) {
		return true
	}
	return strings.Contains(err.Error(), "autocancelled")
}

// ErrorHandler is the single place failed operations are reported.
type ErrorHandler struct {
	notifier Notifier
	logger   *log.Logger
}

// NewErrorHandler creates a handler. A nil notifier only logs; a nil logger discards.
func NewErrorHandler(n Notifier, logger *log.Logger) *ErrorHandler {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &ErrorHandler{notifier: n, logger: logger}
}

// Handle reports err once and returns it unchanged. Expected cancellations are not reported.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil || h == nil || IsExpectedCancellation(err) {
		return err
	}

	h.logger.Error("operation failed", "error", err)
	if h.notifier != nil {
		h.notifier.Notify(ErrorTitle, err.Error())
	}
	return err
}
