// Package notify delivers completion notifications for long-running
// exchanges. Delivery is best effort: the conversation result is already
// persisted by the time a notifier runs, so a failed notification is
// logged and dropped.
package notify

import (
	"fmt"
	"os/exec"
	"runtime"

	"chathub/chat"
	"chathub/config"
)

// Notifier announces that a conversation finished producing an answer.
//
// Callers must check Available before calling Completed: a notifier built
// for a channel the host does not have reports itself unavailable rather
// than failing on every call.
type Notifier interface {
	// Available reports whether this notifier can deliver on this host.
	Available() bool

	// Completed announces the finished exchange. summary is a short
	// preview of the answer, already truncated for display.
	Completed(conv *chat.Conversation, summary string) error
}

// Unavailable is the notifier for hosts with no delivery channel. It is
// never available and rejects calls that ignore the contract.
type Unavailable struct{}

func (Unavailable) Available() bool { return false }

func (Unavailable) Completed(*chat.Conversation, string) error {
	return fmt.Errorf("no notification channel available")
}

// LogNotifier writes completion lines to the debug log. Used when desktop
// notifications are disabled but completions should still leave a trace.
type LogNotifier struct{}

func (LogNotifier) Available() bool {
	return config.Debug && config.DebugLog != nil
}

func (LogNotifier) Completed(conv *chat.Conversation, summary string) error {
	if config.DebugLog == nil {
		return fmt.Errorf("debug log not initialized")
	}
	config.DebugLog.Printf("[notify] conversation %q completed: %s", conv.Title, summary)
	return nil
}

// Desktop delivers through the platform notification command
// (notify-send on Linux, osascript on macOS).
type Desktop struct{}

func (Desktop) Available() bool {
	switch runtime.GOOS {
	case "linux":
		_, err := exec.LookPath("notify-send")
		return err == nil
	case "darwin":
		_, err := exec.LookPath("osascript")
		return err == nil
	default:
		return false
	}
}

func (Desktop) Completed(conv *chat.Conversation, summary string) error {
	title := conv.Title
	if title == "" {
		title = "Chat"
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("notify-send", title, summary)
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", summary, title)
		cmd = exec.Command("osascript", "-e", script)
	default:
		return fmt.Errorf("desktop notifications not supported on %s", runtime.GOOS)
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("notification delivery failed: %w", err)
	}
	return nil
}

// Deliver runs the notifier if it is available, logging and swallowing
// delivery errors. The zero notifier (nil) is a no-op.
func Deliver(n Notifier, conv *chat.Conversation, summary string) {
	if n == nil || !n.Available() {
		return
	}
	if err := n.Completed(conv, summary); err != nil {
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("notification failed: %v", err)
		}
	}
}
