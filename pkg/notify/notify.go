package notify

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/activecm/snitch/pkg/detection"
	log "github.com/sirupsen/logrus"
)

// Notifier surfaces a detection to the operator. Implementations are
// fire and forget; a delivery failure must never abort a scan cycle.
type Notifier interface {
	Notify(event *detection.Event) error
}

type desktopNotifier struct {
	log    *log.Logger
	runCmd func(name string, args ...string) error
}

// NewDesktopNotifier surfaces detections through the platform's
// notification daemon: notify-send on Linux, osascript on macOS.
// Platforms without either fall back to a warn level log line.
func NewDesktopNotifier(logger *log.Logger) Notifier {
	return &desktopNotifier{
		log: logger,
		runCmd: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Notify implements Notifier.
func (d *desktopNotifier) Notify(event *detection.Event) error {
	title, body := format(event)

	var err error
	switch runtime.GOOS {
	case "linux":
		err = d.runCmd("notify-send", "-u", "critical", title, body)
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		err = d.runCmd("osascript", "-e", script)
	default:
		return NewLogNotifier(d.log).Notify(event)
	}

	if err != nil {
		// missing notification daemons are common on servers
		d.log.WithFields(log.Fields{
			"error": err.Error(),
		}).Debug("could not deliver desktop notification")
		return NewLogNotifier(d.log).Notify(event)
	}
	return nil
}

type logNotifier struct {
	log *log.Logger
}

// NewLogNotifier writes alerts to the log instead of the desktop.
func NewLogNotifier(logger *log.Logger) Notifier {
	return &logNotifier{log: logger}
}

// Notify implements Notifier.
func (l *logNotifier) Notify(event *detection.Event) error {
	title, body := format(event)
	l.log.WithFields(log.Fields{
		"severity": event.Severity.String(),
		"pattern":  event.MatchedPattern,
	}).Warn(title + ": " + body)
	return nil
}

func format(event *detection.Event) (string, string) {
	title := fmt.Sprintf("snitch: %s detection", event.Severity.String())
	process := event.ProcessName
	if process == "" {
		process = "unknown process"
	}
	body := fmt.Sprintf("%s (pid %d) connected to %s:%d [%s / %s]",
		process, event.PID, event.RemoteIP, event.RemotePort,
		event.MatchedPattern, event.Category)
	return title, body
}
