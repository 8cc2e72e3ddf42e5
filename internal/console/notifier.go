package console

import (
	"fmt"
	"io"
	"os"

	"github.com/loadfile/loadfile/internal/notify"
)

// Notifier prints upload failures to the terminal and, when Desktop is
// set, raises a desktop notification as well.
type Notifier struct {
	Out     io.Writer
	Desktop *notify.Notifier
}

// Alert implements node.Notifier
func (n *Notifier) Alert(message string) {
	out := n.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "✗ %s\n", message)

	if n.Desktop != nil {
		n.Desktop.Alert(message)
	}
}
