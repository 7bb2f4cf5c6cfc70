package notifier

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/goccy/go-json"

	"calnotify/internal/message"
)

// DryRunNotifier prints what would be posted without actually posting.
type DryRunNotifier struct {
	out io.Writer
}

// NewDryRunNotifier creates a dry-run notifier writing to w, or to
// stdout when w is nil.
func NewDryRunNotifier(w io.Writer) *DryRunNotifier {
	if w == nil {
		w = os.Stdout
	}
	return &DryRunNotifier{out: w}
}

// Notify prints the payload that would be posted.
func (n *DryRunNotifier) Notify(_ context.Context, webhook string, p *message.Payload) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return &DeliveryError{Reason: ReasonSerialization, Err: err}
	}
	fmt.Fprintf(n.out, "--- would post %d blocks to %s ---\n", len(p.Blocks), maskWebhook(webhook))
	fmt.Fprintln(n.out, string(data))
	return nil
}

// maskWebhook keeps the scheme and host and hides the secret path of a
// webhook URL.
func maskWebhook(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "***"
	}
	return u.Scheme + "://" + u.Host + "/***"
}
