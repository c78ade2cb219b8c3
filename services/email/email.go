// Package emailsvc holds the core.EmailService implementations: SendGrid in QA and PROD,
// the console everywhere else.
package emailsvc

import (
	"fmt"

	"github.com/campusdesk/portal/core"
)

// render prepares msg for delivery and reports whether there is anything to deliver.
func render(msg *core.EmailMessage, logger core.Logger) bool {
	if err := msg.Render(); err != nil {
		logger.Error(fmt.Sprintf("rendering email %q: %v", msg.Subject, err), err)
		return false
	}
	return msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments())
}
