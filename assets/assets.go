// Package assets embeds the email templates. Files under templates/email starting with "_"
// are layouts, the rest are messages rendered inside them.
package assets

import "embed"

//go:embed templates templates/email/_*
var FS embed.FS
