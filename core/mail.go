package core

import (
	"bytes"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	"github.com/campusdesk/portal/assets"
)

const mailTemplateDir = "templates/email"

// mailTemplates is filled once by ParseEmailTemplates and read by every Render.
var mailTemplates struct {
	sync.RWMutex
	byName          map[string]mailTemplate
	frontendBaseURL string
}

type (
	// mailTemplate pairs the plain text and HTML renditions of one message; either may be nil.
	mailTemplate struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}

	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	// EmailMessage is either a plain message (BodyStr) or a templated one (TemplateName and
	// TemplateData). Render fills TextContent and HTMLContent from whichever is set.
	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string
		Attachments []Attachment

		TemplateName string // file name without extension
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// TemplateContext is what every email template is executed with.
	TemplateContext struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService delivers messages without blocking the caller on the transport.
	EmailService interface {
		SendMessages(messages ...*EmailMessage)
	}
)

func lookupMailTemplate(name string) (mailTemplate, TemplateContext, bool) {
	mailTemplates.RLock()
	defer mailTemplates.RUnlock()
	tmpl, ok := mailTemplates.byName[name]
	return tmpl, TemplateContext{FrontendBaseURL: mailTemplates.frontendBaseURL}, ok
}

// Render fills the message contents. A templated message whose template is unknown renders
// to nothing, which senders treat as an empty message.
func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}

	tmpl, ctx, ok := lookupMailTemplate(m.TemplateName)
	if !ok {
		return nil
	}
	ctx.Data = m.TemplateData

	var buff bytes.Buffer
	if tmpl.text != nil && m.BodyStr == "" {
		if err := tmpl.text.Execute(&buff, ctx); err != nil {
			return errors.Wrapf(err, "rendering %s.txt", m.TemplateName)
		}
		m.TextContent = buff.String()
		buff.Reset()
	}
	if tmpl.html != nil {
		if err := tmpl.html.Execute(&buff, ctx); err != nil {
			return errors.Wrapf(err, "rendering %s.gohtml", m.TemplateName)
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

// ParseEmailTemplates parses the embedded email templates, each inside the "_base" layout of
// its extension. Templates that fail to parse are logged and skipped.
func ParseEmailTemplates(conf *Config, logger Logger) {
	byName := make(map[string]mailTemplate)
	fps, err := fs.Glob(assets.FS, path.Join(mailTemplateDir, "*"))
	if err != nil {
		logger.Error("core.ParseEmailTemplates: globbing templates", err)
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		base := path.Join(mailTemplateDir, "_base"+ext)
		tmpl := byName[name]

		switch ext {
		case ".txt":
			tmpl.text, err = texttmpl.ParseFS(assets.FS, base, fp)
			if err == nil && (conf.Debug || conf.TestMode) {
				tmpl.text = tmpl.text.Option("missingkey=error")
			}
		case ".gohtml":
			tmpl.html, err = htmltmpl.ParseFS(assets.FS, base, fp)
			if err == nil && (conf.Debug || conf.TestMode) {
				tmpl.html = tmpl.html.Option("missingkey=error")
			}
		default:
			continue
		}
		if err != nil {
			logger.Error("core.ParseEmailTemplates: parsing "+fp, err)
			continue
		}
		byName[name] = tmpl
	}

	mailTemplates.Lock()
	mailTemplates.byName = byName
	mailTemplates.frontendBaseURL = conf.FrontendBaseURL
	mailTemplates.Unlock()
}
