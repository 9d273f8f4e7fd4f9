package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"os"
	"path/filepath"
	texttemplate "text/template"

	"gopkg.in/yaml.v3"
)

// Built-in reminder content, used when no template file is present.
const (
	defaultSubject = "Keep Solving on Codeforces!"
	defaultText    = "Hi {{.Name}},\n\nWe noticed you haven't made any Codeforces submissions in the last {{.Days}} days. Keep up your problem solving!"
	defaultHTML    = "<p>Hi {{.Name}},</p><p>We noticed you haven't made any Codeforces submissions in the last {{.Days}} days. Keep up your problem solving!</p>"
)

// ReminderData is the data a reminder template renders against.
type ReminderData struct {
	Name string
	Days int
}

// ReminderTemplate renders the inactivity reminder mail.
type ReminderTemplate struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// reminderFile is the YAML shape of a reminder template on disk.
type reminderFile struct {
	Subject string `yaml:"subject"`
	Text    string `yaml:"text"`
	HTML    string `yaml:"html"`
}

// LoadReminderTemplate loads reminder.yaml (or .yml) from dir. A missing
// file is not an error: the built-in template is returned so mail always has
// content.
func LoadReminderTemplate(dir string) (*ReminderTemplate, error) {
	for _, name := range []string{"reminder.yaml", "reminder.yml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read template %s: %w", path, err)
		}

		tmpl, err := parseReminderTemplate(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
		}

		slog.Info("reminder template loaded", "path", path)
		return tmpl, nil
	}

	slog.Info("no reminder template found, using built-in", "dir", dir)
	return DefaultReminderTemplate(), nil
}

// DefaultReminderTemplate returns the compiled-in reminder content.
func DefaultReminderTemplate() *ReminderTemplate {
	tmpl, err := buildReminderTemplate(defaultSubject, defaultText, defaultHTML)
	if err != nil {
		// The built-in strings are constants; failing to parse them is a
		// programming error.
		panic(fmt.Sprintf("invalid built-in reminder template: %v", err))
	}
	return tmpl
}

func parseReminderTemplate(data []byte) (*ReminderTemplate, error) {
	var file reminderFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if file.Subject == "" {
		return nil, fmt.Errorf("template subject is required")
	}
	if file.Text == "" && file.HTML == "" {
		return nil, fmt.Errorf("template needs a text or html body")
	}

	return buildReminderTemplate(file.Subject, file.Text, file.HTML)
}

func buildReminderTemplate(subject, text, html string) (*ReminderTemplate, error) {
	subjectTmpl, err := texttemplate.New("subject").Parse(subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject template: %w", err)
	}

	textTmpl, err := texttemplate.New("text").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid text template: %w", err)
	}

	htmlTmpl, err := htmltemplate.New("html").Parse(html)
	if err != nil {
		return nil, fmt.Errorf("invalid html template: %w", err)
	}

	return &ReminderTemplate{
		subject: subjectTmpl,
		text:    textTmpl,
		html:    htmlTmpl,
	}, nil
}

// Render produces the message bodies for one recipient.
func (t *ReminderTemplate) Render(to string, data ReminderData) (*Message, error) {
	var subject, text, html bytes.Buffer

	if err := t.subject.Execute(&subject, data); err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := t.text.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("failed to render text body: %w", err)
	}
	if err := t.html.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render html body: %w", err)
	}

	return &Message{
		To:      to,
		Subject: subject.String(),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
