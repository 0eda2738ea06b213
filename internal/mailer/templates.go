package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// Template names for OTP mail.
const (
	TemplateWelcome = "welcome"
	TemplateResent  = "resent"
	TemplateTest    = "test"
)

var subjects = map[string]string{
	TemplateWelcome: "Welcome to Candlux - verify your email",
	TemplateResent:  "Your new Candlux verification code",
	TemplateTest:    "Candlux test email",
}

const layout = `{{define "code"}}<p style="font-size:28px;letter-spacing:6px;font-weight:bold">{{.Code}}</p>
<p>This code is valid for {{.ValidMinutes}} minute{{if ne .ValidMinutes 1}}s{{end}}. If you did not request it, ignore this email.</p>{{end}}`

var templates = template.Must(template.New("mail").Parse(layout +
	`{{define "welcome"}}<h2>Welcome to Candlux, {{.Name}}!</h2>
<p>Use the code below to verify your email address.</p>
{{template "code" .}}{{end}}` +
	`{{define "resent"}}<h2>Hello {{.Name}},</h2>
<p>Here is your new verification code.</p>
{{template "code" .}}{{end}}` +
	`{{define "test"}}<p>This is a test email from Candlux sent at {{.SentAt}}.</p>{{end}}`))

// OTPData feeds the welcome and resent templates.
type OTPData struct {
	Name         string
	Code         string
	ValidMinutes int
}

// OTPMessage renders an OTP email for the given template.
func OTPMessage(name, to string, data OTPData) (Message, error) {
	return render(name, to, data)
}

// NewOTPData fills the template data, rounding validity up to whole minutes.
func NewOTPData(fullName, code string, validity time.Duration) OTPData {
	minutes := int((validity + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return OTPData{Name: fullName, Code: code, ValidMinutes: minutes}
}

// TestMessage renders the admin test mail.
func TestMessage(to string, sentAt time.Time) (Message, error) {
	return render(TemplateTest, to, struct{ SentAt string }{sentAt.UTC().Format(time.RFC1123)})
}

func render(name, to string, data any) (Message, error) {
	subject, ok := subjects[name]
	if !ok {
		return Message{}, fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Message{To: to, Subject: subject, HTML: buf.String()}, nil
}
