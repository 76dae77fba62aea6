package email

import (
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// Message templates for the auth flows. Kept as inline templates rather than
// separate files so the package stays self-contained and renderable without
// filesystem access.
var (
	layoutTmpl = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, Helvetica, Arial, sans-serif; color: #1f2937; max-width: 560px; margin: 0 auto; padding: 24px;">
<h2 style="color: #111827;">{{.Heading}}</h2>
{{.Body}}
<p style="color: #6b7280; font-size: 13px; margin-top: 32px;">
If you did not expect this email, you can safely ignore it.
</p>
</body>
</html>`))

	welcomeBodyTmpl = template.Must(template.New("welcome").Parse(
		`<p>Hi {{.Name}},</p>
<p>Welcome to Stackblog! Your account is ready. Publish your first post, follow
writers you like, and join the conversation in the comments.</p>`))

	verifyBodyTmpl = template.Must(template.New("verify").Parse(
		`<p>Hi {{.Name}},</p>
<p>Please confirm your email address by clicking the link below. The link is
valid for {{.TTL}}.</p>
<p><a href="{{.Link}}">Verify my email</a></p>`))

	resetBodyTmpl = template.Must(template.New("reset").Parse(
		`<p>Hi {{.Name}},</p>
<p>We received a request to reset your password. Click the link below to choose
a new one. The link is valid for {{.TTL}} and can be used once.</p>
<p><a href="{{.Link}}">Reset my password</a></p>
<p>If you did not request a reset, no action is needed.</p>`))

	changedBodyTmpl = template.Must(template.New("changed").Parse(
		`<p>Hi {{.Name}},</p>
<p>Your Stackblog password was just changed and all active sessions were signed
out. If this wasn't you, reset your password immediately and contact support.</p>`))
)

type templateData struct {
	Name string
	Link string
	TTL  string
}

func renderMessage(heading string, bodyTmpl *template.Template, data templateData) (string, error) {
	var body strings.Builder
	if err := bodyTmpl.Execute(&body, data); err != nil {
		return "", errors.Join(ErrFailedToRender, err)
	}

	var out strings.Builder
	err := layoutTmpl.Execute(&out, struct {
		Heading string
		Body    template.HTML
	}{
		Heading: heading,
		Body:    template.HTML(body.String()),
	})
	if err != nil {
		return "", errors.Join(ErrFailedToRender, err)
	}
	return out.String(), nil
}

// NewWelcomeEmail builds the post-registration welcome message.
func NewWelcomeEmail(to, name string) (SendEmailParams, error) {
	html, err := renderMessage("Welcome to Stackblog", welcomeBodyTmpl, templateData{Name: name})
	if err != nil {
		return SendEmailParams{}, err
	}
	return SendEmailParams{
		SendTo:   to,
		Subject:  "Welcome to Stackblog",
		BodyHTML: html,
		BodyText: fmt.Sprintf("Hi %s, welcome to Stackblog! Your account is ready.", name),
		Tag:      "welcome",
	}, nil
}

// NewVerificationEmail builds the email-verification message with its
// one-time link.
func NewVerificationEmail(to, name, link, ttl string) (SendEmailParams, error) {
	html, err := renderMessage("Verify your email", verifyBodyTmpl, templateData{Name: name, Link: link, TTL: ttl})
	if err != nil {
		return SendEmailParams{}, err
	}
	return SendEmailParams{
		SendTo:   to,
		Subject:  "Verify your Stackblog email",
		BodyHTML: html,
		BodyText: fmt.Sprintf("Hi %s, verify your email: %s (valid for %s)", name, link, ttl),
		Tag:      "email-verification",
	}, nil
}

// NewPasswordResetEmail builds the password-reset message with its one-time link.
func NewPasswordResetEmail(to, name, link, ttl string) (SendEmailParams, error) {
	html, err := renderMessage("Reset your password", resetBodyTmpl, templateData{Name: name, Link: link, TTL: ttl})
	if err != nil {
		return SendEmailParams{}, err
	}
	return SendEmailParams{
		SendTo:   to,
		Subject:  "Reset your Stackblog password",
		BodyHTML: html,
		BodyText: fmt.Sprintf("Hi %s, reset your password: %s (valid for %s, single use)", name, link, ttl),
		Tag:      "password-reset",
	}, nil
}

// NewPasswordChangedEmail builds the security notification sent after a
// password change or reset.
func NewPasswordChangedEmail(to, name string) (SendEmailParams, error) {
	html, err := renderMessage("Your password was changed", changedBodyTmpl, templateData{Name: name})
	if err != nil {
		return SendEmailParams{}, err
	}
	return SendEmailParams{
		SendTo:   to,
		Subject:  "Your Stackblog password was changed",
		BodyHTML: html,
		BodyText: fmt.Sprintf("Hi %s, your password was changed and all sessions were signed out.", name),
		Tag:      "password-changed",
	}, nil
}
