package email

import (
	"html"
	"strconv"
	"strings"
)

type Content struct {
	Subject string
	Text    string
	HTML    string
}

const (
	verificationSubject = "Verify your MediLoop email"
	verificationText    = "Hi {name},\n\nConfirm your email address: {link}\nThe link expires in {hours} hours.\nIf you did not create an account, ignore this email."
	verificationHTML    = "<p>Hi {name},</p>" +
		"<p>Confirm your email address to finish setting up your MediLoop account.</p>" +
		"<p><a href=\"{link}\">Verify email</a></p>" +
		"<p>The link expires in {hours} hours.</p>" +
		"<p>If you did not create an account, ignore this email.</p>"

	resetSubject = "Reset your MediLoop password"
	resetText    = "Hi {name},\n\nReset your password: {link}\nThe link expires in {minutes} minutes.\nIf you did not request this, ignore this email."
	resetHTML    = "<p>Hi {name},</p>" +
		"<p>Click the link to reset your password.</p>" +
		"<p><a href=\"{link}\">Reset password</a></p>" +
		"<p>The link expires in {minutes} minutes.</p>" +
		"<p>If you did not request this, ignore this email.</p>"
)

func VerificationEmail(name, link string, hours int) Content {
	values := map[string]string{"name": name, "link": link, "hours": strconv.Itoa(hours)}
	return Content{
		Subject: verificationSubject,
		Text:    render(verificationText, values, false),
		HTML:    render(verificationHTML, values, true),
	}
}

func PasswordResetEmail(name, link string, minutes int) Content {
	values := map[string]string{"name": name, "link": link, "minutes": strconv.Itoa(minutes)}
	return Content{
		Subject: resetSubject,
		Text:    render(resetText, values, false),
		HTML:    render(resetHTML, values, true),
	}
}

func render(tmpl string, values map[string]string, escape bool) string {
	replacements := make([]string, 0, len(values)*2)
	for key, value := range values {
		if escape {
			value = html.EscapeString(value)
		}
		replacements = append(replacements, "{"+key+"}", value)
	}
	return strings.NewReplacer(replacements...).Replace(tmpl)
}
