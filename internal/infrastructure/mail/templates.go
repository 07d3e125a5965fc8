package mail

import (
	"fmt"
	"strings"
)

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return "there"
}

func welcomeTemplate(name, url, appName string) (string, string) {
	subject := fmt.Sprintf("Welcome to the %s Family!", appName)
	body := fmt.Sprintf(`Hi %s,

Welcome to %s, we're glad to have you.

Upload a photo and tell us about yourself here:
%s

The %s Team`, firstName(name), appName, url, appName)
	return subject, body
}

func passwordResetTemplate(name, resetURL string, validFor string) (string, string) {
	subject := fmt.Sprintf("Your password reset token (valid for only %s)", validFor)
	body := fmt.Sprintf(`Hi %s,

Forgot your password? Submit a PATCH request with your new password and passwordConfirm to:
%s

If you didn't forget your password, please ignore this email.`, firstName(name), resetURL)
	return subject, body
}
