package mail

import (
	"bytes"
	"text/template"
)

var (
	verifyTmpl = template.Must(template.New("verify").Parse(
		`Welcome to {{.App}}!

Please confirm your email address by opening the link below:

{{.Link}}

If you did not create an account, you can ignore this message.
`))
	resetTmpl = template.Must(template.New("reset").Parse(
		`Someone asked to reset the password of your {{.App}} account.

Choose a new password here:

{{.Link}}

If it was not you, ignore this message; your password stays unchanged.
`))
)

func render(t *template.Template, app, link string) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, struct{ App, Link string }{app, link}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// VerifyMessage 验证邮件
func VerifyMessage(app string, p Payload) (Message, error) {
	body, err := render(verifyTmpl, app, p.Link)
	if err != nil {
		return Message{}, err
	}
	return Message{To: p.To, Subject: "Confirm your " + app + " account", Body: body}, nil
}

// ResetMessage 重置密码邮件
func ResetMessage(app string, p Payload) (Message, error) {
	body, err := render(resetTmpl, app, p.Link)
	if err != nil {
		return Message{}, err
	}
	return Message{To: p.To, Subject: "Reset your " + app + " password", Body: body}, nil
}
