package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender 真正的投递通道
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SMTPSender 纯文本邮件；Username 为空时不做 AUTH（本地 Mailpit 等）
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + m.To,
		"Subject: " + m.Subject,
		"Date: " + time.Now().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		m.Body,
	}, "\r\n")

	errCh := make(chan error, 1)
	go func() { errCh <- smtp.SendMail(addr, auth, s.From, []string{m.To}, []byte(msg)) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	}
}

// LogSender 开发环境：只打日志
type LogSender struct{ Log *zap.Logger }

func (s LogSender) Send(_ context.Context, m Message) error {
	s.Log.Info("mail (not sent)", zap.String("to", m.To), zap.String("subject", m.Subject), zap.String("body", m.Body))
	return nil
}
