package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
)

// Email is one rendered message to one recipient
type Email struct {
	ToName    string
	ToAddress string
	Subject   string
	HTML      string
}

type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// SMTPMailer delivers through a relay with PLAIN auth when credentials are set.
// Every send is bounded by timeout and by the caller's context.
type SMTPMailer struct {
	addr     string
	host     string
	username string
	password string
	from     *mail.Address
	timeout  time.Duration
}

func NewSMTPMailer(host string, port int, username, password, from string, timeout time.Duration) *SMTPMailer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SMTPMailer{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		host:     host,
		username: username,
		password: password,
		from:     &mail.Address{Name: "IMIS", Address: from},
		timeout:  timeout,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, e Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := composeMessage(m.from, e, time.Now())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", m.addr)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", m.addr, err)
	}
	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("smtp set deadline: %w", err)
	}
	// cancellation unblocks whatever read or write is pending
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	if err := m.deliver(conn, e.ToAddress, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		} else if errors.Is(err, os.ErrDeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return fmt.Errorf("smtp send to %s: %w", e.ToAddress, err)
	}
	return nil
}

// deliver runs one SMTP conversation over conn and always closes it
func (m *SMTPMailer) deliver(conn net.Conn, to string, msg []byte) error {
	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if m.username != "" {
		if err := c.Auth(smtp.PlainAuth("", m.username, m.password, m.host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.Mail(m.from.Address); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// composeMessage builds a single-part text/html RFC 5322 message
func composeMessage(from *mail.Address, e Email, now time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", []*mail.Address{{Name: e.ToName, Address: e.ToAddress}})
	h.SetSubject(e.Subject)
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create mail writer: %w", err)
	}
	if _, err := io.WriteString(w, e.HTML); err != nil {
		return nil, fmt.Errorf("write mail body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close mail writer: %w", err)
	}
	return buf.Bytes(), nil
}

// LogMailer stands in when no relay is configured
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, e Email) error {
	m.logger.Info("email_logged", "to", e.ToAddress, "subject", e.Subject)
	return nil
}

var emailTemplate = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background-color:#f4f4f4;font-family:Arial,sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" style="max-width:600px;margin:0 auto;background-color:#ffffff;">
    <tr>
      <td style="background-color:#1f3b73;color:#ffffff;padding:20px;font-size:20px;">{{.Title}}</td>
    </tr>
    <tr>
      <td style="padding:20px;color:#333333;font-size:14px;line-height:1.5;">
        <p>Hello {{.DisplayName}},</p>
        <p>{{.Details}}</p>
        {{if .AppURL}}<p><a href="{{.AppURL}}" style="color:#1f3b73;">Open IMIS</a></p>{{end}}
      </td>
    </tr>
    <tr>
      <td style="padding:20px;color:#999999;font-size:12px;">This is an automated message from IMIS. Please do not reply.</td>
    </tr>
  </table>
</body>
</html>
`))

// EmailRenderer turns a rendered notification into a per-recipient email
type EmailRenderer struct {
	subjectPrefix string
	appURL        string
}

func NewEmailRenderer(subjectPrefix, appURL string) *EmailRenderer {
	return &EmailRenderer{subjectPrefix: subjectPrefix, appURL: appURL}
}

func (r *EmailRenderer) Render(displayName, address string, msg Message) (Email, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, struct {
		DisplayName string
		Title       string
		Details     string
		AppURL      string
	}{displayName, msg.Title, msg.Details, r.appURL})
	if err != nil {
		return Email{}, fmt.Errorf("render email: %w", err)
	}

	subject := msg.Title
	if r.subjectPrefix != "" {
		subject = r.subjectPrefix + " " + msg.Title
	}
	return Email{
		ToName:    displayName,
		ToAddress: address,
		Subject:   subject,
		HTML:      buf.String(),
	}, nil
}
