package summary

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"

	"github.com/wneessen/go-mail"

	"github.com/om-08/level-up-tasks/internal/config"
)

// Sender delivers one snapshot. The scheduler depends on this interface so
// tests can swap SMTP for a recorder.
type Sender interface {
	Send(ctx context.Context, snap Snapshot) error
}

type Mailer struct {
	cfg    config.EmailConfig
	logger *log.Logger
}

func NewMailer(cfg config.EmailConfig, logger *log.Logger) *Mailer {
	if logger == nil {
		logger = log.Default()
	}
	return &Mailer{cfg: cfg, logger: logger}
}

var bodyTmpl = template.Must(template.New("daily").Parse(`<html>
<body style="font-family:Arial,sans-serif;color:#333">
<div style="max-width:600px;margin:0 auto;padding:20px">
  <div style="background:linear-gradient(135deg,#6e42e5,#8e44ad);color:#fff;padding:20px;text-align:center;border-radius:10px 10px 0 0">
    <h1>Level Up Tasks</h1>
    <p>Daily Summary for {{.Date.Format "Monday, January 2, 2006"}}</p>
  </div>
  <div style="padding:20px;background:#f9f9f9;border-radius:0 0 10px 10px">
    <p>Here's your daily performance summary:</p>
    <ul>
      <li><strong>Points:</strong> {{.Points}}</li>
      <li><strong>Rank:</strong> {{.Rank}}</li>
      <li><strong>Tasks completed:</strong> {{.CompletedTasks}} / {{.TotalTasks}}</li>
      <li><strong>Completion rate:</strong> {{.CompletionRate}}%</li>
    </ul>
    <h2>Categories</h2>
    {{range .Categories}}
    <div style="background:#fff;padding:12px;border-radius:8px;margin:8px 0">
      <strong>{{.Name}}</strong>: {{.Completed}} / {{.Total}} ({{.CompletionRate}}%)
    </div>
    {{else}}
    <p>No tasks yet. Add one and start climbing.</p>
    {{end}}
    <p>Keep leveling up!</p>
  </div>
</div>
</body>
</html>`))

func (m *Mailer) Send(ctx context.Context, snap Snapshot) error {
	sender := m.cfg.SenderEmail
	if snap.SenderEmail != "" {
		sender = snap.SenderEmail
	}

	msg := mail.NewMsg()
	if err := msg.From(sender); err != nil {
		return fmt.Errorf("sender address: %w", err)
	}
	if err := msg.To(snap.Email); err != nil {
		return fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject(fmt.Sprintf("Your daily summary: %s, %d points", snap.Rank, snap.Points))

	var body bytes.Buffer
	if err := bodyTmpl.Execute(&body, snap); err != nil {
		return fmt.Errorf("render body: %w", err)
	}
	msg.SetBodyString(mail.TypeTextHTML, body.String())

	client, err := mail.NewClient(m.cfg.SMTPHost,
		mail.WithPort(m.cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.SMTPUser),
		mail.WithPassword(m.cfg.SMTPPassword),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}
	m.logger.Printf("[summary] sent daily summary to %s", snap.Email)
	return nil
}
