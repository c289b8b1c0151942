package notifier

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/config"
)

// EmailChannelName is the name under which the email channel is registered
const EmailChannelName = "email"

type sendMailFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

type emailChannel struct {
	address  string
	auth     smtp.Auth
	from     string
	to       []string
	sendMail sendMailFunc
}

// NewEmailChannel creates a channel sending plain text emails through a SMTP relay
func NewEmailChannel(cfg config.EmailConfig, password string) (*emailChannel, error) {
	if len(cfg.SMTPHost) == 0 {
		return nil, ErrEmptySMTPHost
	}
	if len(cfg.To) == 0 {
		return nil, ErrNoRecipients
	}

	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}

	var auth smtp.Auth
	if len(cfg.Username) > 0 {
		auth = smtp.PlainAuth("", cfg.Username, password, cfg.SMTPHost)
	}

	return &emailChannel{
		address:  net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(port)),
		auth:     auth,
		from:     cfg.From,
		to:       append([]string(nil), cfg.To...),
		sendMail: smtp.SendMail,
	}, nil
}

// Name returns the channel name
func (ec *emailChannel) Name() string {
	return EmailChannelName
}

// Send mails the alert to all recipients. The SMTP exchange is not interruptible, the context is only checked before it starts.
func (ec *emailChannel) Send(ctx context.Context, alert common.AlertEvent) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	err = ec.sendMail(ec.address, ec.auth, ec.from, ec.to, ec.buildMessage(alert))
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

func (ec *emailChannel) buildMessage(alert common.AlertEvent) []byte {
	builder := strings.Builder{}
	builder.WriteString("From: " + ec.from + "\r\n")
	builder.WriteString("To: " + strings.Join(ec.to, ", ") + "\r\n")
	builder.WriteString(fmt.Sprintf("Subject: [%s] %s\r\n", strings.ToUpper(string(alert.Severity)), alert.RuleID))
	builder.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(alert.Message + "\r\n")
	builder.WriteString("\r\n")
	builder.WriteString("Alert: " + alert.ID + "\r\n")
	if len(alert.ErrorID) > 0 {
		builder.WriteString("Error: " + alert.ErrorID + "\r\n")
	}
	if len(alert.MetricName) > 0 {
		builder.WriteString("Metric: " + alert.MetricName + "\r\n")
	}
	builder.WriteString("Time: " + common.FromMillis(alert.Timestamp).UTC().Format("2006-01-02 15:04:05 UTC") + "\r\n")

	return []byte(builder.String())
}

// IsInterfaceNil returns true if the value under the interface is nil
func (ec *emailChannel) IsInterfaceNil() bool {
	return ec == nil
}
