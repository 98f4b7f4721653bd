package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/bubtconnect/backend/src/models"
)

var connectionRequestTmpl = template.Must(template.New("connection-request").Parse(`
<div style="font-family: Arial, sans-serif; padding: 20px;">
  <h2>Hi {{.To.FullName}},</h2>
  <p>You have a new connection request from {{.From.FullName}} - @{{.From.Username}}</p>
  <p>Click <a href="{{.Link}}" style="color: #10b981;">here</a> to accept or reject the request.</p>
  <p>Thanks,<br/>BUBT Connect - Stay Connected</p>
</div>
`))

const connectionRequestSubject = "New Connection Request"

// Dispatcher renders notifications and hands them to a Mailer.
type Dispatcher struct {
	mailer      Mailer
	frontendURL string
}

func NewDispatcher(mailer Mailer, frontendURL string) *Dispatcher {
	return &Dispatcher{mailer: mailer, frontendURL: strings.TrimRight(frontendURL, "/")}
}

// ConnectionRequestMail renders the mail telling to about from's request.
func (d *Dispatcher) ConnectionRequestMail(to, from *models.User) (Mail, error) {
	var body bytes.Buffer
	err := connectionRequestTmpl.Execute(&body, struct {
		To, From *models.User
		Link     string
	}{To: to, From: from, Link: d.frontendURL + "/connections"})
	if err != nil {
		return Mail{}, fmt.Errorf("render connection request mail: %w", err)
	}
	return Mail{To: to.Email, Subject: connectionRequestSubject, Body: body.String()}, nil
}

// NotifyConnectionRequest emails to about a pending request from from.
func (d *Dispatcher) NotifyConnectionRequest(ctx context.Context, to, from *models.User) error {
	m, err := d.ConnectionRequestMail(to, from)
	if err != nil {
		return err
	}
	return d.mailer.Send(ctx, m)
}
