// Package mailer renders submitter notifications and hands them to a transport.
package mailer

import (
	"bytes"
	"context"
	htmltpl "html/template"
	"strconv"
	"strings"
	texttpl "text/template"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"scwatch/internal/domain"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Nop drops every message. Used when neither Resend nor SMTP is configured.
type Nop struct{}

func (Nop) Send(ctx context.Context, m Message) error {
	log.Warn().Str("subject", m.Subject).Msg("mail transport not configured; email not sent")
	return nil
}

// Notifier implements domain.Notifier on top of a Sender.
type Notifier struct {
	sender  Sender
	baseURL string
}

func NewNotifier(s Sender, appBaseURL string) *Notifier {
	if appBaseURL == "" {
		appBaseURL = "http://localhost:3000"
	}
	return &Notifier{sender: s, baseURL: appBaseURL}
}

type approvedView struct {
	Hotel   string
	Period  string
	USD     string
	MVR     string
	Total   string
	LinkURL string
}

type rejectedView struct {
	Hotel   string
	Period  string
	Reason  string
	LinkURL string
}

func (n *Notifier) SubmissionApproved(ctx context.Context, a domain.ApprovalNotice) error {
	v := approvedView{
		Hotel:   a.HotelName,
		Period:  period(a.Month, a.Year),
		USD:     money(a.USDAmount),
		Total:   money(a.TotalUSD),
		LinkURL: n.baseURL,
	}
	if a.MVRAmount != nil && *a.MVRAmount > 0 {
		v.MVR = money(*a.MVRAmount)
	}
	m, err := render(a.To, "Your submission for "+a.HotelName+" has been approved", approvedHTML, approvedText, v)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, m)
}

func (n *Notifier) SubmissionRejected(ctx context.Context, r domain.RejectionNotice) error {
	v := rejectedView{
		Hotel:   r.HotelName,
		Period:  period(r.Month, r.Year),
		Reason:  r.Reason,
		LinkURL: strings.TrimRight(n.baseURL, "/") + "/submit",
	}
	m, err := render(r.To, "Your submission for "+r.HotelName+" requires attention", rejectedHTML, rejectedText, v)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, m)
}

func render(to, subject string, h *htmltpl.Template, t *texttpl.Template, v any) (Message, error) {
	var hb, tb bytes.Buffer
	if err := h.Execute(&hb, v); err != nil {
		return Message{}, err
	}
	if err := t.Execute(&tb, v); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, HTML: hb.String(), Text: strings.TrimSpace(tb.String())}, nil
}

func period(month, year int) string {
	return time.Month(month).String() + " " + strconv.Itoa(year)
}

// money formats f as 1,234.50.
func money(f float64) string {
	s := decimal.NewFromFloat(f).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

var approvedHTML = htmltpl.Must(htmltpl.New("approved").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
<h1 style="color: #1e40af;">Submission Approved!</h1>
<p>Great news! Your service charge submission has been verified and approved.</p>
<table style="width: 100%; border-collapse: collapse;">
<tr><td>Hotel:</td><td style="text-align: right;">{{.Hotel}}</td></tr>
<tr><td>Period:</td><td style="text-align: right;">{{.Period}}</td></tr>
<tr><td>USD Amount:</td><td style="text-align: right;">${{.USD}}</td></tr>
{{- if .MVR}}
<tr><td>MVR Amount:</td><td style="text-align: right;">MVR {{.MVR}}</td></tr>
{{- end}}
<tr><td><strong>Total (USD):</strong></td><td style="text-align: right;"><strong>${{.Total}}</strong></td></tr>
</table>
<p>This data is now visible on the public leaderboard.</p>
<p><a href="{{.LinkURL}}">View on Leaderboard</a></p>
<p style="color: #64748b; font-size: 14px;">Thank you for contributing to Service Charge Watch.</p>
</body>
</html>`))

var approvedText = texttpl.Must(texttpl.New("approved").Parse(`
Submission Approved!

Great news! Your service charge submission has been verified and approved.

Submission Details:
- Hotel: {{.Hotel}}
- Period: {{.Period}}
- USD Amount: ${{.USD}}
{{- if .MVR}}
- MVR Amount: MVR {{.MVR}}
{{- end}}
- Total (USD): ${{.Total}}

This data is now visible on the public leaderboard.

View on Leaderboard: {{.LinkURL}}

Thank you for contributing to Service Charge Watch.
`))

var rejectedHTML = htmltpl.Must(htmltpl.New("rejected").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
<h1 style="color: #b91c1c;">Submission Requires Attention</h1>
<p>Your service charge submission could not be approved at this time.</p>
<table style="width: 100%; border-collapse: collapse;">
<tr><td>Hotel:</td><td style="text-align: right;">{{.Hotel}}</td></tr>
<tr><td>Period:</td><td style="text-align: right;">{{.Period}}</td></tr>
</table>
<p><strong>Reason:</strong> {{.Reason}}</p>
<p>You are welcome to submit again with corrected details or clearer proof.</p>
<p><a href="{{.LinkURL}}">Submit Again</a></p>
</body>
</html>`))

var rejectedText = texttpl.Must(texttpl.New("rejected").Parse(`
Submission Requires Attention

Your service charge submission could not be approved at this time.

Submission Details:
- Hotel: {{.Hotel}}
- Period: {{.Period}}

Reason: {{.Reason}}

You are welcome to submit again with corrected details or clearer proof.

Submit Again: {{.LinkURL}}
`))
