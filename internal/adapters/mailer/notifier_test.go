package mailer_test

import (
	"context"
	"strings"
	"testing"

	"scwatch/internal/adapters/mailer"
	"scwatch/internal/domain"
)

type recorder struct{ sent []mailer.Message }

func (r *recorder) Send(ctx context.Context, m mailer.Message) error {
	r.sent = append(r.sent, m)
	return nil
}

func TestNotifier_Approved(t *testing.T) {
	rec := &recorder{}
	n := mailer.NewNotifier(rec, "https://scwatch.example")
	mvr := 10000.0

	err := n.SubmissionApproved(context.Background(), domain.ApprovalNotice{
		To:        "worker@example.com",
		HotelName: "Coral Reef",
		Month:     3,
		Year:      2025,
		USDAmount: 2000,
		MVRAmount: &mvr,
		TotalUSD:  2648.51,
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(rec.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(rec.sent))
	}
	m := rec.sent[0]
	if m.To != "worker@example.com" || !strings.Contains(m.Subject, "Coral Reef") {
		t.Fatalf("unexpected envelope: %+v", m)
	}
	for _, want := range []string{"March 2025", "$2,000.00", "MVR 10,000.00", "$2,648.51", "https://scwatch.example"} {
		if !strings.Contains(m.Text, want) || !strings.Contains(m.HTML, want) {
			t.Fatalf("missing %q in message:\n%s", want, m.Text)
		}
	}
}

func TestNotifier_RejectedEscapesReason(t *testing.T) {
	rec := &recorder{}
	n := mailer.NewNotifier(rec, "")

	err := n.SubmissionRejected(context.Background(), domain.RejectionNotice{
		To:        "worker@example.com",
		HotelName: "Palm Lagoon",
		Month:     12,
		Year:      2024,
		Reason:    "<b>blurry</b> payslip",
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	m := rec.sent[0]
	if strings.Contains(m.HTML, "<b>blurry</b>") || !strings.Contains(m.HTML, "&lt;b&gt;blurry&lt;/b&gt;") {
		t.Fatalf("reason not escaped in html: %s", m.HTML)
	}
	if !strings.Contains(m.Text, "Reason: <b>blurry</b> payslip") || !strings.Contains(m.Text, "December 2024") {
		t.Fatalf("unexpected text body: %s", m.Text)
	}
	if !strings.Contains(m.Text, "http://localhost:3000/submit") {
		t.Fatalf("missing default link: %s", m.Text)
	}
}

func TestNotifier_NoMVRLine(t *testing.T) {
	rec := &recorder{}
	_ = mailer.NewNotifier(rec, "").SubmissionApproved(context.Background(), domain.ApprovalNotice{
		To: "w@example.com", HotelName: "X", Month: 1, Year: 2025, USDAmount: 100, TotalUSD: 100,
	})
	if strings.Contains(rec.sent[0].Text, "MVR Amount") {
		t.Fatalf("unexpected MVR line: %s", rec.sent[0].Text)
	}
}
