package email_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"geethika.lk/app/internal/database/dbtest"
	"geethika.lk/app/internal/mailer"
	"geethika.lk/app/internal/modules/email"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func enqueue(t *testing.T, db *gorm.DB, tpl string, payload map[string]any) {
	t.Helper()
	if err := email.NewOutbox(db).Enqueue(context.Background(), email.Job{To: "nimal@example.com", Template: tpl, Payload: payload}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
}

func onlyJob(t *testing.T, db *gorm.DB) email.EmailJob {
	t.Helper()
	var jobs []email.EmailJob
	if err := db.Find(&jobs).Error; err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("Expected 1 job, got %d", len(jobs))
	}
	return jobs[0]
}

func TestEnqueueRejectsIncompleteJob(t *testing.T) {
	db := dbtest.Open(t)
	out := email.NewOutbox(db)
	if err := out.Enqueue(context.Background(), email.Job{To: " ", Template: email.TplPasswordReset}); !errors.Is(err, email.ErrInvalidJob) {
		t.Errorf("Expected ErrInvalidJob, got %v", err)
	}
	if err := out.Enqueue(context.Background(), email.Job{To: "a@example.com"}); !errors.Is(err, email.ErrInvalidJob) {
		t.Errorf("Expected ErrInvalidJob, got %v", err)
	}
}

func TestDispatchOnceSends(t *testing.T) {
	db := dbtest.Open(t)
	enqueue(t, db, email.TplPaymentReceived, map[string]any{
		"Name":        "Nimal",
		"OrderNumber": "GDW-250101-ABCDEF",
		"Amount":      "Rs 5,350.00",
		"TrackURL":    "http://shop.test/track",
	})

	m := &mailer.Mock{}
	d := email.NewDispatcher(db, email.NewMailerAdapter(m, "shop@geethika.lk", "Geethika"), email.NewRenderer(), quiet)
	n, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("DispatchOnce: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 sent, got %d", n)
	}

	sent := m.Sent()
	if len(sent) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(sent))
	}
	if sent[0].Subject != "Payment received for GDW-250101-ABCDEF" {
		t.Errorf("Unexpected subject %q", sent[0].Subject)
	}
	if sent[0].From != "shop@geethika.lk" || sent[0].To[0] != "nimal@example.com" {
		t.Errorf("Unexpected envelope %+v", sent[0])
	}
	if !strings.Contains(sent[0].TextBody, "Rs 5,350.00") {
		t.Errorf("Expected the amount in the text body, got %q", sent[0].TextBody)
	}

	job := onlyJob(t, db)
	if job.Status != email.JobSent || job.Attempts != 1 || job.SentAt == nil {
		t.Errorf("Expected a sent job, got %+v", job)
	}

	if n, _ := d.DispatchOnce(context.Background()); n != 0 {
		t.Errorf("Expected nothing left to send, got %d", n)
	}
}

func TestDispatchOnceRetriesThenFails(t *testing.T) {
	db := dbtest.Open(t)
	enqueue(t, db, email.TplPasswordReset, map[string]any{"Name": "Nimal", "ResetURL": "http://x", "ExpiresIn": "1 hour"})

	m := &mailer.Mock{Err: errors.New("smtp down")}
	d := email.NewDispatcher(db, email.NewMailerAdapter(m, "shop@geethika.lk", ""), email.NewRenderer(), quiet)
	d.MaxAttempts = 2

	if _, err := d.DispatchOnce(context.Background()); err != nil {
		t.Fatalf("DispatchOnce: %v", err)
	}
	job := onlyJob(t, db)
	if job.Status != email.JobPending || job.Attempts != 1 {
		t.Errorf("Expected pending after one failure, got %s/%d", job.Status, job.Attempts)
	}
	if job.LastError == nil || *job.LastError != "smtp down" {
		t.Errorf("Expected last_error to be recorded, got %v", job.LastError)
	}
	if !job.NextAttemptAt.After(time.Now().UTC()) {
		t.Errorf("Expected the retry to be scheduled in the future, got %v", job.NextAttemptAt)
	}

	// make it due again
	if err := db.Model(&email.EmailJob{}).Where("id = ?", job.ID).
		Update("next_attempt_at", time.Now().UTC().Add(-time.Second)).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := d.DispatchOnce(context.Background()); err != nil {
		t.Fatalf("DispatchOnce: %v", err)
	}
	if job := onlyJob(t, db); job.Status != email.JobFailed || job.Attempts != 2 {
		t.Errorf("Expected failed after max attempts, got %s/%d", job.Status, job.Attempts)
	}
}

func TestDispatchUnknownTemplateFailsPermanently(t *testing.T) {
	db := dbtest.Open(t)
	enqueue(t, db, "no_such_template", nil)

	m := &mailer.Mock{}
	d := email.NewDispatcher(db, email.NewMailerAdapter(m, "shop@geethika.lk", ""), email.NewRenderer(), quiet)
	if _, err := d.DispatchOnce(context.Background()); err != nil {
		t.Fatalf("DispatchOnce: %v", err)
	}
	if job := onlyJob(t, db); job.Status != email.JobFailed {
		t.Errorf("Expected failed, got %s", job.Status)
	}
	if len(m.Sent()) != 0 {
		t.Errorf("Expected nothing sent")
	}
}

func TestRendererEscapesHTML(t *testing.T) {
	msg, err := email.NewRenderer().Render(email.TplOrderStatusChanged, "a@example.com", map[string]any{
		"Name":        "<b>Nimal</b>",
		"OrderNumber": "GDW-1",
		"Status":      "shipped",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if msg.Subject != "Order GDW-1 is now shipped" {
		t.Errorf("Unexpected subject %q", msg.Subject)
	}
	if strings.Contains(msg.HTML, "<b>Nimal</b>") {
		t.Errorf("Expected the name to be escaped in HTML")
	}
	if !strings.Contains(msg.Text, "<b>Nimal</b>") {
		t.Errorf("Expected the raw name in the text body")
	}
	if msg.ToName != "<b>Nimal</b>" {
		t.Errorf("Expected ToName from payload, got %q", msg.ToName)
	}
}
