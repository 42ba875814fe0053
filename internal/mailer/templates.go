package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"sipelan-service/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

const dateLayout = "02 January 2006 15:04 MST"

// Templates renders the reporter facing emails.
type Templates struct {
	receipt         *template.Template
	statusChange    *template.Template
	trackingBaseURL string
	loc             *time.Location
}

func NewTemplates(trackingBaseURL string, loc *time.Location) (*Templates, error) {
	if loc == nil {
		loc = time.UTC
	}
	receipt, err := template.ParseFS(templateFS, "templates/receipt.html")
	if err != nil {
		return nil, fmt.Errorf("parse receipt template: %w", err)
	}
	statusChange, err := template.ParseFS(templateFS, "templates/status_change.html")
	if err != nil {
		return nil, fmt.Errorf("parse status change template: %w", err)
	}
	return &Templates{
		receipt:         receipt,
		statusChange:    statusChange,
		trackingBaseURL: strings.TrimRight(trackingBaseURL, "/"),
		loc:             loc,
	}, nil
}

type receiptData struct {
	ReporterName string
	Code         string
	Title        string
	CreatedAt    string
	Status       string
	TrackingURL  string
}

type statusChangeData struct {
	ReporterName string
	Code         string
	Title        string
	OldStatus    string
	OldCode      string
	NewStatus    string
	NewCode      string
	UpdatedAt    string
	Note         string
	TrackingURL  string
}

func (t *Templates) SubmissionReceipt(complaint model.Complaint) (string, string, error) {
	data := receiptData{
		ReporterName: complaint.ReporterName,
		Code:         complaint.Code,
		Title:        complaint.Title,
		CreatedAt:    complaint.CreatedAt.In(t.loc).Format(dateLayout),
		Status:       complaint.Status.Label(),
		TrackingURL:  t.trackingURL(complaint.Code),
	}
	var buf bytes.Buffer
	if err := t.receipt.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render receipt: %w", err)
	}
	subject := fmt.Sprintf("Pengaduan %s telah diterima", complaint.Code)
	return subject, buf.String(), nil
}

func (t *Templates) StatusChange(complaint model.Complaint, from, to model.ComplaintStatus, note string) (string, string, error) {
	data := statusChangeData{
		ReporterName: complaint.ReporterName,
		Code:         complaint.Code,
		Title:        complaint.Title,
		OldStatus:    from.Label(),
		OldCode:      string(from),
		NewStatus:    to.Label(),
		NewCode:      string(to),
		UpdatedAt:    complaint.UpdatedAt.In(t.loc).Format(dateLayout),
		Note:         note,
		TrackingURL:  t.trackingURL(complaint.Code),
	}
	var buf bytes.Buffer
	if err := t.statusChange.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render status change: %w", err)
	}
	subject := fmt.Sprintf("Status pengaduan %s: %s", complaint.Code, to.Label())
	return subject, buf.String(), nil
}

func (t *Templates) trackingURL(code string) string {
	if t.trackingBaseURL == "" {
		return ""
	}
	return t.trackingBaseURL + "/" + url.PathEscape(code)
}
