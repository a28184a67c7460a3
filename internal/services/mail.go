package services

import (
	"bytes"
	"fmt"
	"html/template"
	"package-tracking-service/internal/domain"
	"package-tracking-service/internal/ports"
)

var (
	registeredTmpl = template.Must(template.New("registered").Parse(
		`<p>Hello {{.Recipient.FullName}},</p>
<p>A package from {{.Sender.FullName}} has been registered for you.</p>
<p>Tracking number: <b>{{.TrackingNumber}}</b><br>Status: {{.StatusText}}</p>
{{if .Description}}<p>{{.Description}}</p>{{end}}`))

	statusTmpl = template.Must(template.New("status").Parse(
		`<p>Hello {{.Recipient.FullName}},</p>
<p>Your package <b>{{.TrackingNumber}}</b> is now <b>{{.StatusText}}</b> ({{.Progress}}%).</p>
<p>Location: {{.Location}}</p>
{{if .Note}}<p>{{.Note}}</p>{{end}}`))

	operatorTmpl = template.Must(template.New("operator").Parse(
		`<p>Hello {{.Recipient.FullName}},</p>
<p>{{.Message}}</p>
<p>Tracking number: <b>{{.TrackingNumber}}</b></p>`))
)

type mailView struct {
	TrackingNumber string
	StatusText     string
	Progress       int
	Location       string
	Description    string
	Note           string
	Message        string
	Sender         domain.Party
	Recipient      domain.Party
}

func newMailView(pkg *domain.Package) mailView {
	d := domain.Derive(pkg)
	return mailView{
		TrackingNumber: pkg.TrackingNumber,
		StatusText:     d.StatusText,
		Progress:       d.Progress,
		Location:       d.CurrentLocation.Address,
		Description:    pkg.Description,
		Sender:         pkg.Sender,
		Recipient:      pkg.Recipient,
	}
}

func renderMail(to, subject string, tmpl *template.Template, view mailView) (ports.Mail, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return ports.Mail{}, fmt.Errorf("render %s mail: %w", tmpl.Name(), err)
	}
	return ports.Mail{To: to, Subject: subject, HTMLBody: buf.String()}, nil
}

func registeredMail(pkg *domain.Package) (ports.Mail, error) {
	return renderMail(
		pkg.Recipient.Email,
		fmt.Sprintf("Package %s registered", pkg.TrackingNumber),
		registeredTmpl,
		newMailView(pkg),
	)
}

func statusMail(pkg *domain.Package, cp domain.Checkpoint) (ports.Mail, error) {
	view := newMailView(pkg)
	view.Note = cp.Description
	return renderMail(
		pkg.Recipient.Email,
		fmt.Sprintf("Your package %s is %s", pkg.TrackingNumber, view.StatusText),
		statusTmpl,
		view,
	)
}

func operatorMail(pkg *domain.Package, subject, message string) (ports.Mail, error) {
	view := newMailView(pkg)
	view.Message = message
	return renderMail(pkg.Recipient.Email, subject, operatorTmpl, view)
}
