package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
)

type Kind string

const (
	Confirmation Kind = "confirmation"
	Reminder     Kind = "reminder"
	Cancellation Kind = "cancellation"
)

// AppointmentData is the view handed to the appointment templates.
// Times are preformatted in the business time zone.
type AppointmentData struct {
	CustomerName string
	Title        string
	TypeName     string
	StaffName    string
	Date         string
	StartTime    string
	EndTime      string
	Location     string
	MeetingURL   string
	Description  string
}

var subjects = map[Kind]string{
	Confirmation: "Appointment confirmed - %s",
	Reminder:     "Appointment reminder - %s",
	Cancellation: "Appointment cancelled - %s",
}

var intros = map[Kind]string{
	Confirmation: "Your appointment has been scheduled.",
	Reminder:     "This is a reminder of your upcoming appointment.",
	Cancellation: "Your appointment has been cancelled. Contact us if you would like to reschedule.",
}

const textBody = `Hello {{.Data.CustomerName}},

{{.Intro}}

{{.Data.Title}}{{if .Data.TypeName}} ({{.Data.TypeName}}){{end}}
Date: {{.Data.Date}}, {{.Data.StartTime}} - {{.Data.EndTime}}
{{- if .Data.StaffName}}
With: {{.Data.StaffName}}{{end}}
{{- if .Data.Location}}
Location: {{.Data.Location}}{{end}}
{{- if .Data.MeetingURL}}
Meeting link: {{.Data.MeetingURL}}{{end}}
{{- if .Data.Description}}

{{.Data.Description}}{{end}}
`

const htmlBody = `<html><body>
<p>Hello {{.Data.CustomerName}},</p>
<p>{{.Intro}}</p>
<table>
<tr><th align="left">Appointment</th><td>{{.Data.Title}}{{if .Data.TypeName}} ({{.Data.TypeName}}){{end}}</td></tr>
<tr><th align="left">Date</th><td>{{.Data.Date}}, {{.Data.StartTime}} - {{.Data.EndTime}}</td></tr>
{{- if .Data.StaffName}}
<tr><th align="left">With</th><td>{{.Data.StaffName}}</td></tr>{{end}}
{{- if .Data.Location}}
<tr><th align="left">Location</th><td>{{.Data.Location}}</td></tr>{{end}}
{{- if .Data.MeetingURL}}
<tr><th align="left">Meeting</th><td><a href="{{.Data.MeetingURL}}">{{.Data.MeetingURL}}</a></td></tr>{{end}}
</table>
{{- if .Data.Description}}
<p>{{.Data.Description}}</p>{{end}}
</body></html>
`

var (
	textTmpl = template.Must(template.New("text").Parse(textBody))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(htmlBody))
)

// Render builds the message of the given kind addressed to to.
func Render(kind Kind, to string, data AppointmentData) (*Message, error) {
	subject, ok := subjects[kind]
	if !ok {
		return nil, fmt.Errorf("unknown email kind %q", kind)
	}

	view := struct {
		Intro string
		Data  AppointmentData
	}{Intro: intros[kind], Data: data}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, view); err != nil {
		return nil, fmt.Errorf("render %s text: %w", kind, err)
	}
	if err := htmlTmpl.Execute(&html, view); err != nil {
		return nil, fmt.Errorf("render %s html: %w", kind, err)
	}

	return &Message{
		To:      to,
		Subject: fmt.Sprintf(subject, data.Title),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
