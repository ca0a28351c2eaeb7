package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

// InquiryData is what every inquiry email renders from.
type InquiryData struct {
	Reference         string
	Name              string
	ContactEmail      string
	CourseName        string
	ServiceType       string
	Urgency           string
	AssignmentDetails string
	AttachmentCount   int
	SubmittedAt       time.Time
}

// Greeting returns the salutation name.
func (d InquiryData) Greeting() string {
	if strings.TrimSpace(d.Name) != "" {
		return d.Name
	}
	return "Student"
}

type quoteData struct {
	InquiryData
	Amount      string
	PaymentLink string
}

type statusData struct {
	InquiryData
	PreviousStatus string
	NewStatus      string
	Reason         string
	Completed      bool
	UpdatedAt      time.Time
}

type staffData struct {
	InquiryData
	AdminURL string
}

// ContactData is one message from the public contact form.
type ContactData struct {
	Name        string
	Email       string
	Subject     string
	Message     string
	SubmittedAt time.Time
}

var funcs = map[string]any{
	"title": titleCase,
	"when":  func(t time.Time) string { return t.UTC().Format("Jan 2, 2006 15:04 MST") },
}

type template struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

func mustTemplate(name, html, text string) template {
	return template{
		html: htmltemplate.Must(htmltemplate.New(name).Funcs(funcs).Parse(html)),
		text: texttemplate.Must(texttemplate.New(name).Funcs(funcs).Parse(text)),
	}
}

func (t template) render(data any) (string, string, error) {
	var h, x bytes.Buffer
	if err := t.html.Execute(&h, data); err != nil {
		return "", "", fmt.Errorf("render %s html: %w", t.html.Name(), err)
	}
	if err := t.text.Execute(&x, data); err != nil {
		return "", "", fmt.Errorf("render %s text: %w", t.text.Name(), err)
	}
	return h.String(), x.String(), nil
}

const footerHTML = `<p>Best regards,<br>The TutorGoat Team</p>
<hr><p style="font-size:12px;color:#6b7280">This is an automated message. Please do not reply to this email.</p>`

var (
	confirmationTmpl = mustTemplate("confirmation", `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<h2>Thank You for Your Inquiry!</h2>
<p>Dear {{.Greeting}},</p>
<p>We have received your tutoring inquiry and will review it shortly. Here are the details:</p>
<p><strong>Inquiry ID:</strong> {{.Reference}}<br>
<strong>Course:</strong> {{.CourseName}}<br>
<strong>Service Type:</strong> {{title .ServiceType}}<br>
<strong>Urgency:</strong> {{title .Urgency}}<br>
<strong>Submitted:</strong> {{when .SubmittedAt}}</p>
<p>Our team will review your assignment and send you a personalized quote within 24 hours.</p>
<p>If you have any questions, please reference your Inquiry ID: <strong>{{.Reference}}</strong></p>
`+footerHTML+`</div>`, `Dear {{.Greeting}},

We have received your tutoring inquiry and will review it shortly.

Inquiry ID: {{.Reference}}
Course: {{.CourseName}}
Service Type: {{title .ServiceType}}
Urgency: {{title .Urgency}}
Submitted: {{when .SubmittedAt}}

Our team will send you a personalized quote within 24 hours.

The TutorGoat Team
`)

	staffTmpl = mustTemplate("staff", `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<h2>New Tutoring Inquiry</h2>
<p><strong>Inquiry ID:</strong> {{.Reference}}<br>
<strong>Course:</strong> {{.CourseName}}<br>
<strong>Service Type:</strong> {{title .ServiceType}}<br>
<strong>Urgency:</strong> {{title .Urgency}}<br>
<strong>Contact Email:</strong> {{.ContactEmail}}<br>
<strong>Submitted:</strong> {{when .SubmittedAt}}<br>
<strong>Files Attached:</strong> {{.AttachmentCount}} file(s)</p>
<h4>Assignment Details:</h4>
<p style="white-space:pre-wrap">{{.AssignmentDetails}}</p>
<p><strong>Action Required:</strong> Please review this inquiry and send a quote to the student within 24 hours.</p>
<p><a href="{{.AdminURL}}">Access Admin Panel</a></p>
</div>`, `New tutoring inquiry {{.Reference}}

Course: {{.CourseName}}
Service Type: {{title .ServiceType}}
Urgency: {{title .Urgency}}
Contact Email: {{.ContactEmail}}
Files Attached: {{.AttachmentCount}}

{{.AssignmentDetails}}

Admin panel: {{.AdminURL}}
`)

	quoteTmpl = mustTemplate("quote", `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<h2>Your Personalized Quote</h2>
<p>Dear {{.Greeting}},</p>
<p>Thank you for your inquiry. We have reviewed your assignment and prepared a personalized quote for you.</p>
<p style="font-size:28px;font-weight:bold">${{.Amount}}</p>
<p><strong>Inquiry ID:</strong> {{.Reference}}</p>
<p><a href="{{.PaymentLink}}">Pay Now &amp; Get Started</a></p>
<p>If you have any questions about this quote, please contact us with your Inquiry ID: <strong>{{.Reference}}</strong></p>
`+footerHTML+`</div>`, `Dear {{.Greeting}},

Your quote for inquiry {{.Reference}} is ${{.Amount}}.

Pay and get started: {{.PaymentLink}}

The TutorGoat Team
`)

	statusTmpl = mustTemplate("status", `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<h2>Inquiry Status Update</h2>
<p>Dear {{.Greeting}},</p>
<p>Your inquiry status has been updated:</p>
<p><strong>Inquiry ID:</strong> {{.Reference}}<br>
<strong>Course:</strong> {{.CourseName}}<br>
<strong>Previous Status:</strong> {{title .PreviousStatus}}<br>
<strong>New Status:</strong> {{title .NewStatus}}<br>
{{if .Reason}}<strong>Reason:</strong> {{.Reason}}<br>{{end}}<strong>Updated:</strong> {{when .UpdatedAt}}</p>
{{if .Completed}}<p><strong>Work Completed:</strong> Your assignment has been completed. Please contact us if you have any questions.</p>{{end}}
<p>If you have any questions about this status update, please contact us with your Inquiry ID: <strong>{{.Reference}}</strong></p>
`+footerHTML+`</div>`, `Dear {{.Greeting}},

Inquiry {{.Reference}} ({{.CourseName}}) moved from {{title .PreviousStatus}} to {{title .NewStatus}}.
{{if .Reason}}Reason: {{.Reason}}
{{end}}
The TutorGoat Team
`)
)

var (
	contactStaffTmpl = mustTemplate("contact_staff", `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<h2>New Contact Form Submission</h2>
<p><strong>Name:</strong> {{.Name}}<br>
<strong>Email:</strong> {{.Email}}<br>
<strong>Subject:</strong> {{.Subject}}<br>
<strong>Submitted:</strong> {{when .SubmittedAt}}</p>
<h4>Message:</h4>
<p style="white-space:pre-wrap">{{.Message}}</p>
<p>Reply to this email to respond to {{.Name}}.</p>
</div>`, `Contact form message from {{.Name}} <{{.Email}}>
Subject: {{.Subject}}
Submitted: {{when .SubmittedAt}}

{{.Message}}
`)

	contactConfirmTmpl = mustTemplate("contact_confirm", `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<h2>Thank You for Contacting Us!</h2>
<p>Dear {{.Name}},</p>
<p>We have received your message and will get back to you within 24 hours.</p>
<p><strong>Subject:</strong> {{.Subject}}</p>
<p style="white-space:pre-wrap">{{.Message}}</p>
`+footerHTML+`</div>`, `Dear {{.Name}},

We have received your message "{{.Subject}}" and will get back to you within 24 hours.

The TutorGoat Team
`)
)

// ContactStaff forwards a contact form message; replies go to the sender.
func ContactStaff(d ContactData, staffEmail string) (Message, error) {
	html, text, err := contactStaffTmpl.render(d)
	if err != nil {
		return Message{}, err
	}
	return Message{To: []string{staffEmail}, ReplyTo: d.Email, Subject: "Contact Form: " + d.Subject, HTML: html, Text: text}, nil
}

// ContactConfirmation acknowledges a contact form message.
func ContactConfirmation(d ContactData) (Message, error) {
	html, text, err := contactConfirmTmpl.render(d)
	if err != nil {
		return Message{}, err
	}
	return Message{To: []string{d.Email}, Subject: "Thank you for contacting TutorGoat", HTML: html, Text: text}, nil
}

// InquiryConfirmation is sent to the student after submitting an inquiry.
func InquiryConfirmation(d InquiryData) (Message, error) {
	html, text, err := confirmationTmpl.render(d)
	if err != nil {
		return Message{}, err
	}
	return Message{To: []string{d.ContactEmail}, Subject: "Inquiry Received - TutorGoat", HTML: html, Text: text}, nil
}

// StaffAlert notifies the team about a new inquiry.
func StaffAlert(d InquiryData, staffEmail, adminURL string) (Message, error) {
	html, text, err := staffTmpl.render(staffData{InquiryData: d, AdminURL: adminURL})
	if err != nil {
		return Message{}, err
	}
	return Message{To: []string{staffEmail}, Subject: "New Inquiry Received - " + d.Reference, HTML: html, Text: text}, nil
}

// Quote sends the quoted amount with a payment link.
func Quote(d InquiryData, amount, paymentLink string) (Message, error) {
	html, text, err := quoteTmpl.render(quoteData{InquiryData: d, Amount: amount, PaymentLink: paymentLink})
	if err != nil {
		return Message{}, err
	}
	return Message{To: []string{d.ContactEmail}, Subject: "Your Quote - " + d.Reference, HTML: html, Text: text}, nil
}

// StatusUpdate tells the student their inquiry moved between statuses.
func StatusUpdate(d InquiryData, previous, next, reason string, at time.Time) (Message, error) {
	html, text, err := statusTmpl.render(statusData{
		InquiryData:    d,
		PreviousStatus: previous,
		NewStatus:      next,
		Reason:         reason,
		Completed:      strings.EqualFold(next, "COMPLETED"),
		UpdatedAt:      at,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: []string{d.ContactEmail}, Subject: "Inquiry Status Update - " + d.Reference, HTML: html, Text: text}, nil
}

// titleCase renders enum values such as IN_PROGRESS or first-time for people.
func titleCase(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
