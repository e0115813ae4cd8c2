package notify

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"mime/quotedprintable"
	"strings"
	"time"

	"github.com/fmuoria/nexushire/internal/eligibility"
)

const (
	brandGradient = "linear-gradient(135deg,#667eea,#764ba2)"
	neutralHeader = "#111827"
)

//go:embed email.html
var emailHTML string

var emailTemplate = template.Must(template.New("email").Parse(emailHTML))

// Message is a candidate decision notice before rendering.
type Message struct {
	To       string
	Decision string
	Company  string
	Tagline  string
	Role     string
}

// Rendered is a subject and HTML body ready for delivery.
type Rendered struct {
	Subject string
	HTML    string
}

// Render produces the branded notice for msg.Decision.
func Render(msg Message) (Rendered, error) {
	eligible := eligibility.IsEligible(msg.Decision)

	data := struct {
		Company  string
		Tagline  string
		Role     string
		Eligible bool
		MeetLink string
		HeaderBG template.CSS
	}{
		Company:  msg.Company,
		Tagline:  msg.Tagline,
		Role:     msg.Role,
		Eligible: eligible,
		HeaderBG: neutralHeader,
	}

	subject := fmt.Sprintf("Application Update – %s | %s", msg.Role, msg.Company)
	if eligible {
		subject = fmt.Sprintf("🎉 Interview Invitation – %s | %s", msg.Role, msg.Company)
		data.MeetLink = eligibility.MeetLink(msg.Decision)
		data.HeaderBG = brandGradient
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return Rendered{}, fmt.Errorf("render email: %w", err)
	}

	return Rendered{Subject: subject, HTML: buf.String()}, nil
}

// ErrHeaderInjection is returned when a header value contains a line break.
var ErrHeaderInjection = errors.New("header value contains a line break")

// BuildMIME assembles an RFC 822 HTML message.
func BuildMIME(from, to string, r Rendered) ([]byte, error) {
	for _, v := range []string{from, to} {
		if strings.ContainsAny(v, "\r\n") {
			return nil, fmt.Errorf("%w: %q", ErrHeaderInjection, v)
		}
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("From: %s\r\n", from))
	builder.WriteString(fmt.Sprintf("To: %s\r\n", to))
	builder.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", r.Subject)))
	builder.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	builder.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	builder.WriteString("\r\n")

	var body bytes.Buffer
	qp := quotedprintable.NewWriter(&body)
	if _, err := qp.Write([]byte(r.HTML)); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	builder.Write(body.Bytes())

	return []byte(builder.String()), nil
}
