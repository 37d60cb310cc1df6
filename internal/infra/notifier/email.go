package notifier

import (
	"fmt"
	"html"
	"strings"
)

// renderEmailText renders an alert as the plain-text email body.
func renderEmailText(alert *Alert) string {
	var b strings.Builder
	b.WriteString(alert.Body)
	if len(alert.Links) > 0 {
		b.WriteString("\n\n")
		for _, link := range alert.Links {
			fmt.Fprintf(&b, "- %s\n  %s\n", link.Title, link.URL)
		}
	}
	fmt.Fprintf(&b, "\nalert: %s at %s\n", alert.Key, alert.FiredAt.UTC().Format("2006-01-02 15:04 MST"))
	return b.String()
}

// renderEmailHTML renders an alert as a minimal HTML email body.
func renderEmailHTML(alert *Alert) string {
	var b strings.Builder
	b.WriteString("<h2>" + html.EscapeString(alert.Title) + "</h2>")
	for _, line := range strings.Split(alert.Body, "\n") {
		b.WriteString("<p>" + html.EscapeString(line) + "</p>")
	}
	if len(alert.Links) > 0 {
		b.WriteString("<ul>")
		for _, link := range alert.Links {
			fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`,
				html.EscapeString(link.URL), html.EscapeString(link.Title))
		}
		b.WriteString("</ul>")
	}
	fmt.Fprintf(&b, "<p><small>alert: %s at %s</small></p>",
		html.EscapeString(alert.Key), alert.FiredAt.UTC().Format("2006-01-02 15:04 MST"))
	return b.String()
}

// emailSubject builds the subject line with a severity prefix.
func emailSubject(alert *Alert) string {
	prefix := "[KyNews]"
	switch alert.Severity {
	case SeverityEmergency:
		prefix = "[KyNews EMERGENCY]"
	case SeverityBreaking:
		prefix = "[KyNews BREAKING]"
	case SeverityWarning:
		prefix = "[KyNews warning]"
	}
	return prefix + " " + alert.Title
}
