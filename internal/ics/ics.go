// Package ics parses the iCalendar files published by county school
// districts. It decodes only what calendar sync needs: VEVENT blocks with
// UID, SUMMARY, LOCATION, URL, and the DATE / DATE-TIME forms of DTSTART
// and DTEND. Everything else is skipped.
package ics

import (
	"fmt"
	"strings"
	"time"
)

// Event is one VEVENT from a district calendar. AllDay is true when
// DTSTART carried a bare DATE value.
type Event struct {
	UID      string
	Summary  string
	Location string
	URL      string
	Start    time.Time
	End      *time.Time
	AllDay   bool
}

// textEscapes undoes the iCalendar TEXT escaping rules.
var textEscapes = strings.NewReplacer(
	`\\`, `\`,
	`\,`, ",",
	`\;`, ";",
	`\n`, "\n",
	`\N`, "\n",
)

// Parse extracts the events from iCalendar text. Events without a
// decodable DTSTART are dropped; a document without a VCALENDAR header is
// an error so the caller can try the next candidate path.
func Parse(data string) ([]Event, error) {
	if !strings.Contains(data, "BEGIN:VCALENDAR") {
		return nil, fmt.Errorf("not an icalendar document")
	}

	var (
		events  []Event
		current *Event
	)
	for _, line := range unfold(data) {
		switch {
		case line == "BEGIN:VEVENT":
			current = &Event{}
		case line == "END:VEVENT":
			if current != nil && !current.Start.IsZero() {
				events = append(events, *current)
			}
			current = nil
		case current != nil:
			applyProperty(current, line)
		}
	}
	return events, nil
}

// unfold splits the document into logical lines. A physical line starting
// with a space or tab continues the previous one.
func unfold(data string) []string {
	raw := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")

	var lines []string
	for _, line := range raw {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += line[1:]
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func applyProperty(ev *Event, line string) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return
	}
	name, value := line[:idx], line[idx+1:]

	params := ""
	if p := strings.Index(name, ";"); p >= 0 {
		name, params = name[:p], name[p+1:]
	}

	switch strings.ToUpper(name) {
	case "UID":
		ev.UID = strings.TrimSpace(value)
	case "SUMMARY":
		ev.Summary = textEscapes.Replace(strings.TrimSpace(value))
	case "LOCATION":
		ev.Location = textEscapes.Replace(strings.TrimSpace(value))
	case "URL":
		ev.URL = strings.TrimSpace(value)
	case "DTSTART":
		if t, allDay, ok := parseDateTime(value, params); ok {
			ev.Start = t
			ev.AllDay = allDay
		}
	case "DTEND":
		if t, _, ok := parseDateTime(value, params); ok {
			ev.End = &t
		}
	}
}

// parseDateTime decodes the two value forms district calendars publish:
// an eight digit DATE and the basic DATE-TIME, with or without the Z
// suffix. Zoned times are treated as UTC; school events only need day
// precision.
func parseDateTime(value, params string) (time.Time, bool, bool) {
	value = strings.TrimSpace(value)

	isDate := strings.Contains(strings.ToUpper(params), "VALUE=DATE") && !strings.Contains(value, "T")
	if isDate || len(value) == 8 {
		t, err := time.Parse("20060102", value)
		if err != nil {
			return time.Time{}, false, false
		}
		return t, true, true
	}

	for _, layout := range []string{"20060102T150405Z", "20060102T150405"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), false, true
		}
	}
	return time.Time{}, false, false
}
