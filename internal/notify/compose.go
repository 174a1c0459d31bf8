// Package notify renders the daily notification and delivers it to Slack.
package notify

import (
	"strings"

	"workcal/internal/model"
	"workcal/internal/summary"
)

// Message is a Slack Block Kit payload for the incoming webhook.
type Message struct {
	Blocks []Block `json:"blocks"`
}

// Block is a single Block Kit section.
type Block struct {
	Type string `json:"type"`
	Text *Text  `json:"text,omitempty"`
}

// Text is a Block Kit text object.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const headline = ":muscle: *今日の作業*"

// SummaryText renders one "<category>: HH:mm" line per category in the
// summary's column order. Categories with an absent or zero value are
// omitted.
func SummaryText(s *summary.Summary) string {
	var lines []string
	for _, cat := range s.Categories {
		hours, ok := s.Get(cat)
		if !ok || hours == 0 {
			continue
		}
		lines = append(lines, cat+": "+model.HoursToHHmm(hours))
	}
	return strings.Join(lines, "\n")
}

// EventListing renders one "HH:mm〜HH:mm: [category] title" line per
// categorized event, in input order. Uncategorized events are omitted;
// they live in the raw log only.
func EventListing(events []model.CalendarEvent) string {
	var lines []string
	for _, ev := range events {
		if !ev.Categorized() {
			continue
		}
		lines = append(lines,
			model.ToHHmm(ev.Start)+"〜"+model.ToHHmm(ev.End)+": ["+ev.Category+"] "+ev.Title)
	}
	return strings.Join(lines, "\n")
}

// Compose builds the two-section notification: the per-category summary
// and a monospace listing of the day's categorized events. Pure; the
// transport does the posting.
func Compose(events []model.CalendarEvent, s *summary.Summary) *Message {
	return &Message{
		Blocks: []Block{
			{
				Type: "section",
				Text: &Text{Type: "mrkdwn", Text: headline + "\n" + SummaryText(s)},
			},
			{
				Type: "section",
				Text: &Text{Type: "mrkdwn", Text: "```" + EventListing(events) + "```"},
			},
		},
	}
}
