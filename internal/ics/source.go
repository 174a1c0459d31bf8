package ics

import (
	"context"
	"sort"
	"time"

	"workcal/internal/errs"
	"workcal/internal/log"
	"workcal/internal/model"
)

// Lister yields one day's eligible events across all configured sources,
// already filtered to timed events the user owns or accepted.
type Lister struct {
	fetcher   *Fetcher
	sources   []Source
	userEmail string
	loc       *time.Location
}

// NewLister builds the event source. userEmail identifies the calendar
// owner in ATTENDEE/ORGANIZER properties; when empty, attendance checks
// are skipped and every event counts as owned (single-user feeds rarely
// carry attendee lists at all).
func NewLister(fetcher *Fetcher, sources []Source, userEmail string, loc *time.Location) *Lister {
	return &Lister{
		fetcher:   fetcher,
		sources:   sources,
		userEmail: stripMailto(userEmail),
		loc:       loc,
	}
}

// ListEventsForDate returns the raw events starting on the given day,
// ordered by start time. Sources that fail to fetch are skipped unless
// every source failed, which aborts the run.
func (l *Lister) ListEventsForDate(ctx context.Context, date model.CivilDate) ([]model.RawEvent, error) {
	dayStart := date.Midnight(l.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	results, fetchErrs := l.fetcher.FetchAll(ctx, l.sources)
	if len(results) == 0 && len(fetchErrs) > 0 {
		return nil, errs.Wrap(errs.CodeTransport, fetchErrs[0], "all %d calendar sources failed", len(l.sources))
	}

	var raws []model.RawEvent
	for _, res := range results {
		parsed, err := Parse(res.Source, res.Body)
		if err != nil {
			log.Error("skipping unparseable source", err, "id", res.Source.ID)
			continue
		}
		for _, occ := range expandDay(parsed, dayStart, dayEnd, l.loc) {
			raw := model.RawEvent{
				Title:    occ.event.Summary,
				Color:    occ.event.Color,
				AllDay:   occ.event.AllDay,
				MyStatus: l.myStatus(occ.event),
				Start:    occ.start,
				End:      occ.end,
			}
			if !raw.Eligible() {
				log.Debug("excluding event", "title", raw.Title, "all_day", raw.AllDay, "status", raw.MyStatus)
				continue
			}
			raws = append(raws, raw)
		}
	}

	sort.Slice(raws, func(i, j int) bool { return raws[i].Start.Before(raws[j].Start) })

	log.Info("events listed", "date", date.String(), "count", len(raws))
	return raws, nil
}

// myStatus derives the user's attendance for one event. Events without
// an attendee list are the user's own blocks.
func (l *Lister) myStatus(ev ParsedEvent) model.AttendStatus {
	if l.userEmail == "" || len(ev.Attendees) == 0 || ev.Organizer == l.userEmail {
		return model.StatusOwner
	}
	for _, att := range ev.Attendees {
		if att.Email != l.userEmail {
			continue
		}
		switch att.PartStat {
		case "ACCEPTED":
			return model.StatusAccepted
		case "DECLINED":
			return model.StatusDeclined
		case "TENTATIVE":
			return model.StatusTentative
		default:
			return model.StatusNeedsAction
		}
	}
	// Invited parties are listed but the user is not among them: not the
	// user's event to count.
	return model.StatusNeedsAction
}
