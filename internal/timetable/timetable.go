// Package timetable renders a committed schedule as a plain-text weekly view.
package timetable

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"meetcal/internal/model"
)

// Row is one line of a day's listing.
type Row struct {
	Start      model.Slot
	Duration   int
	Name       string
	Category   model.Category
	Recurrence model.Recurrence
}

func (r Row) String() string {
	return fmt.Sprintf("%s–%s - %s (%s, %d min, %s)",
		r.Start.Clock(), r.Start.EndClock(r.Duration), r.Name, r.Category, r.Duration*model.SlotMinutes, r.Recurrence)
}

// Summary holds the per-day averages over the cycle.
type Summary struct {
	MeetingHours [model.DaysPerWeek]float64
	TotalHours   [model.DaysPerWeek]float64
}

// View is the week/day grouping of a schedule.
type View struct {
	Weeks   [model.Weeks][model.DaysPerWeek][]Row
	Summary Summary
}

// Build groups entries and reservations by week and day. Reservations appear
// in every week. Rows are ordered by start slot; ties keep input order with
// reservations first.
func Build(entries []model.ScheduleEntry, reservations []model.Reservation) View {
	var v View
	for week := 0; week < model.Weeks; week++ {
		for _, r := range reservations {
			v.Weeks[week][r.Day] = append(v.Weeks[week][r.Day], Row{
				Start:      r.Start,
				Duration:   r.Duration,
				Name:       "Reserved (External)",
				Category:   model.Reserved,
				Recurrence: model.Weekly,
			})
		}
	}
	for _, r := range reservations {
		v.Summary.TotalHours[r.Day] += float64(r.Duration) * 0.5
	}
	for _, e := range entries {
		if e.Week < 0 || e.Week >= model.Weeks || !e.Day.Valid() {
			continue
		}
		v.Weeks[e.Week][e.Day] = append(v.Weeks[e.Week][e.Day], Row{
			Start:      e.Start,
			Duration:   e.Duration,
			Name:       e.Name,
			Category:   e.Category,
			Recurrence: e.Recurrence,
		})
		hours := float64(e.Duration) * 0.5 / model.Weeks
		v.Summary.MeetingHours[e.Day] += hours
		v.Summary.TotalHours[e.Day] += hours
	}
	for week := range v.Weeks {
		for day := range v.Weeks[week] {
			slices.SortStableFunc(v.Weeks[week][day], func(a, b Row) int {
				return cmp.Compare(a.Start, b.Start)
			})
		}
	}
	return v
}

// Render writes the timetable to w. Headings are styled for w's terminal
// capabilities and come out plain for files and pipes.
func Render(w io.Writer, entries []model.ScheduleEntry, reservations []model.Reservation) error {
	v := Build(entries, reservations)
	r := lipgloss.NewRenderer(w)
	title := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	weekHead := r.NewStyle().Bold(true)
	dayHead := r.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	muted := r.NewStyle().Foreground(lipgloss.Color("#888888"))

	var b strings.Builder
	b.WriteString(title.Render(fmt.Sprintf("Meeting schedule (%d-week cycle)", model.Weeks)))
	b.WriteString("\n")
	for week := range v.Weeks {
		b.WriteString("\n")
		b.WriteString(weekHead.Render(fmt.Sprintf("Week %d", week+1)))
		b.WriteString("\n")
		for _, day := range model.Days() {
			b.WriteString("  ")
			b.WriteString(dayHead.Render(day.String() + ":"))
			b.WriteString("\n")
			rows := v.Weeks[week][day]
			if len(rows) == 0 {
				b.WriteString("    ")
				b.WriteString(muted.Render("No meetings."))
				b.WriteString("\n")
				continue
			}
			for _, row := range rows {
				b.WriteString("    ")
				b.WriteString(row.String())
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(summaryLine("Average meeting hours per day:", v.Summary.MeetingHours))
	b.WriteString(summaryLine("Total hours per day (meetings + reservations):", v.Summary.TotalHours))

	_, err := io.WriteString(w, b.String())
	return err
}

func summaryLine(label string, hours [model.DaysPerWeek]float64) string {
	var b strings.Builder
	b.WriteString(label)
	for _, d := range model.Days() {
		fmt.Fprintf(&b, " %s: %.1f", d, hours[d])
	}
	b.WriteString("\n")
	return b.String()
}
