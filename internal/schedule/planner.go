package schedule

import (
	appLog "meetcal/internal/log"
	"meetcal/internal/model"
)

// Catalogue is one scheduling run's input, processed strictly in order:
// all reservations first, then meetings.
type Catalogue struct {
	Reservations []model.ReservationSpec
	Meetings     []model.MeetingSpec
}

// OutcomeKind tells reservations and meetings apart in a Result.
type OutcomeKind string

const (
	OutcomeReservation OutcomeKind = "reservation"
	OutcomeMeeting     OutcomeKind = "meeting"
)

// Outcome reports what happened to one catalogue item.
type Outcome struct {
	Kind OutcomeKind
	Name string
	Err  error

	// Placement is set for meetings that reached the commit pass, including
	// partial commits.
	Placement *Placement
	// Reservation is set for accepted reservations.
	Reservation *model.Reservation
}

func (o Outcome) OK() bool { return o.Err == nil }

// Result is the committed state after a run.
type Result struct {
	Entries      []model.ScheduleEntry
	Reservations []model.Reservation
	Outcomes     []Outcome
	Loads        []DayLoad
}

// Failed counts outcomes with an error.
func (r Result) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.OK() {
			n++
		}
	}
	return n
}

// Planner owns the calendar, reservation book and engine of one run.
type Planner struct {
	Calendar *Calendar
	Book     *Book
	Engine   *Engine
}

// NewPlanner builds a fresh run on an empty calendar.
func NewPlanner(rng Shuffler, opts ...Option) *Planner {
	cal := NewCalendar()
	return &Planner{
		Calendar: cal,
		Book:     NewBook(cal),
		Engine:   NewEngine(cal, rng, opts...),
	}
}

// Run processes the catalogue. A failed item is reported in its Outcome and
// the run continues with the next one.
func (p *Planner) Run(cat Catalogue) Result {
	var res Result

	for _, spec := range cat.Reservations {
		out := Outcome{Kind: OutcomeReservation, Name: spec.String()}
		r, err := p.Book.Reserve(spec)
		if err != nil {
			out.Err = err
			appLog.Warn("reservation rejected", "reservation", out.Name, "source", spec.Source, "kind", KindOf(err), "err", err)
		} else {
			out.Reservation = &r
			appLog.Debug("reservation booked", "reservation", out.Name, "source", spec.Source)
		}
		res.Outcomes = append(res.Outcomes, out)
	}

	for _, spec := range cat.Meetings {
		out := Outcome{Kind: OutcomeMeeting, Name: spec.Name}
		req, err := spec.Request()
		if err != nil {
			out.Err = err
			appLog.Warn("meeting rejected", "meeting", spec.Name, "kind", KindOf(err), "err", err)
			res.Outcomes = append(res.Outcomes, out)
			continue
		}
		placed, err := p.Engine.Place(req)
		if len(placed.Weeks) > 0 {
			out.Placement = &placed
		}
		if err != nil {
			out.Err = err
			appLog.Warn("meeting not placed", "meeting", req.Name, "kind", KindOf(err), "weeks", placed.Weeks, "err", err)
		} else {
			appLog.Info("meeting placed",
				"meeting", req.Name,
				"day", placed.Day,
				"time", placed.Start,
				"weeks", placed.Weeks,
				"recurrence", req.Recurrence,
			)
		}
		res.Outcomes = append(res.Outcomes, out)
	}

	res.Entries = p.Engine.Entries()
	res.Reservations = p.Book.Reservations()
	res.Loads = p.Calendar.Loads()
	return res
}
