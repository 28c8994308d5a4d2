package schedule

import (
	"cmp"
	"fmt"
	"slices"

	appLog "meetcal/internal/log"
	"meetcal/internal/model"
)

// DefaultMeetingCapHours is the average meeting-only hours per week above
// which a day stops accepting floating meetings.
const DefaultMeetingCapHours = 2.5

// Shuffler permutes the week order of the commit pass. *rand.Rand
// satisfies it; seed it for reproducible runs.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Engine places recurring meetings on the calendar one request at a time.
// It never moves or removes earlier placements.
type Engine struct {
	cal      *Calendar
	rng      Shuffler
	capHours float64
	entries  []model.ScheduleEntry
}

// Option customises an Engine.
type Option func(*Engine)

// WithMeetingCap overrides DefaultMeetingCapHours. Values <= 0 are ignored.
func WithMeetingCap(hours float64) Option {
	return func(e *Engine) {
		if hours > 0 {
			e.capHours = hours
		}
	}
}

// NewEngine wires an engine to the calendar and the week shuffler.
func NewEngine(cal *Calendar, rng Shuffler, opts ...Option) *Engine {
	e := &Engine{cal: cal, rng: rng, capHours: DefaultMeetingCapHours}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Placement is the outcome of one Place call. On ErrPartialCommit Weeks
// lists the weeks that stayed committed.
type Placement struct {
	Name  string
	Day   model.Day
	Start model.Slot
	Weeks []int
	Score float64
}

// Entries returns every committed occurrence in commit order.
func (e *Engine) Entries() []model.ScheduleEntry {
	out := make([]model.ScheduleEntry, len(e.entries))
	copy(out, e.entries)
	return out
}

// Place searches for one day and start slot usable in enough weeks, then
// commits the meeting to that many weeks in shuffled week order.
//
// Candidate days are tried in ascending order of current total load (ties
// in natural day order); a fixed day narrows the set to that day and is
// exempt from the meeting cap. Candidate times are the fixed time, else the
// preferred list, else every slot. The pair with the strictly lowest score
// wins; the score is the mean of totalLoad+duration/2 over the first
// feasible weeks found.
func (e *Engine) Place(req model.MeetingRequest) (Placement, error) {
	placed := Placement{Name: req.Name}
	if err := validateRequest(req); err != nil {
		return placed, err
	}

	occurrences := req.Recurrence.Occurrences()
	best, found := e.search(req, occurrences)
	if !found {
		err := fmt.Errorf("%w for %q (%s)", ErrInfeasible, req.Name, req.Recurrence)
		if req.FixedDay != nil && req.FixedTime != nil && model.Fits(*req.FixedTime, req.Duration) {
			err = fmt.Errorf("%w for %q (%s): %w at %s %s", ErrInfeasible, req.Name, req.Recurrence,
				ErrSlotConflict, *req.FixedDay, *req.FixedTime)
		}
		return placed, err
	}

	placed.Day, placed.Start, placed.Score = best.day, best.start, best.score
	weeks := e.shuffledWeeks()
	var assigned [model.Weeks]bool
	for _, week := range weeks {
		if len(placed.Weeks) == occurrences {
			break
		}
		if assigned[week] || !e.cal.Bookable(week, best.day, best.start, req.Duration) {
			continue
		}
		e.cal.Commit(week, best.day, best.start, req.Duration, true)
		e.entries = append(e.entries, model.ScheduleEntry{
			Week:       week,
			Day:        best.day,
			Start:      best.start,
			Name:       req.Name,
			Category:   req.Category,
			Duration:   req.Duration,
			Recurrence: req.Recurrence,
		})
		assigned[week] = true
		placed.Weeks = append(placed.Weeks, week)
	}

	if len(placed.Weeks) < occurrences {
		return placed, fmt.Errorf("%w: %q placed %d of %d weeks at %s %s",
			ErrPartialCommit, req.Name, len(placed.Weeks), occurrences, best.day, best.start)
	}
	return placed, nil
}

type candidate struct {
	day   model.Day
	start model.Slot
	score float64
}

func (e *Engine) search(req model.MeetingRequest, occurrences int) (candidate, bool) {
	var best candidate
	found := false
	halfHours := float64(req.Duration) * 0.5

	for _, day := range e.candidateDays(req) {
		if req.FixedDay == nil && e.cal.meetingLoad[day]/model.Weeks > e.capHours {
			appLog.Debug("day over meeting cap; skipped",
				"meeting", req.Name, "day", day, "meeting_hours", e.cal.meetingLoad[day])
			continue
		}
		for _, start := range candidateTimes(req) {
			feasible := 0
			sum := 0.0
			for week := 0; week < model.Weeks && feasible < occurrences; week++ {
				if e.cal.Bookable(week, day, start, req.Duration) {
					feasible++
					sum += e.cal.totalLoad[day] + halfHours
				}
			}
			if feasible < occurrences {
				continue
			}
			score := sum / float64(feasible)
			if !found || score < best.score {
				best = candidate{day: day, start: start, score: score}
				found = true
			}
		}
	}
	return best, found
}

func (e *Engine) candidateDays(req model.MeetingRequest) []model.Day {
	if req.FixedDay != nil {
		return []model.Day{*req.FixedDay}
	}
	days := model.Days()
	slices.SortStableFunc(days, func(a, b model.Day) int {
		return cmp.Compare(e.cal.totalLoad[a], e.cal.totalLoad[b])
	})
	return days
}

func candidateTimes(req model.MeetingRequest) []model.Slot {
	if req.FixedTime != nil {
		return []model.Slot{*req.FixedTime}
	}
	if len(req.Preferred) > 0 {
		return req.Preferred
	}
	all := make([]model.Slot, model.SlotsPerDay)
	for i := range all {
		all[i] = model.Slot(i)
	}
	return all
}

func (e *Engine) shuffledWeeks() []int {
	weeks := make([]int, model.Weeks)
	for i := range weeks {
		weeks[i] = i
	}
	if e.rng != nil {
		e.rng.Shuffle(len(weeks), func(i, j int) { weeks[i], weeks[j] = weeks[j], weeks[i] })
	}
	return weeks
}

func validateRequest(req model.MeetingRequest) error {
	if req.Duration < 1 || req.Duration > model.MaxDurationSlots {
		return fmt.Errorf("%w: %q duration %d slots", ErrInvalidInput, req.Name, req.Duration)
	}
	if !req.Recurrence.Valid() {
		return fmt.Errorf("%w: %q recurrence %d", ErrInvalidInput, req.Name, req.Recurrence)
	}
	if req.FixedDay != nil && !req.FixedDay.Valid() {
		return fmt.Errorf("%w: %q fixed day %d", ErrInvalidInput, req.Name, *req.FixedDay)
	}
	if req.FixedTime != nil && !req.FixedTime.Valid() {
		return fmt.Errorf("%w: %q fixed time slot %d", ErrInvalidInput, req.Name, *req.FixedTime)
	}
	for _, s := range req.Preferred {
		if !s.Valid() {
			return fmt.Errorf("%w: %q preferred slot %d", ErrInvalidInput, req.Name, s)
		}
	}
	return nil
}
