package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"meetcal/internal/config"
	"meetcal/internal/ics"
	appLog "meetcal/internal/log"
	"meetcal/internal/model"
	"meetcal/internal/schedule"
	"meetcal/internal/web"
)

// planner runs the whole pipeline: busy calendars, catalogue, placement.
type planner struct {
	cfg     *config.Config
	fetcher *ics.Fetcher
}

func newPlanner(cfg *config.Config) *planner {
	return &planner{cfg: cfg, fetcher: ics.NewFetcher(cfg.CacheDir)}
}

// plan builds one run with the given seed. Individual request failures are
// part of the result; only configuration problems return an error.
func (p *planner) plan(ctx context.Context, seed int64) (*web.Plan, error) {
	epoch, err := p.cfg.EpochTime()
	if err != nil {
		return nil, err
	}
	loc, err := p.cfg.Location()
	if err != nil {
		return nil, err
	}

	cat := p.cfg.Catalogue()
	busy, failedFeeds := p.busyReservations(ctx, epoch)
	cat.Reservations = append(busy, cat.Reservations...)

	run := schedule.NewPlanner(rand.New(rand.NewSource(seed)), schedule.WithMeetingCap(p.cfg.MeetingCapHours))
	res := run.Run(cat)

	if err := schedule.Audit(res.Entries, res.Reservations); err != nil {
		return nil, fmt.Errorf("plan audit: %w", err)
	}
	if err := run.Calendar.CheckLoads(res.Entries, res.Reservations); err != nil {
		return nil, fmt.Errorf("plan audit: %w", err)
	}

	appLog.Info("plan complete",
		"seed", seed,
		"entries", len(res.Entries),
		"reservations", len(res.Reservations),
		"busy_reservations", len(busy),
		"failed_feeds", failedFeeds,
		"failed", res.Failed(),
	)
	return &web.Plan{
		Result:      res,
		Seed:        seed,
		Epoch:       epoch,
		Location:    loc,
		GeneratedAt: time.Now(),
		FailedFeeds: failedFeeds,
	}, nil
}

// busyReservations imports the configured busy calendars. Feeds that fail
// to fetch or parse are logged, counted and left out.
func (p *planner) busyReservations(ctx context.Context, epoch time.Time) ([]model.ReservationSpec, int) {
	sources := p.cfg.Sources()
	if len(sources) == 0 {
		return nil, 0
	}
	feeds, errs := p.fetcher.FetchAll(ctx, sources)

	failed := len(errs)
	var occs []ics.Occurrence
	for _, feed := range feeds {
		events, err := ics.ParseICS(feed.Source, feed.Body)
		if err != nil {
			appLog.Error("busy calendar unreadable", err, "id", feed.Source.ID)
			failed++
			continue
		}
		expanded, err := ics.Expand(events, ics.CycleWindow(epoch))
		if err != nil {
			appLog.Error("busy calendar expansion failed", err, "id", feed.Source.ID)
			failed++
			continue
		}
		occs = append(occs, expanded...)
	}

	specs, skipped := ics.BusyReservations(occs, epoch)
	for _, o := range skipped {
		appLog.Debug("busy event not on the grid; ignored",
			"id", o.SourceID, "summary", o.Summary, "start", o.Start.Format(time.RFC3339), "all_day", o.AllDay)
	}
	appLog.Info("busy calendars imported", "feeds", len(feeds), "failed_feeds", failed, "occurrences", len(occs), "reservations", len(specs), "skipped", len(skipped))
	return specs, failed
}

func seedOrClock(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}
