package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"meetcal/internal/config"
	"meetcal/internal/ics"
	appLog "meetcal/internal/log"
	"meetcal/internal/timetable"
	"meetcal/internal/web"
)

type flagConfig struct {
	configPath string
	seed       int64
	icsPath    string
	serve      bool
	listen     string
	logLevel   string
}

func main() {
	flags := parseFlags()
	os.Exit(run(flags))
}

func run(flags flagConfig) int {
	defer appLog.Sync()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return 1
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.icsPath != "" {
		conf.ExportPath = flags.icsPath
	}
	if flags.seed != 0 {
		conf.Seed = flags.seed
	}
	level := conf.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(level))

	appLog.Info("effective config",
		"config_path", flags.configPath,
		"epoch", conf.Epoch,
		"timezone", conf.Timezone,
		"meetings", len(conf.Meetings),
		"reservations", len(conf.Reservations),
		"busy_calendars", len(conf.BusyCalendars),
		"meeting_cap_hours", conf.MeetingCapHours,
		"serve", flags.serve,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p := newPlanner(conf)
	if flags.serve {
		if err := serve(ctx, conf, p); err != nil {
			appLog.Error("server stopped", err)
			return 1
		}
		return 0
	}

	seed := seedOrClock(conf.Seed)
	appLog.Info("planning", "seed", seed)
	plan, err := p.plan(ctx, seed)
	if err != nil {
		appLog.Error("planning failed", err)
		return 1
	}
	if err := timetable.Render(os.Stdout, plan.Result.Entries, plan.Result.Reservations); err != nil {
		appLog.Error("timetable render failed", err)
		return 1
	}
	for _, o := range plan.Result.Outcomes {
		if !o.OK() {
			fmt.Fprintf(os.Stderr, "Error: %s %q: %v\n", o.Kind, o.Name, o.Err)
		}
	}
	if err := export(conf, plan); err != nil {
		appLog.Error("export failed", err, "path", conf.ExportPath)
		return 1
	}
	return 0
}

func export(conf *config.Config, plan *web.Plan) error {
	if conf.ExportPath == "" {
		return nil
	}
	err := ics.WriteFile(conf.ExportPath, plan.Result.Entries, plan.Result.Reservations, ics.ExportOptions{
		Epoch:    plan.Epoch,
		Location: plan.Location,
		Now:      plan.GeneratedAt,
	})
	if err != nil {
		return err
	}
	appLog.Info("schedule exported", "path", conf.ExportPath)
	return nil
}

// serve plans once, then replans on the refresh schedule with a fresh seed
// unless the config pins one.
func serve(ctx context.Context, conf *config.Config, p *planner) error {
	srv := web.NewServer(conf)

	replan := func() {
		seed := seedOrClock(conf.Seed)
		plan, err := p.plan(ctx, seed)
		if err != nil {
			appLog.Error("replan failed", err, "seed", seed)
			return
		}
		srv.SetPlan(plan)
		if err := export(conf, plan); err != nil {
			appLog.Error("export failed", err, "path", conf.ExportPath)
		}
	}
	replan()

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(conf.Refresh, replan); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", conf.Refresh, err)
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()
	appLog.Info("replanning scheduled", "refresh", conf.Refresh)

	return srv.ListenAndServe(ctx)
}

func parseFlags() flagConfig {
	var cfg flagConfig
	flag.StringVar(&cfg.configPath, "config", "meetcal.yaml", "Path to config file (created with defaults if missing)")
	flag.Int64Var(&cfg.seed, "seed", 0, "Week shuffle seed (overrides config; 0 keeps the config value)")
	flag.StringVar(&cfg.icsPath, "ics", "", "iCalendar export path (overrides config)")
	flag.BoolVar(&cfg.serve, "serve", false, "Serve the plan over HTTP and replan on the refresh schedule")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config)")
	flag.StringVar(&cfg.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	flag.Parse()
	return cfg
}
