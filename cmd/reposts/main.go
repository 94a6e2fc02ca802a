// Command reposts scans channels once and prints where their forwards came
// from.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/blockedby/repost-tracer/internal/collector"
	"github.com/blockedby/repost-tracer/internal/config"
	"github.com/blockedby/repost-tracer/internal/logger"
	"github.com/blockedby/repost-tracer/internal/models"
	"github.com/blockedby/repost-tracer/internal/report"
	"github.com/blockedby/repost-tracer/internal/scanner"
	"github.com/blockedby/repost-tracer/internal/telegram"
)

func main() {
	jobPath := flag.String("job", "", "path to a YAML job file")
	linksArg := flag.String("links", "", "comma separated channel links")
	linksFile := flag.String("links-file", "", "file with one channel link per line")
	sessionsArg := flag.String("sessions", "", "comma separated session names (default: first found)")
	limit := flag.Int("limit", 0, "messages to read per channel (10-1000, default 100)")
	out := flag.String("out", "", "csv output path")
	top := flag.Int("top", report.DefaultTop, "ranking lines to print")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	job := &config.Job{}
	if *jobPath != "" {
		if job, err = config.LoadJob(*jobPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	applyFlags(job, set, *linksArg, *sessionsArg, *limit, *out, *top)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, job, *linksFile); err != nil {
		logger.Get().Error().Err(err).Msg("reposts: fatal")
		os.Exit(1)
	}
}

// applyFlags lets the flags named in set override the job file. top also
// fills in a job file that leaves it out.
func applyFlags(job *config.Job, set map[string]bool, links, sessions string, limit int, out string, top int) {
	if set["links"] {
		job.Links = splitList(links)
	}
	if set["sessions"] {
		job.Sessions = splitList(sessions)
	}
	if set["limit"] {
		job.Limit = limit
	}
	if set["out"] {
		job.Output = out
	}
	if set["top"] || job.Top == 0 {
		job.Top = top
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func run(ctx context.Context, cfg *config.Config, job *config.Job, linksFile string) error {
	log := logger.Get()

	if cfg.TGApiID == 0 || cfg.TGApiHash == "" {
		return fmt.Errorf("TG_API_ID and TG_API_HASH are required")
	}

	body := collector.ScanRequest{Links: job.Links, Limit: job.Limit, Sessions: job.Sessions}
	if linksFile != "" {
		data, err := os.ReadFile(linksFile)
		if err != nil {
			return fmt.Errorf("read links file: %w", err)
		}
		body.Text = string(data)
	}

	available, err := telegram.Discover(cfg.SessionsDir)
	if err != nil {
		return err
	}
	req, err := body.Validate(available, cfg.MaxChannels)
	if err != nil {
		return err
	}

	connector := scanner.NewTelegramConnector(telegram.NewConnector(cfg))
	sc := scanner.NewScanner(connector, scanner.NewResolver(cfg.MinParticipants, log.Component("resolver")), log.Component("scanner"))
	orchestrator := scanner.NewOrchestrator(sc, cfg.ScanConcurrency, log.Component("orchestrator"))
	svc := collector.NewService(orchestrator, nil, nil, nil, nil, log.Component("collector"))

	id := uuid.New()
	res, runErr := svc.Analyze(ctx, id, req, func(done, total int, o models.TaskOutcome) {
		fmt.Fprintf(os.Stderr, "[%d/%d] %s @%s: %s\n", done, total, o.Task.Session, o.Task.Channel, o.Status)
	})
	if res == nil {
		return runErr
	}

	printReport(res, job.Top)

	path := job.Output
	if path == "" {
		path = report.FileName(id.String())
	}
	if err := writeCSV(path, res.Report.Records); err != nil {
		return err
	}
	fmt.Printf("\nreport saved to %s\n", path)

	return runErr
}

func printReport(res *collector.Result, top int) {
	rep := res.Report

	fmt.Printf("records: %d, unique channels: %d, failed tasks: %d of %d\n",
		len(rep.Records), rep.UniqueChannels(), res.FailedTasks(), len(res.Outcomes))

	for _, o := range res.Outcomes {
		if o.Failed() {
			fmt.Printf("  ! %s @%s: %s %s\n", o.Task.Session, o.Task.Channel, o.Status, o.Error)
		}
	}

	fmt.Println("\ntop channels:")
	for i, c := range rep.Top(top) {
		fmt.Printf("%2d. %s (%d)\n", i+1, c.Title, c.Reposts)
	}

	fmt.Println("\nlinks:")
	for _, link := range rep.PublicLinks {
		fmt.Println(link)
	}
}

func writeCSV(path string, records []models.RepostRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := report.WriteCSV(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
