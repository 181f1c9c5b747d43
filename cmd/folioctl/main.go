// Package main provides a command-line client for a folio API.
// Usage:
//
//	FOLIO_API_URL=http://localhost:8080 go run ./cmd/folioctl resume -output=resume.json
//	go run ./cmd/folioctl -url=http://localhost:8080 contact \
//	  -name="Jane Roe" -email=jane@example.com -subject=Hello -message="Let's talk."
//	go run ./cmd/folioctl event -event=click -category=engagement -action=click -label=cta
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"folio/config"
	"folio/internal/analytics"
	"folio/internal/apiclient"
	"folio/internal/app"
	"folio/internal/contact"
	"folio/internal/core"
	"folio/internal/logging"
	"folio/internal/version"
)

const usage = `usage: folioctl [-url URL] [-retries N] <command> [flags]

commands:
  resume    print the resume document (-refresh, -output FILE)
  stats     print resume statistics
  contact   send a contact message (-name, -email, -subject, -message)
  event     send one analytics event (-event, -category, -action, -label, -value)
  pageview  record one page view (-page, -title, -referrer)
  summary   print the analytics summary
  version   print version information
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("folioctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	baseURL := global.String("url", "", "API base URL (default: FOLIO_API_URL or client.base_url)")
	retries := global.Int("retries", -1, "Override the retry count")
	verbose := global.Bool("v", false, "Log client diagnostics to stderr")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errUsage
	}

	command, rest := global.Arg(0), global.Args()[1:]
	if command == "version" {
		fmt.Fprintln(stdout, version.Info())
		return nil
	}

	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := logging.New(logging.Options{Level: level, Format: logging.FormatPretty, Output: stderr})

	client := app.NewClient(loaded.Config, *baseURL, apiclient.WithLogger(logger))
	if *retries >= 0 {
		client.SetConfig(apiclient.ConfigPatch{Retries: retries})
	}

	cmd := &commands{api: client, logger: logger, stdout: stdout, stderr: stderr}
	switch command {
	case "resume":
		return cmd.resume(ctx, rest)
	case "stats":
		return cmd.stats(ctx)
	case "contact":
		return cmd.contact(ctx, rest)
	case "event":
		return cmd.event(ctx, rest)
	case "pageview":
		return cmd.pageView(ctx, rest)
	case "summary":
		return cmd.summary(ctx)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", command, usage)
		return errUsage
	}
}

type commands struct {
	api    *apiclient.Client
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func (c *commands) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("folioctl "+name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *commands) resume(ctx context.Context, args []string) error {
	fs := c.flags("resume")
	refresh := fs.Bool("refresh", false, "Bypass the server cache")
	output := fs.String("output", "", "Write the document to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	endpoint := "/api/resume"
	if *refresh {
		endpoint += "?refresh=true"
	}
	data, err := apiclient.GetJSON[core.ResumeData](ctx, c.api, endpoint)
	if err != nil {
		return err
	}

	if *output == "" {
		return c.printJSON(data)
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode resume: %w", err)
	}
	if dir := filepath.Dir(*output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(*output, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write resume: %w", err)
	}
	fmt.Fprintf(c.stdout, "Resume for %s written to %s\n", data.PersonalInfo.Name, *output)
	return nil
}

func (c *commands) stats(ctx context.Context) error {
	stats, err := apiclient.GetJSON[core.ResumeStats](ctx, c.api, "/api/resume/stats")
	if err != nil {
		return err
	}
	return c.printJSON(stats)
}

func (c *commands) contact(ctx context.Context, args []string) error {
	fs := c.flags("contact")
	var form core.ContactForm
	fs.StringVar(&form.Name, "name", "", "Sender name")
	fs.StringVar(&form.Email, "email", "", "Sender email address")
	fs.StringVar(&form.Subject, "subject", "", "Message subject")
	fs.StringVar(&form.Message, "message", "", "Message body")
	if err := fs.Parse(args); err != nil {
		return err
	}

	receipt, err := contact.NewClient(c.api).Submit(ctx, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Message sent (id %s at %s)\n", receipt.ID, receipt.Timestamp)
	return nil
}

// newTracker returns a consenting tracker for one-shot sends.
func (c *commands) newTracker() *analytics.Tracker {
	cfg := analytics.DefaultTrackerConfig()
	cfg.Consent = true
	cfg.UserAgent = "folioctl/" + version.Version
	return analytics.NewTracker(c.api, cfg, c.logger)
}

func (c *commands) event(ctx context.Context, args []string) error {
	fs := c.flags("event")
	event := fs.String("event", "", "Event name (required)")
	category := fs.String("category", "", "Event category (required)")
	action := fs.String("action", "", "Event action (required)")
	label := fs.String("label", "", "Event label")
	rawValue := fs.String("value", "", "Numeric event value")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *event == "" || *category == "" || *action == "" {
		return errors.New("-event, -category and -action are required")
	}

	var value *float64
	if *rawValue != "" {
		v, err := strconv.ParseFloat(*rawValue, 64)
		if err != nil {
			return fmt.Errorf("invalid -value %q: %w", *rawValue, err)
		}
		value = &v
	}

	tracker := c.newTracker()
	tracker.TrackEvent(*event, *category, *action, *label, value, nil)
	if err := tracker.Flush(ctx); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Event sent for %s\n", tracker.SessionID())
	return nil
}

func (c *commands) pageView(ctx context.Context, args []string) error {
	fs := c.flags("pageview")
	page := fs.String("page", "", "Page path (required)")
	title := fs.String("title", "", "Page title")
	referrer := fs.String("referrer", "", "Referring URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *page == "" {
		return errors.New("-page is required")
	}

	tracker := c.newTracker()
	tracker.TrackPageView(*page, *title, *referrer)
	if err := tracker.FlushPageViews(ctx); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Page view sent for %s\n", tracker.SessionID())
	return nil
}

func (c *commands) summary(ctx context.Context) error {
	summary, err := apiclient.GetJSON[core.AnalyticsSummary](ctx, c.api, "/api/analytics/events")
	if err != nil {
		return err
	}
	return c.printJSON(summary)
}

func (c *commands) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
