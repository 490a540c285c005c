// Command dashboard is a terminal client for the facility monitoring API.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"facilitymonitor/internal/dashboard"
	"facilitymonitor/internal/logging"
	"facilitymonitor/internal/models"
)

const usage = `usage: dashboard [flags] <command> [command flags]

commands:
  login          sign in and store the session token
  logout         forget the stored token
  watch          show a live view (type an interval like 10s to change it, r to refresh, q to quit)
  export         download a history as an .xlsx workbook
  forgot         request a password reset email
  reset          set a new password with a reset token
  notifications  list or clear stored alerts

flags:
`

type app struct {
	client *dashboard.Client
	store  *dashboard.Storage
	logger *slog.Logger
	out    io.Writer
}

func main() {
	apiURL := flag.String("api", envOr("DASHBOARD_API_URL", "http://localhost:3000"), "base URL of the monitoring API")
	storePath := flag.String("store", envOr("DASHBOARD_STORAGE", dashboard.DefaultStoragePath()), "file holding the token and notifications")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	verbose := flag.Bool("v", false, "log debug output to stderr")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewWithWriter(os.Stderr, "dashboard", level)

	store, err := dashboard.OpenStorage(*storePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	a := &app{
		client: dashboard.NewClient(*apiURL, *timeout),
		store:  store,
		logger: logger,
		out:    os.Stdout,
	}
	a.client.SetToken(store.Token())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.store.ClearToken()
	case "watch":
		return a.watch(ctx, args)
	case "export":
		return a.export(ctx, args)
	case "forgot":
		return a.forgot(ctx, args)
	case "reset":
		return a.reset(ctx, args)
	case "notifications":
		return a.notifications(args)
	}
	return fmt.Errorf("unknown command %q", command)
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", os.Getenv("DASHBOARD_PASSWORD"), "password (defaults to $DASHBOARD_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return errors.New("login needs -u and -p")
	}

	resp, err := a.client.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	if err := a.store.SetToken(resp.Token); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "signed in as %s\n", resp.User.Username)
	return nil
}

func (a *app) requireToken() error {
	if a.client.Token() == "" {
		return errors.New("not signed in, run the login command first")
	}
	return nil
}

func (a *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	viewName := fs.String("view", "overview", "overview, climate, fire-smoke or electricity")
	interval := fs.Duration("interval", dashboard.DefaultInterval, "refresh interval (10s, 30s, 1m, 5m or 10m)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireToken(); err != nil {
		return err
	}
	view, ok := dashboard.Views[*viewName]
	if !ok {
		return fmt.Errorf("unknown view %q", *viewName)
	}

	rejected := make(chan struct{}, 1)
	session, err := dashboard.NewSession(a.client, view, *interval, a.logger,
		dashboard.WithOnUpdate(func(st dashboard.ViewState) {
			for _, cs := range st.Categories {
				if errors.Is(cs.Err, dashboard.ErrUnauthorized) {
					select {
					case rejected <- struct{}{}:
					default:
					}
					return
				}
			}
		}))
	if err != nil {
		return err
	}
	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Stop()

	notifier := dashboard.NewNotifier(a.store.AddNotification)
	commands := readLines(os.Stdin)
	clock := time.NewTicker(time.Second)
	defer clock.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-rejected:
			if err := a.store.ClearToken(); err != nil {
				a.logger.Warn("failed to clear token", "error", err)
			}
			return errors.New("session expired, sign in again")

		case line, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			switch line {
			case "":
			case "q", "quit":
				return nil
			case "r", "refresh":
				refreshInBackground(ctx, session, a.logger)
			default:
				d, err := time.ParseDuration(line)
				if err == nil {
					err = session.SetInterval(d)
				}
				if err != nil {
					fmt.Fprintln(a.out, err)
				}
			}

		case now := <-clock.C:
			state := session.State()
			statuses := dashboard.Derive(state, view.Categories, now)
			if err := notifier.Observe(statuses, now); err != nil {
				a.logger.Warn("failed to store notification", "error", err)
			}
			render(a.out, state, statuses, now)
		}
	}
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	kindName := fs.String("kind", string(models.ExportSensor), "sensor-data, fire-smoke or electricity")
	dir := fs.String("dir", ".", "directory to write the workbook to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireToken(); err != nil {
		return err
	}
	kind, err := models.ParseExportKind(*kindName)
	if err != nil {
		return err
	}

	data, err := a.client.Export(ctx, kind)
	if err != nil {
		return err
	}
	if data.Len() == 0 {
		fmt.Fprintln(a.out, "no data to export")
		return nil
	}

	now := time.Now()
	path := filepath.Join(*dir, dashboard.ExportFilename(kind, now))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dashboard.WriteWorkbook(f, data, now.Location()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "wrote %d rows to %s\n", data.Len(), path)
	return nil
}

func (a *app) forgot(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("forgot", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	msg, err := a.client.ForgotPassword(ctx, *email)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) reset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	token := fs.String("token", "", "token from the reset link")
	password := fs.String("p", os.Getenv("DASHBOARD_NEW_PASSWORD"), "new password (defaults to $DASHBOARD_NEW_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	msg, err := a.client.ResetPassword(ctx, *token, *password)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) notifications(args []string) error {
	fs := flag.NewFlagSet("notifications", flag.ContinueOnError)
	clearAll := fs.Bool("clear", false, "remove all notifications")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *clearAll {
		return a.store.ClearNotifications()
	}
	renderNotifications(a.out, a.store.Notifications())
	return nil
}

type refresher interface {
	Refresh(ctx context.Context) error
}

// refreshInBackground runs a manual refresh off the redraw loop. The returned
// channel closes once it has finished.
func refreshInBackground(ctx context.Context, r refresher, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := r.Refresh(ctx); err != nil {
			logger.Warn("refresh failed", "error", err)
		}
	}()
	return done
}

// readLines forwards trimmed input lines until r is exhausted.
func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- strings.TrimSpace(sc.Text())
		}
	}()
	return ch
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
