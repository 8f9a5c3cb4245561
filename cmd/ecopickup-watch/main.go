// Command ecopickup-watch shows a live pickup dashboard in the terminal.
//
// It logs in, keeps a synchronized view of the account's pickups, and
// redraws whenever the view changes. Agents can claim and advance pickups
// by typing commands.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/erazemk/ecopickup/internal/client"
	"github.com/erazemk/ecopickup/internal/config"
	"github.com/erazemk/ecopickup/internal/model"
)

const clearScreen = "\033[H\033[2J"

func main() {
	cfg, err := config.LoadWatch(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// The screen owns stdout; only warnings and errors are logged.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Watch, in io.Reader, out io.Writer) error {
	c := client.New(cfg.URL)

	session, err := c.Login(ctx, cfg.Username, cfg.Password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer func() {
		logoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Logout(logoutCtx, session); err != nil && !errors.Is(err, client.ErrSessionExpired) {
			slog.Warn("logout failed", "error", err)
		}
	}()

	engine := client.NewEngine(c, session)
	engine.PollInterval = cfg.Poll
	if !cfg.NoStream {
		engine.Stream = c.NewStream(session, channelsFor(session.Role, cfg.View)...)
	}
	w := &watcher{engine: engine, view: cfg.View}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	commands := make(chan string)
	go readCommands(ctx, in, commands)

	var note string
	draw := func() {
		fmt.Fprint(out, clearScreen+render(screen{
			Session: session,
			View:    w.view,
			Snap:    engine.Snapshot(),
			Note:    note,
			Now:     time.Now(),
		}))
	}
	draw()

	for {
		select {
		case err := <-done:
			return err
		case <-engine.Changes():
			draw()
		case line, ok := <-commands:
			if !ok {
				cancel()
				return <-done
			}
			var quit bool
			note, quit = w.execute(ctx, line)
			if quit {
				cancel()
				return <-done
			}
			draw()
		}
	}
}

func readCommands(ctx context.Context, in io.Reader, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case out <- strings.TrimSpace(scanner.Text()):
		case <-ctx.Done():
			return
		}
	}
}

// channelsFor returns the notification channels a dashboard joins. The
// "mine" agent view has no use for pool hints.
func channelsFor(role, view string) []string {
	if role == model.RoleAgent && view == config.ViewMine {
		return nil
	}
	return client.DefaultChannels(role)
}

// watcher holds the interactive state of one dashboard.
type watcher struct {
	engine *client.Engine
	view   string
}

// execute runs one typed command and returns a note to show under the view.
func (w *watcher) execute(ctx context.Context, line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}

	switch fields[0] {
	case "quit", "q":
		return "", true
	case "refresh", "r":
		w.engine.Refresh(0)
		return "refreshing", false
	case "accept", "advance", "view":
	default:
		return fmt.Sprintf("unknown command %q", fields[0]), false
	}

	if w.engine.Session.Role != model.RoleAgent {
		return "only agents can use " + fields[0], false
	}
	if len(fields) != 2 {
		return fmt.Sprintf("usage: %s <%s>", fields[0], argName(fields[0])), false
	}
	if fields[0] == "view" {
		return w.setView(fields[1]), false
	}

	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return fmt.Sprintf("invalid pickup id %q", fields[1]), false
	}

	if fields[0] == "accept" {
		if err := w.engine.Accept(ctx, id); err != nil {
			return fmt.Sprintf("accept #%d: %v", id, err), false
		}
		return fmt.Sprintf("accepted #%d", id), false
	}

	next := ""
	for _, p := range w.engine.Snapshot().Pickups {
		if p.ID == id {
			next = model.NextStatus(p.Status)
			break
		}
	}
	if next == "" {
		return fmt.Sprintf("pickup #%d cannot be advanced", id), false
	}
	if err := w.engine.Advance(ctx, id, next); err != nil {
		return fmt.Sprintf("advance #%d: %v", id, err), false
	}
	return fmt.Sprintf("#%d is now %s", id, strings.ReplaceAll(next, "_", " ")), false
}

func argName(command string) string {
	if command == "view" {
		return "pending|mine|all"
	}
	return "id"
}

// setView switches the agent view. Showing the pool joins its channel,
// which also re-reads everything the dashboard missed meanwhile.
func (w *watcher) setView(view string) string {
	switch view {
	case "all":
		view = ""
	case config.ViewPending, config.ViewMine:
	default:
		return fmt.Sprintf("unknown view %q", view)
	}
	w.view = view

	if st := w.engine.Stream; st != nil {
		var err error
		if view == config.ViewMine {
			err = st.Leave(model.ChannelPool)
		} else {
			err = st.Join(model.ChannelPool)
		}
		if err != nil {
			return fmt.Sprintf("switching view: %v", err)
		}
	}
	if view == "" {
		return "showing all pickups"
	}
	return "showing " + view + " pickups"
}
