// Command groupcheck checks Facebook group membership for profiles,
// either as one-shot commands or as a long-running daemon.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/groupcheck/pkg/config"
	"github.com/codeGROOVE-dev/groupcheck/pkg/daemon"
	"github.com/codeGROOVE-dev/groupcheck/pkg/facebook"
	"github.com/codeGROOVE-dev/groupcheck/pkg/httpcache"
	"github.com/codeGROOVE-dev/groupcheck/pkg/messaging"
	"github.com/codeGROOVE-dev/groupcheck/pkg/messenger"
	"github.com/codeGROOVE-dev/groupcheck/pkg/profile"
	"github.com/codeGROOVE-dev/groupcheck/pkg/scheduler"
	"github.com/codeGROOVE-dev/groupcheck/pkg/store"
)

var (
	debug      = flag.Bool("debug", false, "enable debug logging")
	noCache    = flag.Bool("no-cache", false, "disable the HTTP response cache")
	noBrowser  = flag.Bool("no-browser", false, "do not read session cookies from browser stores")
	configPath = flag.String("config", "", "config file path (default: "+config.DefaultPath()+")")
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: groupcheck [flags] <command> [args]

Commands:
  resolve <profile>          resolve a profile URL, username, or id
  check <profile>            check a profile against all configured groups
  add <profile> [name]       queue a profile for checking and drain the queue
  queue                      show the pending check queue
  groups list                list configured groups
  groups add <id> [name]     add a group
  groups remove <id>         remove a group
  groups import <file>       merge groups from a JSON file
  groups export              print configured groups as JSON
  daemon                     run the long-lived check daemon

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, flag.Args()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, args []string) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	app, err := newApp(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	switch args[0] {
	case "resolve":
		if len(args) < 2 {
			return errors.New("resolve requires a profile argument")
		}
		return app.resolve(ctx, args[1])
	case "check":
		if len(args) < 2 {
			return errors.New("check requires a profile argument")
		}
		return app.check(ctx, args[1])
	case "add":
		if len(args) < 2 {
			return errors.New("add requires a profile argument")
		}
		name := ""
		if len(args) > 2 {
			name = args[2]
		}
		return app.add(ctx, args[1], name)
	case "queue":
		return app.showQueue()
	case "groups":
		if len(args) < 2 {
			return errors.New("groups requires a subcommand")
		}
		return app.groups(args[1:])
	case "daemon":
		return app.daemon(ctx, cfg)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// app bundles the wired components for one invocation.
type app struct {
	logger *slog.Logger
	cache  *httpcache.Cache
	client *facebook.Client
	sched  *scheduler.Scheduler
	bus    *messaging.Bus
	msgr   *messenger.Messenger
}

// logNotifier surfaces notifications through the logger when no
// consumer context is listening.
type logNotifier struct{ logger *slog.Logger }

func (n logNotifier) Notify(ctx context.Context, title, message string) error {
	n.logger.InfoContext(ctx, "notification", "title", title, "message", message)
	return nil
}

// busNotifier delivers notifications to a consumer context with retry.
type busNotifier struct {
	msgr   *messenger.Messenger
	target string
}

func (n busNotifier) Notify(ctx context.Context, title, message string) error {
	return n.msgr.Deliver(ctx, n.target, messaging.Message{
		Type:    messaging.TypeNotification,
		Title:   title,
		Message: message,
	})
}

func newApp(ctx context.Context, logger *slog.Logger, cfg config.Config) (*app, error) {
	a := &app{logger: logger}

	if *noCache {
		a.cache = httpcache.NewNull()
	} else {
		cache, err := httpcache.New(cfg.CacheTTL())
		if err != nil {
			return nil, err
		}
		a.cache = cache
	}

	opts := []facebook.Option{
		facebook.WithHTTPCache(a.cache),
		facebook.WithLogger(logger),
	}
	if !*noBrowser {
		opts = append(opts, facebook.WithBrowserCookies())
	}
	client, err := facebook.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	a.client = client

	// Prefer durable file state; fall back to memory so a read-only or
	// missing state directory degrades instead of failing.
	var st store.Store
	if fs, err := store.NewFileStore(cfg.StatePath); err != nil {
		logger.Warn("state directory unavailable, using in-memory state",
			"path", cfg.StatePath, "error", err)
		st = store.NewMemStore()
	} else {
		st = &store.Fallback{Primary: fs, Secondary: store.NewMemStore()}
	}

	a.bus = messaging.NewBus()
	a.msgr = messenger.New(a.bus, a.bus, logger)

	sched, err := scheduler.New(st, client, client, logNotifier{logger}, logger)
	if err != nil {
		return nil, err
	}
	a.sched = sched

	sched.SetMaxRecentChecks(cfg.MaxRecentChecks)
	if len(cfg.Groups) > 0 {
		if err := a.seedGroups(cfg.Groups); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// seedGroups merges config file groups into the persisted state.
func (a *app) seedGroups(groups []config.Group) error {
	list := make([]profile.GroupInfo, 0, len(groups))
	for _, g := range groups {
		list = append(list, profile.GroupInfo{
			ID:   g.ID,
			Name: g.Name,
			URL:  g.URL,
		})
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode config groups: %w", err)
	}
	_, err = a.sched.ImportGroups(data)
	return err
}

func (a *app) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Debug("cache close failed", "error", err)
		}
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) resolve(ctx context.Context, input string) error {
	identifier := facebook.ExtractIdentifier(input)
	info, err := a.client.Resolve(ctx, identifier)
	if err != nil {
		return err
	}
	return printJSON(info)
}

func (a *app) check(ctx context.Context, input string) error {
	identifier := facebook.ExtractIdentifier(input)
	results, err := a.sched.CheckUserMembership(ctx, identifier)
	if err != nil {
		return err
	}
	return printJSON(results)
}

func (a *app) add(ctx context.Context, input, name string) error {
	identifier := facebook.ExtractIdentifier(input)
	added, err := a.sched.AddToQueue(ctx, identifier, name)
	if err != nil {
		return err
	}
	a.logger.Info("queued", "identifier", identifier, "items", added)
	if err := a.sched.Drain(ctx); err != nil {
		return err
	}
	return printJSON(a.sched.RecentChecks())
}

func (a *app) showQueue() error {
	return printJSON(a.sched.Snapshot().Queue)
}

func (a *app) groups(args []string) error {
	switch args[0] {
	case "list":
		return printJSON(a.sched.Groups())
	case "add":
		if len(args) < 2 {
			return errors.New("groups add requires a group id")
		}
		group := profile.GroupInfo{ID: args[1]}
		if len(args) > 2 {
			group.Name = args[2]
		}
		group.URL = fmt.Sprintf("https://www.facebook.com/groups/%s", group.ID)
		return a.sched.AddGroup(group)
	case "remove":
		if len(args) < 2 {
			return errors.New("groups remove requires a group id")
		}
		if !a.sched.RemoveGroup(args[1]) {
			return fmt.Errorf("group %q not configured", args[1])
		}
		return nil
	case "import":
		if len(args) < 2 {
			return errors.New("groups import requires a file path")
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read import file: %w", err)
		}
		n, err := a.sched.ImportGroups(data)
		if err != nil {
			return err
		}
		a.logger.Info("groups imported", "count", n)
		return nil
	case "export":
		data, err := a.sched.ExportGroups()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	default:
		return fmt.Errorf("unknown groups subcommand %q", args[0])
	}
}

func (a *app) daemon(ctx context.Context, cfg config.Config) error {
	// The sidebar consumer renders forwarded notifications to stdout and
	// services the legacy direct-check requests the coordinator passes
	// through.
	sidebarCh := a.bus.Subscribe(cfg.SidebarContext)
	a.bus.SetReady(cfg.SidebarContext, true)
	go func() {
		for msg := range sidebarCh {
			if msg.Type == messaging.TypeCheckMembership {
				identifier := facebook.ExtractIdentifier(msg.Message)
				if identifier == "" {
					identifier = msg.UserID
				}
				if _, err := a.sched.CheckUserMembership(ctx, identifier); err != nil {
					a.logger.Warn("membership check failed", "identifier", identifier, "error", err)
				}
				continue
			}
			fmt.Printf("[%s] %s: %s\n", time.Now().Format(time.TimeOnly), msg.Title, msg.Message)
		}
	}()

	// In daemon mode notifications flow through the retry messenger to
	// the sidebar consumer instead of the log.
	a.sched.SetNotifier(busNotifier{msgr: a.msgr, target: cfg.SidebarContext})
	a.sched.SetAutoDetect(cfg.AutoDetect)

	d := daemon.New(a.bus, a.sched, a.msgr, a.logger, cfg.ProcessInterval(), cfg.SidebarContext)
	a.logger.Info("daemon starting",
		"interval", cfg.ProcessInterval(), "groups", len(a.sched.Groups()))
	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
