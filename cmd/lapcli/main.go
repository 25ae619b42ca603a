// Command lapcli is a CLI client for the LAP marketplace backend.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lapmarkt/lapcli/internal/api"
	"github.com/lapmarkt/lapcli/internal/cache"
	"github.com/lapmarkt/lapcli/internal/config"
	"github.com/lapmarkt/lapcli/internal/errs"
	"github.com/lapmarkt/lapcli/internal/event"
	"github.com/lapmarkt/lapcli/internal/guard"
	"github.com/lapmarkt/lapcli/internal/httpclient"
	"github.com/lapmarkt/lapcli/internal/session"
	"github.com/lapmarkt/lapcli/internal/sessionstore"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// app wires the client layers together once per process.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	sessions *session.Manager
	guard    *guard.Guard
	auth     *api.Auth
	items    *api.Items
	comments *api.Comments
	profile  *api.Profile
	timeout  time.Duration
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	bus := event.NewBus(logger)
	store := sessionstore.New(cfg.ConfigDir, logger)

	// The manager is built after the HTTP client, so the client reads the
	// token through a closure rather than holding the manager directly.
	var sessions *session.Manager
	client := httpclient.New(httpclient.Options{
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.RequestTimeout,
		MaxRetries: cfg.MaxRetries,
		Tokens: httpclient.TokenFunc(func() string {
			if sessions == nil {
				return ""
			}
			return sessions.Token()
		}),
		Bus:    bus,
		Logger: logger,
	})

	queryCache := cache.New(cfg.CacheTTL, logger)
	bus.Subscribe(event.SessionCleared, func(event.Event) { queryCache.Clear() })

	auth := api.NewAuth(client)
	nav := session.NavigatorFunc(func(route string) {
		logger.Debug("navigate", zap.String("route", route))
	})
	sessions = session.NewManager(store, auth, nav, bus, logger)
	sessions.Initialize()

	return &app{
		cfg:      cfg,
		logger:   logger,
		sessions: sessions,
		guard:    guard.New(sessions),
		auth:     auth,
		items:    api.NewItems(client, queryCache, sessions),
		comments: api.NewComments(client, queryCache),
		profile:  api.NewProfile(client),
		timeout:  cfg.RequestTimeout,
	}, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// requireAuth consults the route guard before a protected command runs.
func (a *app) requireAuth(route string) error {
	d := a.guard.Check(route)
	switch d.Verdict {
	case guard.Allow:
		return nil
	case guard.Wait:
		return errors.New("session is still loading, try again")
	default:
		return fmt.Errorf("%w: run `lapcli login` first", errs.ErrNotLoggedIn)
	}
}

func (a *app) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.timeout)
}

func usage() {
	fmt.Fprintf(os.Stderr, `lapcli
Usage:
  lapcli <cmd> [args]

Account:
  register  -u <username> -e <email> -p <password>
  login     -u <username> -p <password>
  logout
  me
  profile
  avatar    -file <image>
  avatar-rm
  passwd    -current <password> -new <password>

Items:
  items     [-page N] [-size N] [-category C] [-search Q] [-sort F] [-dir asc|desc]
  item      -id <id>
  my-items
  all-items
  create    -title T -desc D -category C -location L -condition Z [-image file ...]
  update    -id <id> -title T -desc D -category C -location L -condition Z [-image file ...]
  rm        -id <id>
  rm-image  -id <id> -url <imageUrl>
  reserve   -id <id>

Comments:
  comments  -id <itemId>
  comment   -id <itemId> -text <text>

Other:
  version
`)
	os.Exit(2)
}

// main dispatches subcommands against the wired client.
func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	if cmd == "version" {
		fmt.Printf("lapcli %s (%s)\n", version, buildDate)
		return
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = a.logger.Sync() }()

	switch cmd {
	case "register":
		a.cmdRegister(args)
	case "login":
		a.cmdLogin(args)
	case "logout":
		a.cmdLogout()
	case "me":
		a.cmdMe()
	case "profile":
		a.cmdProfile()
	case "avatar":
		a.cmdAvatar(args)
	case "avatar-rm":
		a.cmdAvatarRemove()
	case "passwd":
		a.cmdChangePassword(args)
	case "items":
		a.cmdItems(args)
	case "item":
		a.cmdItem(args)
	case "my-items":
		a.cmdMyItems()
	case "all-items":
		a.cmdAllItems()
	case "create":
		a.cmdCreate(args)
	case "update":
		a.cmdUpdate(args)
	case "rm":
		a.cmdDelete(args)
	case "rm-image":
		a.cmdDeleteImage(args)
	case "reserve":
		a.cmdReserve(args)
	case "comments":
		a.cmdComments(args)
	case "comment":
		a.cmdAddComment(args)
	default:
		usage()
	}
}

// ---- helpers ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, errs.UserMessage(err))
	os.Exit(1)
}
