package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/medkeeper/internal/client/bus"
	"github.com/dmitrijs2005/medkeeper/internal/client/capture"
	"github.com/dmitrijs2005/medkeeper/internal/client/catalog"
	"github.com/dmitrijs2005/medkeeper/internal/client/client"
	"github.com/dmitrijs2005/medkeeper/internal/client/config"
	"github.com/dmitrijs2005/medkeeper/internal/client/entitlement"
	"github.com/dmitrijs2005/medkeeper/internal/client/gate"
	"github.com/dmitrijs2005/medkeeper/internal/client/interactions"
	"github.com/dmitrijs2005/medkeeper/internal/client/poller"
	"github.com/dmitrijs2005/medkeeper/internal/client/reminders"
	"github.com/dmitrijs2005/medkeeper/internal/client/repository"
	"github.com/dmitrijs2005/medkeeper/internal/client/services"
	"github.com/dmitrijs2005/medkeeper/internal/client/session"
	"github.com/dmitrijs2005/medkeeper/internal/client/terms"
	"github.com/dmitrijs2005/medkeeper/internal/filex"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
)

// Deps are the collaborators of an App. Camera may be nil, in which case
// the configured capture command is used.
type Deps struct {
	Config *config.Config
	Store  *session.Store
	API    client.Client
	Camera capture.Camera
	In     lineReader
	Out    io.Writer
	Log    logging.Logger
}

type App struct {
	cfg   *config.Config
	log   logging.Logger
	out   io.Writer
	in    lineReader
	store *session.Store
	api   client.Client

	bus     *bus.Bus
	repo    *repository.Repository
	gate    *gate.Gate
	guard   *entitlement.Guard
	capture *capture.Pipeline
	editor  *reminders.Editor
	agg     *interactions.Aggregator
	terms   *terms.Gate
	catalog *catalog.Service
	auth    services.AuthService

	// test seams
	render func(md string) string
	secret func(prompt string) (string, error)

	mu         sync.Mutex
	lang       string
	user       string
	badge      int
	badgeKnown bool
	pendingAdd string
	notices    []string
	lastListed []string
	listing    bool

	badgePoll *poller.Handle
	subs      []*bus.Subscription
	cmds      map[string]command
	closers   []func() error
}

// NewApp opens the session database, builds the HTTP backend client and a
// readline terminal, and wires the App on top.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	dir, err := filex.EnsureParentDir(cfg.Session.DBPath)
	if err != nil {
		return nil, err
	}
	db, err := client.InitDatabase(ctx, cfg.Session.DBPath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", cfg.Session.DBPath, "error", err)
		return nil, err
	}

	store := session.NewStore(db, cfg.SessionSecret(), log)
	api := client.NewHTTPClient(cfg.Server.URL, store,
		client.WithRequestTimeout(cfg.Server.RequestTimeout),
		client.WithRecognitionTimeout(cfg.Server.RecognitionTimeout),
		client.WithUnauthorizedHook(func(ctx context.Context) {
			if err := store.ClearToken(ctx); err != nil {
				log.Error(ctx, "clearing rejected token failed", "error", err)
			}
		}),
		client.WithLogger(log),
	)

	rl, err := setupReadline(filepath.Join(dir, "history"))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup readline: %w", err)
	}

	a, err := New(ctx, Deps{Config: cfg, Store: store, API: api, In: rl, Out: rl.Stdout(), Log: log})
	if err != nil {
		_ = rl.Close()
		_ = db.Close()
		return nil, err
	}
	a.closers = append(a.closers, rl.Close, db.Close)
	return a, nil
}

// New wires the client core around the given collaborators.
func New(ctx context.Context, d Deps) (*App, error) {
	cfg := d.Config
	lang, err := d.Store.Language(ctx, cfg.Language)
	if err != nil {
		d.Log.Warn(ctx, "stored language unreadable, using default", "error", err)
	}

	a := &App{
		cfg:    cfg,
		log:    d.Log,
		out:    d.Out,
		in:     d.In,
		store:  d.Store,
		api:    d.API,
		lang:   lang,
		render: renderMarkdown,
	}
	a.secret = func(prompt string) (string, error) { return readSecret(a.in, a.out, prompt) }

	a.bus = bus.New(d.Log)
	a.repo = repository.New(d.API, a.bus, d.Log)
	a.guard = entitlement.NewGuard(d.API, d.Store, cfg.Subscription.PollInterval, cfg.Subscription.WarnHours, d.Log)
	a.gate = gate.New(a.repo, a.guard, cfg.Quota.FreeMedications, d.Log)

	camera := d.Camera
	if camera == nil {
		camera = capture.CommandCamera{Command: cfg.Capture.CameraCommand, MaxBytes: cfg.Capture.MaxImageBytes}
	}
	a.capture = capture.New(capture.Deps{
		Camera:     camera,
		Picker:     capture.FilePicker{Prompt: a.askImagePath, MaxBytes: cfg.Capture.MaxImageBytes},
		Recognizer: d.API,
		Catalog:    d.API,
		Gate:       a.gate,
		Creator:    a.repo,
		Log:        d.Log,
	}, capture.Options{
		RecognitionTimeout: cfg.Server.RecognitionTimeout,
		ResultTTL:          cfg.Capture.ResultTTL,
		Language:           a.language,
		OnStateChange:      a.onCaptureState,
	})

	a.editor = reminders.NewEditor(d.API, a.repo, a.bus, d.Log)
	a.agg = interactions.New(d.API, a.repo, a.bus, lang, d.Log)
	a.terms = terms.New(d.Store, a.bus, d.Log)
	a.catalog = catalog.New(d.API, a.gate, a.repo, a.language, d.Log)
	a.auth = services.NewAuthService(d.API, d.Store, d.Log)

	a.subscribeViews()
	a.cmds = a.buildCommands()
	return a, nil
}

// Run shows the welcome screen, resumes a stored session and blocks in the
// REPL until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	a.println(heading("medkeeper") + dim(" (type 'help' for commands)"))

	if ok, _ := a.store.SignedIn(ctx); ok {
		a.startSession(ctx)
		a.println(toast("Welcome back, " + a.userName()))
	} else {
		a.println(dim("You are signed out. Use 'login' to continue."))
	}
	if done, _ := a.store.Flag(ctx, session.FlagTourCompleted); !done {
		a.println(dim("New here? Type 'tour' for a short introduction."))
	}

	runREPL(ctx, a, a.prompt, a.in)
}

// Close stops background work and releases the terminal and database.
func (a *App) Close() error {
	a.endSession()
	for _, s := range a.subs {
		s.Unsubscribe()
	}
	a.agg.Close()
	a.repo.Close()

	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (a *App) commands() map[string]command { return a.cmds }

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) language() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lang
}

func (a *App) userName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == "" {
		return "you"
	}
	return a.user
}

// queue holds a notice produced outside the command flow until the next
// prompt.
func (a *App) queue(msg string) {
	a.mu.Lock()
	a.notices = append(a.notices, msg)
	a.mu.Unlock()
}

func (a *App) flushNotices() {
	a.mu.Lock()
	pending := a.notices
	a.notices = nil
	a.mu.Unlock()
	for _, n := range pending {
		a.println(n)
	}
}

func (a *App) prompt() string {
	a.flushNotices()

	a.mu.Lock()
	defer a.mu.Unlock()
	who := "signed out"
	if a.user != "" {
		who = a.user
	}
	badge := ""
	if a.badgeKnown {
		badge = fmt.Sprintf(" ⏰%d", a.badge)
	}
	return fmt.Sprintf("medkeeper (%s%s)> ", who, badge)
}

// startSession mounts the subscription guard and the reminder badge poll.
func (a *App) startSession(ctx context.Context) {
	name := "signed in"
	if p, err := a.store.Profile(ctx); err == nil && p != nil {
		switch {
		case p.Name != "":
			name = p.Name
		case p.Email != "":
			name = p.Email
		case p.ID != "":
			name = p.ID
		}
	}
	a.mu.Lock()
	a.user = name
	a.mu.Unlock()

	a.guard.Mount(ctx)

	h := poller.Start(ctx, a.cfg.Reminders.PollInterval, func(ctx context.Context) {
		a.repo.InvalidateReminders()
		a.refreshBadge(ctx)
	})
	a.mu.Lock()
	old := a.badgePoll
	a.badgePoll = h
	a.mu.Unlock()
	old.Stop()
}

// endSession stops everything bound to the signed-in user.
func (a *App) endSession() {
	a.guard.Unmount()

	a.mu.Lock()
	h := a.badgePoll
	a.badgePoll = nil
	a.user = ""
	a.badgeKnown = false
	a.pendingAdd = ""
	a.lastListed = nil
	a.mu.Unlock()
	h.Stop()

	a.capture.Close()
	a.repo.Invalidate()
}

func (a *App) refreshBadge(ctx context.Context) {
	n, err := a.repo.ActiveReminderCount(ctx)
	if err != nil {
		a.log.Debug(ctx, "reminder badge refresh failed", "error", err)
		return
	}
	a.mu.Lock()
	a.badge = n
	a.badgeKnown = true
	a.mu.Unlock()
}

func (a *App) badgeCount() (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.badge, a.badgeKnown
}

func (a *App) askImagePath(ctx context.Context) (string, error) {
	return ask(a.in, a.out, "Path to a photo of the package (empty to cancel):")
}

func (a *App) onCaptureState(s capture.State) {
	switch s {
	case capture.StateCaptureDegraded:
		a.println(warning("Camera unavailable, choose an image file instead."))
	case capture.StateRecognizing:
		a.println(dim("Recognizing..."))
	}
}
