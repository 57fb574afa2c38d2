// Package serverapp assembles the HTTP surface: auth, task and points
// APIs, the points mirror, server-rendered pages, static assets and the
// background scheduler, all behind the shared middleware chain.
package serverapp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/om-08/level-up-tasks/internal/auth"
	"github.com/om-08/level-up-tasks/internal/clock"
	"github.com/om-08/level-up-tasks/internal/config"
	"github.com/om-08/level-up-tasks/internal/httpmw"
	"github.com/om-08/level-up-tasks/internal/points"
	"github.com/om-08/level-up-tasks/internal/profile"
	"github.com/om-08/level-up-tasks/internal/rank"
	"github.com/om-08/level-up-tasks/internal/scheduler"
	"github.com/om-08/level-up-tasks/internal/summary"
	"github.com/om-08/level-up-tasks/internal/task"
	staticfiles "github.com/om-08/level-up-tasks/static"
	"github.com/om-08/level-up-tasks/ui/page"
)

type Options struct {
	Config        *config.Config
	DataDir       string
	StaticDir     string
	UseDiskStatic bool
	Logger        *log.Logger
	Clock         clock.Clock

	// Sender overrides the SMTP mailer; tests inject a recorder here.
	Sender summary.Sender
}

// App is the assembled server. The handler is ready immediately; the
// scheduler only runs once Scheduler.Start is called, so tests can drive
// passes by hand instead.
type App struct {
	Handler   http.Handler
	Scheduler *scheduler.Scheduler
}

func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if strings.TrimSpace(opts.DataDir) == "" {
		opts.DataDir = opts.Config.Server.DataDir
	}
	if strings.TrimSpace(opts.DataDir) == "" {
		opts.DataDir = "data"
	}
	if strings.TrimSpace(opts.StaticDir) == "" {
		opts.StaticDir = "static"
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	cfg := opts.Config

	mux := http.NewServeMux()

	staticHandler := http.FileServer(http.FS(staticfiles.EmbeddedFS()))
	if opts.UseDiskStatic {
		staticHandler = http.FileServer(http.Dir(opts.StaticDir))
	}
	mux.Handle("/static/", http.StripPrefix("/static/", staticHandler))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "levelup",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	authRepo, err := auth.NewFileRepo(filepath.Join(opts.DataDir, "auth"))
	if err != nil {
		return nil, err
	}
	authService := auth.NewService(authRepo, opts.Logger, cfg.Auth)
	logSecurityHints(opts.Logger)
	authHandler := auth.NewHandler(authService)
	mux.HandleFunc("/api/auth/signup", authHandler.SignUp)
	mux.HandleFunc("/api/auth/login", authHandler.SignIn)
	mux.HandleFunc("/api/auth/session", authHandler.Session)
	mux.HandleFunc("/api/auth/logout", authHandler.Logout)

	if oauth := auth.NewOAuth(authService, cfg.OAuth); oauth != nil {
		mux.HandleFunc("/auth/start", oauth.Start)
		mux.HandleFunc("/auth/callback", oauth.Callback)
	}

	taskRepo, err := task.NewFileRepo(filepath.Join(opts.DataDir, "tasks"), opts.Logger)
	if err != nil {
		return nil, err
	}
	pointsRepo, err := points.NewFileRepo(filepath.Join(opts.DataDir, "points"), opts.Logger)
	if err != nil {
		return nil, err
	}

	profileStore, err := profile.Open(filepath.Join(opts.DataDir, "profiles.db"), opts.Logger)
	if err != nil {
		return nil, err
	}

	ranks := rank.NewResolver(cfg.Ranks)

	taskHandler := task.NewHandler(taskRepo, ranks, cfg.Categories, opts.Clock, opts.Logger)
	taskHandler.SetRepoResolver(func(r *http.Request) task.Repo {
		u, ok := auth.UserFromContext(r.Context())
		if !ok {
			return taskRepo
		}
		return taskRepo.ForUser(u.ID)
	})
	taskHandler.SetLedgerResolver(func(r *http.Request) *points.FileRepo {
		u, ok := auth.UserFromContext(r.Context())
		if !ok {
			return pointsRepo
		}
		return pointsRepo.ForUser(u.ID)
	})
	taskHandler.SetProfileSync(func(r *http.Request, newPoints int) {
		u, ok := auth.UserFromContext(r.Context())
		if !ok {
			return
		}
		profileStore.SyncPoints(u.ID, u.Email, newPoints)
	})
	mux.Handle("/api/tasks", authService.RequireAPI(http.HandlerFunc(taskHandler.TasksRoot)))
	mux.Handle("/api/tasks/", authService.RequireAPI(http.HandlerFunc(taskHandler.TasksSub)))
	mux.Handle("/api/challenges", authService.RequireAPI(http.HandlerFunc(taskHandler.Challenges)))

	pointsHandler := points.NewHandler(ranks)
	pointsHandler.SetRepoResolver(func(r *http.Request) *points.FileRepo {
		u, ok := auth.UserFromContext(r.Context())
		if !ok {
			return pointsRepo
		}
		return pointsRepo.ForUser(u.ID)
	})
	mux.Handle("/api/points", authService.RequireAPI(http.HandlerFunc(pointsHandler.State)))
	mux.Handle("/api/settings/sender-email", authService.RequireAPI(http.HandlerFunc(pointsHandler.SenderEmail)))

	mux.Handle("/api/profile", authService.RequireAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		u, _ := auth.UserFromContext(r.Context())
		p, err := profileStore.Get(u.ID)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "no profile yet"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"profile": p})
	})))

	mux.Handle("/api/config", authService.RequireAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})))

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, err := taskRepo.List(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": "task storage unavailable",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "levelup",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.Handle("/login", templ.Handler(page.Login()))
	home := authService.RequirePage(templ.Handler(page.Home()))
	notFound := templ.Handler(page.NotFound(), templ.WithStatus(http.StatusNotFound))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			notFound.ServeHTTP(w, r)
			return
		}
		home.ServeHTTP(w, r)
	}))

	sender := opts.Sender
	if sender == nil && cfg.Email.SMTPHost != "" {
		sender = summary.NewMailer(cfg.Email, opts.Logger)
	}
	sched := scheduler.New(taskRepo, pointsRepo, authRepo, ranks, sender, opts.Clock, opts.Logger, cfg)

	handler := httpmw.Chain(
		mux,
		httpmw.WithAccessLog(opts.Logger),
		httpmw.WithRequestID,
		httpmw.WithRecover(opts.Logger),
	)

	return &App{Handler: handler, Scheduler: sched}, nil
}

func UseDiskStaticByEnv() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LEVELUP_DEV_STATIC"))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func logSecurityHints(logger *log.Logger) {
	if logger == nil {
		return
	}
	env := strings.ToLower(strings.TrimSpace(os.Getenv("LEVELUP_ENV")))
	cookieSecure := strings.ToLower(strings.TrimSpace(os.Getenv("LEVELUP_COOKIE_SECURE")))

	if env == "production" || env == "prod" {
		if cookieSecure != "1" && cookieSecure != "true" && cookieSecure != "yes" {
			logger.Printf("[security] LEVELUP_ENV=%s but LEVELUP_COOKIE_SECURE is not explicitly true", env)
		}
	}
}
