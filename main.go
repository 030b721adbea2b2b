package main

import (
	"context"
	"flag"
	"html/template"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/jmoiron/sqlx"

	"salesboard/auth"
	"salesboard/config"
	"salesboard/database"
	"salesboard/loader"
	"salesboard/views"
)

// server bundles what the handlers share.
type server struct {
	db       *sqlx.DB
	users    *auth.Store
	sessions *auth.SessionManager
	tmpl     *template.Template
}

func main() {
	noBrowser := flag.Bool("no-browser", false, "do not open the dashboard in a browser")
	flag.Parse()

	log := config.GetLogger()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Warnf("Failed to load config file: %v. Using defaults.", err)
		cfg = config.Defaults()
	}

	log.Info("Connecting to sales database...")
	dbConn, err := database.Open(cfg.SalesDBPath)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer dbConn.Close()

	if err := loader.ApplySchema(context.Background(), dbConn); err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	log.Info("Database initialization complete.")

	users, err := auth.Open(cfg.AuthDBPath)
	if err != nil {
		log.Fatalf("credential store error: %v", err)
	}
	defer users.Close()

	tmpl, err := views.Parse()
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}
	log.Info("HTML templates loaded and parsed.")

	s := &server{
		db:       dbConn,
		users:    users,
		sessions: auth.NewSessionManager(cfg.SessionSecret, time.Duration(cfg.SessionHours)*time.Hour),
		tmpl:     tmpl,
	}

	mux := http.NewServeMux()
	SetupRoutes(mux, s)

	addr := ":" + cfg.Port
	url := "http://localhost" + addr
	log.Infof("Starting server on %s", url)
	if !*noBrowser {
		openBrowser(url)
	}

	if err := http.ListenAndServe(addr, s.sessions.Middleware(mux)); err != nil {
		log.Fatalf("server start error: %v", err)
	}
}

func openBrowser(url string) {
	var err error
	switch runtime.GOOS {
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = exec.Command("xdg-open", url).Start()
	}
	if err != nil {
		config.GetLogger().Warnf("failed to open browser: %v", err)
	}
}
