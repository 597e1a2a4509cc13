// Package server provides the inkblot HTTP API and demo page.
package server

import (
	"context"
	"embed"
	"flag"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"time"

	"github.com/pkg/errors"

	"github.com/xob0t/inkblot/pkg/captcha"
	"github.com/xob0t/inkblot/pkg/glyph"
	"github.com/xob0t/inkblot/pkg/preset"
)

//go:embed web/*
var webContent embed.FS

// Config controls a server instance.
type Config struct {
	Preset     *preset.Preset // base style for every request; nil = defaults
	Font       *glyph.Font    // font used when a request names none; nil = embedded
	TTL        time.Duration  // how long an unsolved captcha stays valid
	IgnoreCase bool           // compare answers case-insensitively
	Logger     *slog.Logger
}

type challenge struct {
	solution    string
	image       []byte
	contentType string
}

type uploadedFont struct {
	name string
	size int
	font *glyph.Font
}

type srv struct {
	cfg      Config
	log      *slog.Logger
	captchas *store[challenge]
	fonts    *store[uploadedFont]
}

func newServer(cfg Config) (*srv, error) {
	if cfg.Preset == nil {
		p, err := preset.Parse([]byte(`{}`))
		if err != nil {
			return nil, err
		}
		cfg.Preset = p
	}
	if cfg.Font == nil {
		f, err := cfg.Preset.LoadFont()
		if err != nil {
			return nil, errors.Wrap(err, "load font")
		}
		cfg.Font = f
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &srv{
		cfg:      cfg,
		log:      cfg.Logger,
		captchas: newStore[challenge](cfg.TTL),
		fonts:    newStore[uploadedFont](0),
	}, nil
}

// Handler returns the HTTP handler for cfg, without starting a listener.
// Expired captchas are swept in the background until ctx is done.
func Handler(ctx context.Context, cfg Config) (http.Handler, error) {
	s, err := newServer(cfg)
	if err != nil {
		return nil, err
	}
	return s.start(ctx)
}

// start builds the routes and launches the sweeper.
func (s *srv) start(ctx context.Context) (http.Handler, error) {
	h, err := s.routes()
	if err != nil {
		return nil, err
	}
	go s.sweepLoop(ctx)
	return h, nil
}

func (s *srv) routes() (http.Handler, error) {
	webFS, err := fs.Sub(webContent, "web")
	if err != nil {
		return nil, errors.Wrap(err, "embed web")
	}

	mux := http.NewServeMux()

	// API routes.
	mux.HandleFunc("POST /api/captcha", s.handleCaptcha)
	mux.HandleFunc("GET /api/captcha/{file}", s.handleGetCaptcha)
	mux.HandleFunc("POST /api/verify", s.handleVerify)
	mux.HandleFunc("POST /api/upload/font", s.handleUploadFont)
	mux.HandleFunc("GET /api/fonts", s.handleListFonts)
	mux.HandleFunc("DELETE /api/fonts/{id}", s.handleDeleteFont)

	// Static files.
	mux.Handle("/", http.FileServer(http.FS(webFS)))
	return mux, nil
}

// sweepLoop reclaims expired captchas until ctx is done.
func (s *srv) sweepLoop(ctx context.Context) {
	t := time.NewTicker(s.cfg.TTL / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.captchas.sweep(); n > 0 {
				s.log.Debug("expired captchas removed", "count", n)
			}
		}
	}
}

// RunServe starts the HTTP server. It blocks until interrupted.
func RunServe(args []string) error {
	fset := flag.NewFlagSet("serve", flag.ExitOnError)
	var (
		port       string
		presetPath string
		ttl        time.Duration
		ignoreCase bool
		open       bool
		verbose    bool
	)
	fset.StringVar(&port, "port", "8080", "Listen port")
	fset.StringVar(&port, "p", "8080", "Listen port")
	fset.StringVar(&presetPath, "preset", "", "Base preset (.inkpreset or JSON)")
	fset.DurationVar(&ttl, "ttl", 5*time.Minute, "Captcha lifetime")
	fset.BoolVar(&ignoreCase, "ignore-case", false, "Accept answers in any case")
	fset.BoolVar(&open, "open", false, "Open the demo page in a browser")
	fset.BoolVar(&verbose, "v", false, "Debug logging")
	if err := fset.Parse(args); err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	captcha.SetLogger(logger.With("component", "captcha"))

	cfg := Config{TTL: ttl, IgnoreCase: ignoreCase, Logger: logger}
	if err := loadServePreset(presetPath, &cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	handler, err := Handler(ctx, cfg)
	if err != nil {
		return err
	}

	addr := ":" + port
	hs := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hs.Shutdown(shutdownCtx)
	}()

	logger.Info("inkblot listening", "url", "http://localhost"+addr)
	if open {
		go openBrowser("http://localhost" + addr)
	}

	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func loadServePreset(path string, cfg *Config) error {
	if path == "" {
		return nil
	}
	if ext := fileExt(path); ext == ".inkpreset" {
		b, err := preset.LoadBundle(path)
		if err != nil {
			return err
		}
		f, err := b.LoadFont()
		if err != nil {
			return err
		}
		cfg.Preset, cfg.Font = b.Preset, f
		return nil
	}
	p, err := preset.ParsePresetFile(path)
	if err != nil {
		return err
	}
	cfg.Preset = p
	return nil
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	cmd.Start()
}
