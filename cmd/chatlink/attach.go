package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mkulimasmart/chatlink/internal/config"
	"github.com/mkulimasmart/chatlink/internal/devserver"
	"github.com/mkulimasmart/chatlink/internal/keyring"
	"github.com/mkulimasmart/chatlink/internal/media"
	"github.com/mkulimasmart/chatlink/internal/protocol"
	"github.com/mkulimasmart/chatlink/internal/session"
)

func initConfig() error {
	path := config.Path()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := config.CreateFromExample(path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func attach(args []string) error {
	fs := flag.NewFlagSet("attach", flag.ExitOnError)
	threadID := fs.String("thread", "", "thread id to attach to")
	cfgPath := fs.String("config", "", "config file (default: CHATLINK_HOME/config.yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *threadID == "" {
		return errors.New("attach: --thread is required")
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfgFile := config.ResolveConfigPath(*cfgPath)
	cfg, err := config.Load(cfgFile)
	if err != nil {
		slog.Warn("config not found, using defaults", "path", cfgFile, "error", err)
		cfg = config.DefaultConfig()
	}
	config.Set(cfg)
	if cfg.Identity.UserID == "" {
		return errors.New("identity.userId is not set in the config")
	}
	if cfg.Auth.Token == "" {
		return errors.New("auth.token is not set in the config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	config.RegisterOnReload(func(c *config.Config) {
		if c.Server.URL != cfg.Server.URL {
			slog.Warn("server url changed in config; re-attach to apply", "url", c.Server.URL)
		}
	})
	go config.Watch(ctx, cfgFile)

	if err := os.MkdirAll(config.MediaDir(), 0755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}

	var keys media.KeyStrategy = media.WrappedKeyStrategy{
		Provider: keyring.NewFileProvider(cfg.Media.KeyFile),
	}
	if cfg.Media.RawKeyMode {
		slog.Warn("raw-key mode enabled; this is a test harness mode, never production")
		keys = media.RawKeyStrategy{}
	}
	pipeline := media.NewPipeline(keys, &http.Client{
		Timeout:   cfg.Media.FetchTimeout,
		Transport: &media.BearerTransport{Token: cfg.Auth.Token},
	})

	renderer := newTermRenderer(os.Stdout, config.MediaDir())
	sess := session.New(session.Params{
		ThreadID:             *threadID,
		UserID:               cfg.Identity.UserID,
		BaseURL:              cfg.Server.URL,
		Renderer:             renderer,
		Dial:                 session.WebSocketDialer(cfg.Server.URL, cfg.Server.InsecureSkipVerify),
		Decrypter:            pipeline,
		TypingExpiry:         cfg.Chat.TypingExpiry,
		MaxReconnectAttempts: cfg.Chat.MaxReconnectAttempts,
		DedupCapacity:        cfg.Chat.DedupCapacity,
	})
	defer sess.Close()

	if err := sess.Connect(ctx, cfg.Auth.Token); err != nil {
		slog.Warn("initial connect failed, retrying in background", "error", err)
	}

	localUser := protocol.CanonicalID(cfg.Identity.UserID)
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Printf("attached to thread %s as %s. type to send, /quit to exit\n", *threadID, localUser)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok || line == "/quit" {
				return nil
			}
			if line == "" {
				continue
			}
			// Optimistic render: the inbound echo of our own message is
			// suppressed by the session.
			renderer.Local(localUser, line)
			queued, err := sess.Send(protocol.NewMessage(*threadID, localUser, line))
			if err != nil {
				slog.Warn("send failed, frame requeued", "error", err)
			} else if queued {
				fmt.Println("  (offline, queued for delivery)")
			}
		}
	}
}

func devServe(args []string) error {
	fs := flag.NewFlagSet("devserver", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:19820", "listen address")
	token := fs.String("token", "", "auth token (generated when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	tok := *token
	if tok == "" {
		tok = config.GenerateToken()
		fmt.Printf("token: %s\n", tok)
	}
	return devserver.New(tok).Run(*addr)
}
