package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/dm-vev/silkspawner/server"
	"github.com/dm-vev/silkspawner/server/cmd/builtin"
	"github.com/dm-vev/silkspawner/server/console"
	"github.com/dm-vev/silkspawner/server/silktouch"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	uc, err := server.ReadConfig("config.toml")
	if err != nil {
		log.Error("Read config.", "error", err)
		os.Exit(1)
	}
	conf, err := uc.Config(log)
	if err != nil {
		log.Error("Create server config.", "error", err)
		os.Exit(1)
	}

	srv := conf.New(silktouch.Registration())
	srv.CloseOnProgramEnd()
	builtin.Register(srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go console.New(srv, log.With("src", "console")).Run(ctx)

	srv.LoadPlugins()
	srv.Listen()
	for p := range srv.Accept() {
		log.Debug("Player joined.", "name", p.Name())
	}
}
