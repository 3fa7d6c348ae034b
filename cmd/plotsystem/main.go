// Command plotsystem runs a dragonfly server with the plot system tutorials.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/LonghiTW/Plot-System/server/cmd/builtin"
	"github.com/LonghiTW/Plot-System/server/console"
	"github.com/LonghiTW/Plot-System/server/tutorial"
	"github.com/df-mc/dragonfly/server"
	"github.com/df-mc/dragonfly/server/player/chat"
	"github.com/pelletier/go-toml"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	chat.Global.Subscribe(chat.StdoutSubscriber{})

	if err := run(log); err != nil {
		log.Error("Server stopped with an error.", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	uc, err := readTOML("config.toml", server.DefaultConfig())
	if err != nil {
		return err
	}
	conf, err := uc.Config(log)
	if err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	tc, err := readTOML("tutorial.toml", tutorial.DefaultConfig())
	if err != nil {
		return err
	}
	if err := tc.ApplyEnv(); err != nil {
		return err
	}

	srv := conf.New()
	srv.CloseOnProgramEnd()

	tutorials, err := newTutorials(log, srv, tc)
	if err != nil {
		return err
	}
	defer tutorials.close()
	builtin.Register(srv, tutorials.reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go console.New(srv.World(), log).Run(ctx)

	srv.Listen()
	for p := range srv.Accept() {
		tutorials.accept(p)
	}
	return nil
}

// readTOML decodes the TOML file at path into a copy of def. If the file
// does not exist, it is created with the values of def.
func readTOML[T any](path string, def T) (T, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		data, err := toml.Marshal(def)
		if err != nil {
			return def, fmt.Errorf("encode default %v: %w", path, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return def, fmt.Errorf("create default %v: %w", path, err)
		}
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("read %v: %w", path, err)
	}
	if err := toml.Unmarshal(data, &def); err != nil {
		return def, fmt.Errorf("decode %v: %w", path, err)
	}
	return def, nil
}
