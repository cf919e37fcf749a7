// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ManuGH/iptranscoder/internal/config"
	"github.com/ManuGH/iptranscoder/internal/enforcer"
	"github.com/ManuGH/iptranscoder/internal/ffmpeg"
	"github.com/ManuGH/iptranscoder/internal/log"
	"github.com/ManuGH/iptranscoder/internal/model"
	"github.com/ManuGH/iptranscoder/internal/schedule"
	"github.com/ManuGH/iptranscoder/internal/store"
	"github.com/ManuGH/iptranscoder/internal/supervisor"
)

// channelArgs parses the flags shared by run and command and the trailing
// channel ID.
func channelArgs(name string, args []string) (configPath string, purpose model.Purpose, channelID int64, ok bool) {
	fs := flag.NewFlagSet("transcoderd "+name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cfgFlag := configFlag(fs)
	purposeFlag := fs.String("purpose", string(model.PurposeLiveForward), "job purpose")
	if err := fs.Parse(args); err != nil {
		return "", "", 0, false
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: transcoderd %s takes exactly one channel id\n", name)
		return "", "", 0, false
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintf(os.Stderr, "Error: invalid channel id %q\n", fs.Arg(0))
		return "", "", 0, false
	}
	return *cfgFlag, model.Purpose(*purposeFlag), id, true
}

func openStore(ctx context.Context, name, configPath string) (config.Config, store.Store, bool) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", name, err)
		return cfg, nil, false
	}
	st, err := store.Open(ctx, cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: open store: %v\n", name, err)
		return cfg, nil, false
	}
	return cfg, st, true
}

// runOneShot runs one channel job in the foreground. An interrupt stops the
// job gracefully and waits for it to exit.
func runOneShot(args []string) int {
	configPath, purpose, channelID, ok := channelArgs("run", args)
	if !ok {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, st, ok := openStore(ctx, "run", configPath)
	if !ok {
		return 1
	}
	defer func() { _ = st.Close() }()

	clock := schedule.NewRealClock(cfg.Location())
	builder := ffmpeg.NewBuilder(cfg.FFmpeg.Bin, cfg.MediaRoot, clock.Now)
	sup := supervisor.New(supervisor.Options{StopKillAfter: cfg.Enforcer.StopKillAfter})
	runner := enforcer.NewRunner(st, builder, enforcer.ProcessLauncher{Supervisor: sup})

	logger := log.WithComponent("run")
	status, err := runner.RunOnce(ctx, channelID, purpose)
	if err != nil {
		logger.Error().Err(err).
			Int64(log.FieldChannelID, channelID).
			Str(log.FieldPurpose, string(purpose)).
			Msg("job could not be started")
		return 1
	}
	if ctx.Err() != nil || status.Clean() {
		return 0
	}
	return 1
}

// runCommand prints the command a channel would run, without touching the
// filesystem.
func runCommand(args []string, out io.Writer) int {
	configPath, purpose, channelID, ok := channelArgs("command", args)
	if !ok {
		return 2
	}
	ctx := context.Background()

	cfg, st, ok := openStore(ctx, "command", configPath)
	if !ok {
		return 1
	}
	defer func() { _ = st.Close() }()

	ch, err := st.Channel(ctx, channelID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: channel %d: %v\n", channelID, err)
		return 1
	}
	builder := ffmpeg.NewBuilder(cfg.FFmpeg.Bin, cfg.MediaRoot, schedule.NewRealClock(cfg.Location()).Now)
	argv, err := builder.Preview(ch, purpose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, ffmpeg.Quote(argv))
	return 0
}
