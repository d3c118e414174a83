package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"onistone.build/internal/config"
	"onistone.build/internal/logging"
	"onistone.build/internal/persistence/blueprint"
	persistlog "onistone.build/internal/persistence/log"
	"onistone.build/internal/sim/engine"
	"onistone.build/internal/sim/zones"
	"onistone.build/internal/transport/httpapi"
	"onistone.build/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "./builder.yaml", "config path (written with defaults when missing)")
		addr       = flag.String("addr", "", "websocket listen address (overrides server.addr)")
		adminAddr  = flag.String("admin_addr", "", "admin http listen address (overrides server.admin_addr, \"-\" disables)")
		dataDir    = flag.String("data", "", "runtime data directory (overrides paths.data_dir)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite operation index")
		snapEvery  = flag.Duration("snapshot_every", 5*time.Minute, "world snapshot interval (0 disables periodic snapshots)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		if werr := config.WriteDefault(*configPath); werr != nil {
			logrus.WithError(werr).Fatal("write default config")
		}
		err = nil
	}
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *adminAddr != "" {
		cfg.Server.AdminAddr = *adminAddr
	}
	if *dataDir != "" {
		cfg.Paths.DataDir = *dataDir
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	log := logger.WithField("component", "server")

	ctx, cancel := signalContext()
	defer cancel()

	worlds, err := loadWorlds(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("load worlds")
	}

	bps, err := blueprint.NewStore(cfg.Resolve(cfg.Paths.BlueprintFolder), cfg.Resolve(cfg.Paths.SharedFolder))
	if err != nil {
		log.WithError(err).Fatal("open blueprint store")
	}
	bps.SetMaxCells(cfg.Limits.MaxSelectionVolume)

	zonePath := cfg.Resolve(cfg.Zones.File)
	zm := zones.NewManager(time.Now)
	if err := zm.Load(zonePath); err != nil {
		log.WithError(err).Fatal("load zones")
	}

	opLog := persistlog.NewOperationLogger(cfg.Paths.DataDir)
	defer opLog.Close()
	journal := engine.MultiJournal{opLog}

	idx, err := openIndex(cfg.Paths.DataDir, *disableDB)
	if err != nil {
		log.WithError(err).Fatal("open index")
	}
	var index httpapi.OperationIndex
	if idx != nil {
		defer idx.Close()
		journal = append(journal, idx)
		index = idx
	}

	hub := ws.NewHub()
	eng := engine.New(engine.Options{
		Config:     cfg,
		Worlds:     worlds,
		Zones:      zm,
		Blueprints: bps,
		Notifier:   hub,
		Journal:    journal,
		Log:        logger,
	})

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("engine stopped")
		}
	}()

	go snapshotLoop(ctx, cfg, eng, worlds, *snapEvery, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", ws.NewServer(eng, hub, logger).Handler())
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	servers := []*http.Server{srv}

	if a := strings.TrimSpace(cfg.Server.AdminAddr); a != "" && a != "-" {
		admin := &http.Server{
			Addr:              a,
			Handler:           httpapi.New(eng, index, hub, logger).Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		servers = append(servers, admin)
		go serve(admin, log.WithField("listener", "admin"))
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		for _, s := range servers {
			_ = s.Shutdown(ctx2)
		}
	}()

	serve(srv, log.WithField("listener", "ws"))
	<-ctx.Done()
	<-engineDone

	// The engine goroutine has exited, so its state is safe to read.
	saveWorlds(cfg, worlds, eng.CurrentTick(), log)
	if err := eng.SaveZones(zonePath); err != nil {
		log.WithError(err).Error("save zones")
	} else {
		log.WithField("path", filepath.Base(zonePath)).Info("zones saved")
	}
}

func serve(s *http.Server, log logrus.FieldLogger) {
	log.WithField("addr", s.Addr).Info("listening")
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("listen")
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
