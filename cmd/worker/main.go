package main

import (
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"meshgym.ai/internal/persistence/indexdb"
	persistlog "meshgym.ai/internal/persistence/log"
	"meshgym.ai/internal/sim/env"
	"meshgym.ai/internal/sim/scene"
	"meshgym.ai/internal/sim/tuning"
	"meshgym.ai/internal/transport/observer"
	"meshgym.ai/internal/transport/tcpline"
)

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:5005", "tcp listen address for the trainer protocol")
		asset      = flag.String("asset", "", "scene file imported on every reset (optional)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <data>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite run index")

		observerListen = flag.String("observer_listen", "", "diagnostics websocket listen address (empty to disable)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[worker] ", log.LstdFlags|log.Lmicroseconds)

	_ = os.MkdirAll(*dataDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*dataDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	e := env.New(scene.NewMemoryEngine(), tune, strings.TrimSpace(*asset), logger)

	epLog := persistlog.NewEpisodeLogger(*dataDir)
	defer func() {
		if err := epLog.Close(); err != nil {
			logger.Printf("close episode log: %v", err)
		}
	}()
	e.AttachDiag(epLog)

	if !*disableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "runs.db"))
		if err != nil {
			logger.Fatalf("open run index: %v", err)
		}
		defer func() {
			if err := idx.Close(); err != nil {
				logger.Printf("close run index: %v", err)
			}
		}()
		e.AttachDiag(idx)
	}

	if la := strings.TrimSpace(*observerListen); la != "" {
		hub := observer.NewHub(logger)
		e.AttachDiag(hub)
		mux := http.NewServeMux()
		mux.HandleFunc("/v1/diag", hub.WSHandler())
		go func() {
			logger.Printf("observer listening on %s", la)
			if err := http.ListenAndServe(la, mux); err != nil {
				logger.Printf("observer: %v", err)
			}
		}()
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatalf("listen: %v", err)
	}

	srv := tcpline.NewServer(e, logger)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Printf("shutting down")
		srv.Close()
	}()

	logger.Printf("listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil {
		logger.Fatalf("serve: %v", err)
	}
}
