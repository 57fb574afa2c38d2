package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/om-08/level-up-tasks/internal/config"
	"github.com/om-08/level-up-tasks/internal/serverapp"
)

func main() {
	cfgPath := "levelup_config.yml"
	if env := os.Getenv("LEVELUP_CONFIG"); env != "" {
		cfgPath = env
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("load config: %v", err)
		}
		log.Printf("no config at %s, using defaults", cfgPath)
		cfg = config.Default()
	}

	app, err := serverapp.New(serverapp.Options{
		Config:        cfg,
		DataDir:       cfg.Server.DataDir,
		StaticDir:     "static",
		UseDiskStatic: serverapp.UseDiskStaticByEnv(),
		Logger:        log.Default(),
	})
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.Scheduler.Start(ctx)

	log.Printf("listening on http://localhost%s", cfg.Server.Addr)
	log.Fatal(http.ListenAndServe(cfg.Server.Addr, app.Handler))
}
