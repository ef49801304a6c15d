package main

import (
	"flag"
	"log"

	"github.com/simp-lee/crudbase/internal/app"
	"github.com/simp-lee/crudbase/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "config file location")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config %s: %v", *configPath, err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("init app: %v", err)
	}

	if err := a.Run(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
