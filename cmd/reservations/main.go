package main

import (
	"courtbook/pkg/app"
	"courtbook/pkg/config"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting reservations service",
		"storage", cfg.StorageBackend,
		"locks", cfg.LockBackend,
	)
	serverApp := app.NewApplication()
	serverApp.SetApp(cfg)
	serverApp.Run()
}
