package main

import (
	"flag"
	"net/http"

	"infopoint-backend/lib/configutil"
	"infopoint-backend/lib/gradestore"
	gradestoredb "infopoint-backend/lib/gradestore/db"
	"infopoint-backend/lib/serviceutil"
	"infopoint-backend/lib/sqliteutil"
	infopointsvc "infopoint-backend/services/infopoint"
	"infopoint-backend/services/infopoint/db"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	initialRefresh := flag.Bool("refresh", false, "Refresh all accounts immediately on run.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}

	accounts, err := sqliteutil.OpenDB(db.Schema, cfg.Databases.Accounts)
	if err != nil {
		serviceutil.Fatal("open accounts database", err)
	}
	averages, err := sqliteutil.OpenDB(gradestoredb.Schema, cfg.Databases.Gradestore)
	if err != nil {
		serviceutil.Fatal("open gradestore database", err)
	}

	service, err := infopointsvc.NewService(ctx, accounts, gradestore.NewStore(averages), infopointsvc.Options{
		Smtp:          cfg.Smtp,
		RefreshHour:   cfg.Refresh.Hour,
		RefreshMinute: cfg.Refresh.Minute,
	})
	if err != nil {
		serviceutil.Fatal("init infopoint service", err)
	}

	if *initialRefresh {
		go service.RefreshAll(ctx)
	}

	mux := http.NewServeMux()
	service.Handle(mux)

	go serviceutil.StartHttpServer(cfg.Port, mux)
	<-ctx.Done()
}
