package main

import (
	"context"
	"log/slog"

	"infopoint-backend/lib/restyutil"
	"infopoint-backend/lib/serviceutil"
	"infopoint-backend/lib/telemetry"
	infopointsvc "infopoint-backend/services/infopoint"
)

func InitTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	err := telemetry.SetupFromEnv(ctx, "infopointd")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		telemetry.Shutdown(context.Background())
	}()
	telemetry.InstrumentPerfStats(ctx)

	if !verbose {
		return
	}

	infopointsvc.SetRestyInstrumentOutput(
		restyutil.NewFilesystemOutput(".dev/resty/infopoint"),
	)
}
