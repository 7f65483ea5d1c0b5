package main

import (
	"context"

	"infopoint-backend/cmd/infopoint-cli/commands"
	"infopoint-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "infopoint-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
