package commands

import (
	"context"
	"time"

	"infopoint-backend/lib/configutil"
	"infopoint-backend/lib/restyutil"
	scraper "infopoint-backend/lib/scrapers/infopoint"
	"infopoint-backend/lib/serviceutil"
)

type Config struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func createClient() *scraper.Client {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	client, err := scraper.NewClient(scraper.ClientOptions{
		BaseUrl:  cfg.BaseUrl,
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  time.Second * 30,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize client", err)
	}
	restyutil.InstrumentClient(client.Http, restyutil.NewFilesystemOutput(".dev/resty/infopoint-cli"))
	return client
}

func fetchSnapshot(ctx context.Context) scraper.Snapshot {
	client := createClient()
	snapshot, err := client.FetchSnapshot(ctx)
	if err != nil {
		serviceutil.Fatal("failed to fetch snapshot", err)
	}
	return snapshot
}
