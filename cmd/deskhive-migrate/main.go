package main

import (
	"context"
	"database/sql"
	"flag"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/deskhive/deskhive/pkg/authz"
	"github.com/deskhive/deskhive/pkg/config"
	"github.com/deskhive/deskhive/pkg/rlspolicy"
)

// deskhive-migrate applies the schema migrations and recompiles the row
// level security policies, then exits. Deploy pipelines run it before
// rolling the API server.
func main() {
	tablePath := flag.String("table", "", "Optional permission table override file")
	skipPolicies := flag.Bool("skip-policies", false, "Apply migrations only, leave policies untouched")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to reach database: %v", err)
	}

	if err := rlspolicy.RunMigrations(ctx, db); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}
	log.Info("Migrations applied")

	if *skipPolicies {
		return
	}

	table := authz.DefaultTable()
	if *tablePath != "" {
		table, err = authz.LoadTableFile(*tablePath)
		if err != nil {
			log.Fatalf("Failed to load permission table: %v", err)
		}
	}

	if err := rlspolicy.SyncPolicies(ctx, db, table); err != nil {
		log.Fatalf("Policy sync failed: %v", err)
	}
	log.Info("Row level security policies synced")
}
