package main

import (
	"context"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"rosterwatch/internal/config"
	"rosterwatch/internal/database"
	"rosterwatch/internal/logger"
	"rosterwatch/internal/report"
	"rosterwatch/internal/repository"
)

// roster-export writes the current open roster of every enabled facility
// to an Excel workbook, one sheet per facility.
func main() {
	output := flag.String("o", "roster.xlsx", "output file path")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, "console", "roster-export")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	custodyRepo := repository.NewCustodyRepository(db, zlog, cfg.Persist.BatchSize, cfg.Persist.TouchThreshold)
	facRepo := repository.NewFacilityRepository(db, zlog)

	ctx := context.Background()
	facilities, err := facRepo.ListEnabled(ctx)
	if err != nil {
		zlog.Fatal("Failed to list facilities", zap.Error(err))
	}

	var rosters []report.FacilityRoster
	for _, fac := range facilities {
		records, err := custodyRepo.ListPublicRoster(ctx, fac.FacilityID)
		if err != nil {
			zlog.Fatal("Failed to load roster",
				zap.String("facility_id", fac.FacilityID), zap.Error(err))
		}
		rosters = append(rosters, report.FacilityRoster{Facility: fac, Records: records})
	}

	workbook, err := report.GenerateRosterWorkbook(rosters)
	if err != nil {
		zlog.Fatal("Failed to generate workbook", zap.Error(err))
	}

	if err := os.WriteFile(*output, workbook, 0o644); err != nil {
		zlog.Fatal("Failed to write output file", zap.Error(err))
	}

	zlog.Info("Roster exported",
		zap.String("path", *output),
		zap.Int("facilities", len(rosters)),
	)
}
