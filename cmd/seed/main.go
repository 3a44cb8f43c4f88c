package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"interview-ai-credits/internal/config"
	"interview-ai-credits/internal/domain/model"
	"interview-ai-credits/internal/domain/ports/repository"
	pg "interview-ai-credits/internal/infra/db/postgres"
	"interview-ai-credits/internal/infra/logging"
	"interview-ai-credits/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	planRepo := pg.NewPlanRepo(pool)
	planUC := usecase.NewPlanUseCase(planRepo, logger)

	// If the catalog already has rows, do nothing
	if existing, err := planRepo.ListAll(ctx, repository.NoTX); err == nil && len(existing) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(existing))
		for _, p := range existing {
			fmt.Printf("  - %s (credits=%d, price=%d cents)\n", p.Name, p.Credits, p.PriceCents)
		}
		return
	}

	for _, p := range model.DefaultCreditPlans() {
		if err := planUC.Save(ctx, p); err != nil {
			log.Fatalf("seed plan %q: %v", p.ID, err)
		}
		fmt.Printf("seeded: %s (id=%s, credits=%d, price=%d cents)\n", p.Name, p.ID, p.Credits, p.PriceCents)
	}

	fmt.Println("Seeding complete.")
}
