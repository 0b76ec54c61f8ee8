package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/dermalab/dermacare-backend/internal/db"
	"github.com/dermalab/dermacare-backend/internal/domain"
	"github.com/dermalab/dermacare-backend/internal/pkg/logger"
	"github.com/dermalab/dermacare-backend/internal/repos"
)

// seedFile is the on-disk catalog format. Conditions and steps stay
// free-form maps; they are stored as JSON exactly as written.
type seedFile struct {
	Rules []struct {
		Name       string         `yaml:"name"`
		Priority   int            `yaml:"priority"`
		Active     *bool          `yaml:"active"`
		Conditions map[string]any `yaml:"conditions"`
		Steps      map[string]any `yaml:"steps"`
	} `yaml:"rules"`
	Products []struct {
		Name           string   `yaml:"name"`
		Brand          string   `yaml:"brand"`
		Category       string   `yaml:"category"`
		SkinTypes      []string `yaml:"skin_types"`
		Concerns       []string `yaml:"concerns"`
		Ingredients    []string `yaml:"ingredients"`
		FragranceFree  bool     `yaml:"fragrance_free"`
		NonComedogenic bool     `yaml:"non_comedogenic"`
		Hero           bool     `yaml:"hero"`
		Priority       int      `yaml:"priority"`
		Active         *bool    `yaml:"active"`
	} `yaml:"products"`
}

func mustJSON(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func main() {
	path := flag.String("file", "seed.yaml", "path to the rules/products seed file")
	flag.Parse()

	log, err := logger.New("development")
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	dbService, err := db.New(log)
	if err != nil {
		log.Fatal("Database init failed", "error", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Fatal("Database auto migration failed", "error", err)
	}
	gdb := dbService.DB()

	raw, err := os.ReadFile(*path)
	if err != nil {
		log.Fatal("Could not read seed file", "file", *path, "error", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		log.Fatal("Could not parse seed file", "file", *path, "error", err)
	}

	ctx := context.Background()
	ruleRepo := repos.NewRuleRepo(gdb, log)
	productRepo := repos.NewProductRepo(gdb, log)

	for _, in := range seed.Rules {
		conditions, err := mustJSON(in.Conditions)
		if err != nil {
			log.Fatal("Bad rule conditions", "rule", in.Name, "error", err)
		}
		steps, err := mustJSON(in.Steps)
		if err != nil {
			log.Fatal("Bad rule steps", "rule", in.Name, "error", err)
		}
		active := true
		if in.Active != nil {
			active = *in.Active
		}
		row := &domain.Rule{
			ID:         uuid.New(),
			Name:       in.Name,
			Priority:   in.Priority,
			Active:     active,
			Conditions: conditions,
			Steps:      steps,
			CreatedAt:  time.Now().UTC(),
		}
		if err := ruleRepo.UpsertByName(ctx, nil, row); err != nil {
			log.Fatal("Rule upsert failed", "rule", in.Name, "error", err)
		}
		log.Info("Rule seeded", "rule", in.Name, "priority", in.Priority)
	}

	for _, in := range seed.Products {
		skinTypes, _ := mustJSON(in.SkinTypes)
		concerns, _ := mustJSON(in.Concerns)
		ingredients, _ := mustJSON(in.Ingredients)
		active := true
		if in.Active != nil {
			active = *in.Active
		}
		row := &domain.Product{
			ID:             uuid.New(),
			Name:           in.Name,
			Brand:          in.Brand,
			Category:       in.Category,
			SkinTypes:      skinTypes,
			Concerns:       concerns,
			Ingredients:    ingredients,
			FragranceFree:  in.FragranceFree,
			NonComedogenic: in.NonComedogenic,
			Hero:           in.Hero,
			Priority:       in.Priority,
			Active:         active,
			CreatedAt:      time.Now().UTC(),
		}
		if err := productRepo.UpsertByName(ctx, nil, row); err != nil {
			log.Fatal("Product upsert failed", "product", in.Name, "error", err)
		}
		log.Info("Product seeded", "product", in.Name, "category", in.Category)
	}

	log.Info("Seeding complete", "rules", len(seed.Rules), "products", len(seed.Products))
}
