// seed-catalog loads campaigns and their collectibles from a JSON file.
//
// Usage: seed-catalog -file=<catalog.json> [-driver=sqlite] [-dsn=<dsn>] [-dry-run] [-execute]
//
// Campaigns are matched by name and collectibles by name within their
// campaign, so running the same file twice creates nothing the second time.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codyseavey/tcg-exchange/internal/config"
	"github.com/codyseavey/tcg-exchange/internal/database"
	"github.com/codyseavey/tcg-exchange/internal/logging"
	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/repository"
)

type catalogFile struct {
	Campaigns []campaignSeed `json:"campaigns"`
}

type campaignSeed struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Image        string            `json:"image"`
	StartDate    time.Time         `json:"start_date"`
	EndDate      time.Time         `json:"end_date"`
	Collectibles []collectibleSeed `json:"collectibles"`
}

type collectibleSeed struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// SeedResult tracks the outcome for one campaign or collectible
type SeedResult struct {
	Kind     string // "campaign" or "collectible"
	Campaign string
	Name     string
	Action   string // "created", "exists", "invalid"
	Reason   string
}

func main() {
	file := flag.String("file", "", "Path to the catalog JSON file (required)")
	driver := flag.String("driver", envOr("DATABASE_DRIVER", "sqlite"), "Database driver: sqlite or postgres")
	dsn := flag.String("dsn", envOr("DATABASE_DSN", "./tcg_exchange.db"), "Database DSN")
	dryRun := flag.Bool("dry-run", false, "Preview changes without modifying the database")
	execute := flag.Bool("execute", false, "Write the catalog (required to make changes)")
	flag.Parse()

	if *file == "" {
		fmt.Println("Usage: seed-catalog -file=<catalog.json> [options]")
		fmt.Println("")
		fmt.Println("Options:")
		fmt.Println("  -file      Path to the catalog JSON file (required)")
		fmt.Println("  -driver    sqlite or postgres (default from DATABASE_DRIVER)")
		fmt.Println("  -dsn       Database DSN (default from DATABASE_DSN)")
		fmt.Println("  -dry-run   Preview changes without modifying the database")
		fmt.Println("  -execute   Write the catalog")
		os.Exit(1)
	}
	if *dryRun == *execute {
		fmt.Println("Error: specify exactly one of -dry-run or -execute")
		os.Exit(1)
	}

	log := logging.New("info", "text")

	seed, err := loadCatalogFile(*file)
	if err != nil {
		log.WithError(err).Fatal("failed to read catalog file")
	}

	db, err := database.Open(config.DatabaseConfig{Driver: strings.ToLower(*driver), DSN: *dsn}, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}

	results, err := seedCatalog(context.Background(), repository.New(db), seed, *execute, log)
	if err != nil {
		log.WithError(err).Fatal("seeding failed")
	}
	printSummary(results, *dryRun)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadCatalogFile(path string) (*catalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed catalogFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &seed, nil
}

// seedCatalog plans every insert and, when execute is set, performs them in
// one transaction.
func seedCatalog(ctx context.Context, store *repository.Store, seed *catalogFile, execute bool, log logrus.FieldLogger) ([]SeedResult, error) {
	var results []SeedResult
	apply := func(tx *repository.Store) error {
		results = results[:0]
		existing, err := tx.Catalog.ListCampaigns(ctx)
		if err != nil {
			return err
		}
		byName := make(map[string]uint, len(existing))
		for _, c := range existing {
			byName[strings.ToLower(c.Name)] = c.ID
		}

		for _, cs := range seed.Campaigns {
			name := strings.TrimSpace(cs.Name)
			if name == "" {
				results = append(results, SeedResult{Kind: "campaign", Action: "invalid", Reason: "missing name"})
				continue
			}

			known := map[string]bool{}
			campaignID, found := byName[strings.ToLower(name)]
			if found {
				results = append(results, SeedResult{Kind: "campaign", Campaign: name, Name: name, Action: "exists"})
				campaign, err := tx.Catalog.CampaignByID(ctx, campaignID)
				if err != nil {
					return err
				}
				for _, item := range campaign.Collectibles {
					known[strings.ToLower(item.Name)] = true
				}
			} else {
				results = append(results, SeedResult{Kind: "campaign", Campaign: name, Name: name, Action: "created"})
				if execute {
					campaign := &models.Campaign{
						Name: name, Description: cs.Description, Image: cs.Image,
						StartDate: cs.StartDate, EndDate: cs.EndDate,
					}
					if err := tx.Catalog.CreateCampaign(ctx, campaign); err != nil {
						return err
					}
					campaignID = campaign.ID
					byName[strings.ToLower(name)] = campaignID
				}
			}

			for _, item := range cs.Collectibles {
				itemName := strings.TrimSpace(item.Name)
				r := SeedResult{Kind: "collectible", Campaign: name, Name: itemName}
				switch {
				case itemName == "":
					r.Action, r.Reason = "invalid", "missing name"
				case known[strings.ToLower(itemName)]:
					r.Action = "exists"
				default:
					r.Action = "created"
					known[strings.ToLower(itemName)] = true
					if execute {
						if err := tx.Catalog.CreateCollectible(ctx, &models.Collectible{
							CampaignID: campaignID, Name: itemName, Description: item.Description, Image: item.Image,
						}); err != nil {
							return err
						}
					}
				}
				results = append(results, r)
			}
		}
		return nil
	}

	if !execute {
		if err := apply(store); err != nil {
			return nil, err
		}
		return results, nil
	}
	if err := store.Tx(ctx, apply); err != nil {
		return nil, err
	}
	log.WithField("rows", len(results)).Info("catalog seeded")
	return results, nil
}

func printSummary(results []SeedResult, dryRun bool) {
	counts := map[string]int{}
	for _, r := range results {
		counts[r.Kind+"/"+r.Action]++
		if r.Action == "invalid" {
			fmt.Printf("  ⚠ %s in %q skipped: %s\n", r.Kind, r.Campaign, r.Reason)
		}
	}

	verb := "Created"
	if dryRun {
		verb = "Would create"
	}
	fmt.Println("\n=== SUMMARY ===")
	fmt.Printf("%s %d campaigns and %d collectibles\n", verb, counts["campaign/created"], counts["collectible/created"])
	fmt.Printf("Already present: %d campaigns, %d collectibles\n", counts["campaign/exists"], counts["collectible/exists"])
	if n := counts["campaign/invalid"] + counts["collectible/invalid"]; n > 0 {
		fmt.Printf("Skipped %d invalid rows\n", n)
	}
}
