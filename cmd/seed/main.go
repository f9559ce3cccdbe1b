// Command seed imports or wipes the development data set
// (dev-data/tours.json, users.json, reviews.json).
//
//	go run ./cmd/seed -import
//	go run ./cmd/seed -delete
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/Tosino95/natours/internal/bookings"
	"github.com/Tosino95/natours/internal/config"
	"github.com/Tosino95/natours/internal/db"
	"github.com/Tosino95/natours/internal/reviews"
	"github.com/Tosino95/natours/internal/tours"
	"github.com/Tosino95/natours/internal/users"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	doImport := flag.Bool("import", false, "import dev data")
	doDelete := flag.Bool("delete", false, "delete all data")
	dataDir := flag.String("data", "dev-data", "directory with JSON fixtures")
	flag.Parse()

	if *doImport == *doDelete {
		log.Fatal("pass exactly one of -import or -delete")
	}

	_ = godotenv.Load(".env.local")
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is empty")
	}

	gormDB, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	defer db.Close(gormDB)

	for _, setup := range []func(*gorm.DB) error{users.Setup, tours.Setup, bookings.Setup} {
		if err := setup(gormDB); err != nil {
			log.Fatal("Migration failed: ", err)
		}
	}

	if *doDelete {
		wipe(gormDB)
		return
	}
	seed(gormDB, *dataDir)
}

func wipe(d *gorm.DB) {
	for _, table := range []string{"natours.bookings", "natours.reviews", "natours.tours", "natours.users"} {
		if err := d.Exec("DELETE FROM " + table).Error; err != nil {
			log.Fatalf("wiping %s: %v", table, err)
		}
	}
	log.Println("[seed] all data deleted")
}

func seed(d *gorm.DB, dir string) {
	var tourRows []tours.Tour
	loadJSON(filepath.Join(dir, "tours.json"), &tourRows)
	var userRows []users.User
	loadJSON(filepath.Join(dir, "users.json"), &userRows)
	var reviewRows []reviews.Review
	loadJSON(filepath.Join(dir, "reviews.json"), &reviewRows)

	for i := range userRows {
		// Fixture users all share a known dev password.
		if err := userRows[i].SetPassword("test1234"); err != nil {
			log.Fatal("hashing fixture password: ", err)
		}
	}

	if len(userRows) > 0 {
		if err := d.Create(&userRows).Error; err != nil {
			log.Fatal("seeding users: ", err)
		}
	}
	if len(tourRows) > 0 {
		if err := d.Create(&tourRows).Error; err != nil {
			log.Fatal("seeding tours: ", err)
		}
	}
	if len(reviewRows) > 0 {
		if err := d.Create(&reviewRows).Error; err != nil {
			log.Fatal("seeding reviews: ", err)
		}
		seen := map[string]struct{}{}
		for _, rv := range reviewRows {
			if _, ok := seen[rv.TourID]; ok {
				continue
			}
			seen[rv.TourID] = struct{}{}
			if err := reviews.RecalcTourRatings(d, rv.TourID); err != nil {
				log.Fatal("recomputing ratings: ", err)
			}
		}
	}

	log.Printf("[seed] imported %d users, %d tours, %d reviews", len(userRows), len(tourRows), len(reviewRows))
}

func loadJSON(path string, v any) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		log.Fatalf("reading %s: %v", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		log.Fatalf("parsing %s: %v", path, err)
	}
}
