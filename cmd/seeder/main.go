// Seeder populates a local database with random players, handy for
// exercising the matchmaker and leaderboard without a chat front end.
package main

import (
	"flag"
	"fmt"
	"math/rand"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mkrag/matchpoint/internal/database"
	"github.com/mkrag/matchpoint/internal/match"
	"github.com/mkrag/matchpoint/internal/player"
)

var firstNames = []string{"Alex", "Sam", "Robin", "Kim", "Toni", "Charlie", "Max", "Nova", "Ray", "Jules"}
var lastNames = []string{"Frost", "Vega", "Stone", "Reyes", "Kade", "Moon", "Ash", "Blaze", "Storm", "Quinn"}

func main() {
	var (
		dbName = flag.String("db", "matchpoint.db", "Database file to seed")
		count  = flag.Int("count", 20, "Number of players to create")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using flags and defaults")
	}

	log.Info("Starting database seeder...", "db", *dbName, "players", *count)
	db, teardown, err := database.InitDB(*dbName, "", "", "./migrations")
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer teardown()

	store := player.NewStore(db)
	for i := 0; i < *count; i++ {
		id := "U" + uuid.NewString()[:8]
		name := fmt.Sprintf("%s %s",
			firstNames[rand.Intn(len(firstNames))],
			lastNames[rand.Intn(len(lastNames))],
		)
		p, err := store.Ensure(id, name)
		if err != nil {
			log.Fatalf("Failed to create player: %s", err)
		}

		// Scatter ratings so the balancer has something to chew on.
		for _, mode := range []match.Mode{match.ModeDuel, match.ModeTeamBattle} {
			games := rand.Intn(30)
			rating := p.Rating(mode)
			for g := 0; g < games; g++ {
				won := rand.Intn(2) == 0
				delta := 20 + rand.Intn(20)
				if !won {
					delta = -delta
				}
				rating += delta
				if rating < player.DefaultRating {
					rating = player.DefaultRating
				}
				if err := store.ApplyResult(p.ID, mode, won, rating); err != nil {
					log.Fatalf("Failed to record result: %s", err)
				}
			}
		}
		log.Info("Seeded player", "id", p.ID, "name", p.Name)
	}
	log.Info("Seeding complete")
}
