// Package main provides a tool to inspect the snapshot database.
//
// Usage:
//
//	DB_PATH=~/GameShelf/data/gameshelf.db go run ./cmd/dbinspect
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gameshelfapp/gameshelf-server/internal/store"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		home, _ := os.UserHomeDir()
		dbPath = filepath.Join(home, "GameShelf", "data", "gameshelf.db")
	}

	st, err := store.Open(dbPath, slog.New(slog.DiscardHandler))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	fmt.Println("=== Snapshot Inspection ===")
	fmt.Println()

	games, err := st.Games(ctx)
	if err != nil {
		log.Fatalf("Error reading games: %v", err)
	}

	expansions := 0
	accessories := 0
	plays := 0
	withChildren := 0
	shown := 0

	for _, g := range games {
		expansions += len(g.Expansions)
		accessories += len(g.Accessories)
		plays += g.NumPlays

		if len(g.Expansions) == 0 && len(g.Accessories) == 0 {
			continue
		}
		withChildren++

		// Show the first few games that have children attached
		if shown >= 3 {
			continue
		}
		shown++

		fmt.Printf("Game: %s\n", g.Name)
		fmt.Printf("  ID: %d\n", g.ID)
		fmt.Printf("  Year: %d\n", g.Year)
		fmt.Printf("  Expansions: %d\n", len(g.Expansions))
		for i, exp := range g.Expansions {
			if i < 5 { // Show first 5 expansions
				fmt.Printf("    [%d] %s (%d)\n", exp.ID, exp.Name, exp.Year)
			}
		}
		if len(g.Expansions) > 5 {
			fmt.Printf("    ... and %d more expansions\n", len(g.Expansions)-5)
		}
		if len(g.Accessories) > 0 {
			fmt.Printf("  Accessories: %d\n", len(g.Accessories))
		}
		fmt.Println()
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Total games: %d\n", len(games))
	fmt.Printf("Games with children: %d\n", withChildren)
	fmt.Printf("Total expansions: %d\n", expansions)
	fmt.Printf("Total accessories: %d\n", accessories)
	fmt.Printf("Recorded plays: %d\n", plays)

	run, err := st.LastRun(ctx)
	if err != nil {
		log.Fatalf("Error reading sync history: %v", err)
	}
	if run == nil {
		fmt.Println("No sync runs recorded")
		return
	}
	fmt.Printf("Last sync: %s by %s finished %s (%d games, %d plays)\n",
		run.ID, run.Username, run.FinishedAt.Format(time.RFC3339), run.Games, run.Plays)
}
