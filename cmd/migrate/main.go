package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"techlight-support/config"
	"techlight-support/internal/domain"
	"techlight-support/internal/repository"
	"techlight-support/pkg/database"
)

const usage = `
TechLight Support - Database CLI Tool

Usage:
  migrate [command]

Commands:
  up          Apply the coordinator schema
  status      Show database connection and table status
  seed-dev    Seed with development/test conversations
  reset       Drop all tables and re-apply the schema (DANGEROUS)
  truncate    Truncate all tables (DANGEROUS)

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go seed-dev
  go run cmd/migrate/main.go reset
`

func main() {
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	command := flag.Arg(0)

	ctx := context.Background()
	cfg := config.LoadConfig()
	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer pool.Close()

	switch command {
	case "up":
		runUp(ctx, pool)
	case "status":
		showStatus(ctx, pool)
	case "seed-dev":
		runSeedDev(ctx, pool)
	case "reset":
		runReset(ctx, pool)
	case "truncate":
		runTruncate(ctx, pool)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runUp(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("🚀 Applying schema...")
	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Schema applied successfully!")
}

func showStatus(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("🔍 Checking database status...")

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	log.Println("✅ Database connection: OK")

	for _, table := range []string{"conversations", "messages"} {
		exists, err := database.TableExists(ctx, pool, table)
		if err != nil {
			log.Printf("⚠️  Error checking table %s: %v", table, err)
			continue
		}
		if exists {
			count, _ := database.TableCount(ctx, pool, table)
			log.Printf("✅ Table %-15s exists (%d rows)", table, count)
		} else {
			log.Printf("❌ Table %-15s does not exist", table)
		}
	}
}

func runSeedDev(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("🌱 Seeding development data...")

	conversations := repository.NewConversationRepository(pool)
	messages := repository.NewMessageRepository(pool)

	customer := uuid.New()
	conv := domain.Conversation{
		ID:        uuid.New(),
		UserID:    customer,
		UserName:  "Dev Customer",
		UserEmail: "customer@example.com",
		Subject:   "Sample: missing delivery",
		Category:  "shipping",
		Status:    domain.StatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	if err := conversations.Create(ctx, &conv); err != nil {
		log.Fatalf("❌ Seed conversation failed: %v", err)
	}

	seedBodies := []string{
		"Hi, my order shows delivered but nothing arrived.",
		"I checked with the neighbors, nobody has it.",
	}
	for _, body := range seedBodies {
		msg := domain.Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			SenderID:       customer,
			SenderName:     conv.UserName,
			SenderRole:     domain.RoleUser,
			Body:           body,
			CreatedAt:      time.Now().UTC(),
		}
		if err := messages.Append(ctx, &msg); err != nil {
			log.Fatalf("❌ Seed message failed: %v", err)
		}
		if err := conversations.TouchLastMessage(ctx, conv.ID, msg.CreatedAt); err != nil {
			log.Fatalf("❌ Seed touch failed: %v", err)
		}
	}

	log.Printf("✅ Seeded conversation %s with %d messages", conv.ID, len(seedBodies))
}

func runReset(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("💣 Dropping all tables...")
	if err := database.Reset(ctx, pool); err != nil {
		log.Fatalf("❌ Reset failed: %v", err)
	}
	runUp(ctx, pool)
}

func runTruncate(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("🧹 Truncating all tables...")
	if err := database.Truncate(ctx, pool); err != nil {
		log.Fatalf("❌ Truncate failed: %v", err)
	}
	log.Println("✅ Tables truncated")
}
