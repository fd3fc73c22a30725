package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/vncsmyrnk/relayer/internal/adapters/repository/postgres"
)

// Usage: migrations [name]. Without a name every up migration is applied;
// with one, only the file ending in "<name>.sql" runs.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	var dsn string
	flag.StringVar(&dsn, "database-url", os.Getenv("RELAYER_DATABASE_URL"), "postgres connection string")
	flag.Parse()

	if dsn == "" {
		log.Fatal("a database url is required (-database-url or RELAYER_DATABASE_URL)")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatal(err)
	}

	if flag.NArg() == 0 {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatal(err)
		}
		log.Println("All migrations applied successfully.")
		return
	}

	file, err := postgres.MigrateOne(ctx, db, flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Migration file %s executed successfully.", file)
}
