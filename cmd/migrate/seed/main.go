package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"godsendjoseph.dev/gaushala-api/internal/db"
	"godsendjoseph.dev/gaushala-api/internal/env"
	"godsendjoseph.dev/gaushala-api/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	conn, err := db.New(
		fmt.Sprintf("%s:%s", env.GetString("DB_HOST", "127.0.0.1"), env.GetString("DB_PORT", "3306")),
		env.GetString("DB_USER", "root"),
		env.GetString("DB_PASSWORD", "password"),
		env.GetString("DB_NAME", "gaushala_db"),
		env.GetInt("DB_MAX_OPEN_CONNS", 25),
		env.GetInt("DB_MAX_IDLE_CONNS", 25),
		env.GetString("DB_MAX_IDLE_TIME", "15m"),
	)

	if err != nil {
		log.Panic(err)
	}

	defer conn.Close()

	store := store.NewStorage(conn)
	db.Seed(store)
}
