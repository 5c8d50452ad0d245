package main

import (
	"context"
	"log"
	"os"
	"time"

	"warthug/internal/db"
	"warthug/internal/domain"
	"warthug/internal/repository"
	"warthug/internal/service"
)

func main() {
	// expects DATABASE_URL and JWT_SECRET env vars
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	repo := repository.NewPlayerRepository(pool)
	ctx := context.Background()

	userID := os.Getenv("TEST_USER_ID")
	if userID == "" {
		userID = "test-player-1"
	}
	username := os.Getenv("TEST_USERNAME")
	if username == "" {
		username = "testplayer"
	}

	p, err := repo.Load(ctx, userID)
	if err == nil {
		log.Printf("player already exists id=%s username=%s\n", p.UserID, p.Username)
	} else {
		p = domain.NewPlayer(username, userID, true, time.Now())
		if err := repo.Create(ctx, p); err != nil {
			log.Fatalf("create player failed: %v", err)
		}
		log.Printf("player created id=%s\n", p.UserID)
	}

	// verify read
	p2, err := repo.Load(ctx, userID)
	if err != nil {
		log.Fatalf("load failed: %v", err)
	}
	log.Printf("fetched player id=%s username=%s energy=%d level=%d\n",
		p2.UserID, p2.Username, p2.Energy, p2.Level)

	// initialize JWT and print token
	service.InitJWT()
	token, err := service.GenerateJWT(p2.UserID)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	log.Printf("token=%s\n", token)
}
