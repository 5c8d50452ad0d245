package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"warthug/internal/db"
	"warthug/internal/domain"
	"warthug/internal/repository"
	"warthug/internal/service"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	repo := repository.NewPlayerRepository(pool)
	ctx := context.Background()

	// prepare a player
	p, err := repo.Load(ctx, "ws-smoke-1")
	if err != nil {
		p = domain.NewPlayer("wssmoke", "ws-smoke-1", true, time.Now())
		if err := repo.Create(ctx, p); err != nil {
			log.Fatalf("create player: %v", err)
		}
	}

	service.InitJWT()
	token, err := service.GenerateJWT(p.UserID)
	if err != nil {
		log.Fatalf("gen token: %v", err)
	}

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	wsURL := fmt.Sprintf("ws://127.0.0.1:%s/ws?token=%s", port, token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readStatus := func(stage string) {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Fatalf("%s read: %v", stage, err)
		}
		var obj map[string]any
		if err := json.Unmarshal(msg, &obj); err != nil {
			log.Fatalf("%s unmarshal: %v", stage, err)
		}
		log.Printf("%s: tapPoints=%v energy=%v level=%v", stage, obj["tapPoints"], obj["energy"], obj["level"])
	}

	// server pushes one document on connect
	readStatus("connect")

	// explicit status request
	if err := conn.WriteMessage(websocket.TextMessage, []byte("status")); err != nil {
		log.Fatalf("write: %v", err)
	}
	readStatus("request")

	log.Println("ws smoke ok")
}
