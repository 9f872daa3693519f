package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golf-lite/apps/server/internal/auth"
	"golf-lite/apps/server/internal/gateway"
	"golf-lite/apps/server/internal/ledger"
	"golf-lite/apps/server/internal/lobby"
	"golf-lite/apps/server/internal/relay"
	"golf-lite/golf/bot"

	"github.com/gin-gonic/gin"
)

func main() {
	authService, err := auth.NewServiceFromEnv()
	if err != nil {
		log.Fatalf("[Server] auth init failed: %v", err)
	}
	defer authService.Close()

	ledgerService, ledgerMode, err := ledger.NewServiceFromEnv(auth.Mode())
	if err != nil {
		log.Fatalf("[Server] ledger init failed: %v", err)
	}
	defer ledgerService.Close()
	log.Printf("[Server] ledger backend: %s", ledgerMode)

	relayPublisher, relayTarget, err := relay.NewPublisherFromEnv()
	if err != nil {
		log.Fatalf("[Server] relay init failed: %v", err)
	}
	defer relayPublisher.Close()
	log.Printf("[Server] relay: %s", relayTarget)

	registry := bot.NewRegistry()
	if path := strings.TrimSpace(os.Getenv("BOT_PERSONAS_PATH")); path != "" {
		if err := registry.LoadFromFile(path); err != nil {
			log.Fatalf("[Server] load personas from %s failed: %v", path, err)
		}
		log.Printf("[Server] loaded %d personas from %s", registry.Count(), path)
	}
	bots := bot.NewManager(registry)

	roomLobby := lobby.New(bots, ledgerService, relayPublisher)
	gw := gateway.New(authService, roomLobby)

	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ws", func(c *gin.Context) {
		gw.HandleWS(c.Writer, c.Request)
	})

	auth.NewHTTPHandler(authService).RegisterRoutes(router)
	ledger.NewHTTPHandler(authService, ledgerService).RegisterRoutes(router)
	roomLobby.RegisterRoutes(router)

	addr := os.Getenv("GOLF_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] listening on %s", addr)
		errCh <- router.Run(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		log.Fatalf("[Server] http server exited: %v", err)
	case sig := <-quit:
		log.Printf("[Server] shutting down on %v", sig)
	}
}
