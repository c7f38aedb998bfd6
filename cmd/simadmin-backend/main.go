// Command simadmin-backend runs a local stand-in for the managed backend:
// the notification REST API and realtime socket over a SQLite database.
//
//	simadmin-backend [--config server.yaml]
//	simadmin-backend token [--role admin] [--sub id] [--ttl 24h]
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nhle/sim-admin/internal/model"
	"github.com/nhle/sim-admin/internal/server"
	"github.com/nhle/sim-admin/internal/session"
	"github.com/nhle/sim-admin/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:]); err != nil {
			log.Fatal(err)
		}
		return
	}

	configPath := pflag.StringP("config", "c", "", "path to the server config file")
	pflag.Parse()

	settings, err := server.LoadSettings(*configPath)
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	if settings.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := store.NewSQLiteStore(settings.DBPath)
	if err != nil {
		log.Fatal("Failed to open database: ", err)
	}
	defer st.Close()

	srv, err := server.New(server.Config{
		JWTSecret: settings.JWTSecret,
		APIKey:    settings.APIKey,
	}, st)
	if err != nil {
		log.Fatal(err)
	}

	router := gin.Default()
	srv.Register(router)

	log.Printf("Server starting on %s", settings.Addr)
	if err := router.Run(settings.Addr); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

// runToken prints a signed development token.
func runToken(args []string) error {
	fs := pflag.NewFlagSet("token", pflag.ExitOnError)
	configPath := fs.StringP("config", "c", "", "path to the server config file")
	role := fs.String("role", model.RoleAdmin, "role claim (admin or trainee)")
	sub := fs.String("sub", "", "subject claim; a random id when empty")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := server.LoadSettings(*configPath)
	if err != nil {
		return err
	}
	if *sub == "" {
		*sub = uuid.New().String()
	}

	token, err := session.Mint(settings.JWTSecret, *sub, *role, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
