package main

import (
	"log"
	"os"

	"engine"
	"engine/external"
	"engine/gamemodule"

	"arena-api/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Arena Tournament API
// @version         1.0
// @description     Tournament engine: brackets, registration, match lifecycle, disputes and settlement
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  MIT
// @license.url   http://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config.ConnectDatabase()

	registry := gamemodule.NewRegistry()
	registry.Register("duel", gamemodule.NewHeadToHead(1))
	registry.Register("squad-5v5", gamemodule.NewHeadToHead(5))

	// In-memory collaborators for standalone deployments. Swap these for
	// real economy, ranking and roster clients when wiring into a
	// platform.
	collaborators := engine.Collaborators{
		Economy: external.NewMemoryEconomy(),
		Ranking: external.NewMemoryRanking(),
		Rosters: external.SyntheticRoster{Size: 5, IdentifierNames: []string{"gamertag"}},
	}

	r := gin.Default()
	r.Use(cors.Default())

	engineModule := engine.NewModule(config.DB, registry, collaborators)
	engineModule.SetupRoutes(r)

	if err := engineModule.StartScheduler(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer engineModule.StopScheduler()

	// Swagger endpoint
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/health", healthHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	r.Run(":" + port)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Message  string `json:"message" example:"Server is running"`
	Database string `json:"database" example:"connected"`
}

// @Summary Health Check
// @Description Check if the server is running and database is connected
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func healthHandler(c *gin.Context) {
	c.JSON(200, HealthResponse{
		Message:  "Server is running",
		Database: "connected",
	})
}
