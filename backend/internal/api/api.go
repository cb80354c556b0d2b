package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"horse-race/backend/internal/core/port/in/racecontrol"
	"horse-race/backend/internal/game"
	"horse-race/backend/internal/maps"
	"horse-race/backend/internal/telemetry"
)

const requestTimeout = 5 * time.Second

// Deps зависимости HTTP API
type Deps struct {
	Race      racecontrol.Port
	Telemetry *telemetry.TelemetryManager // может быть nil
	Ticker    *game.GameTicker            // может быть nil
	WS        http.Handler                // может быть nil
	Logger    *log.Logger
}

// NewRouter создает gin роутер с REST API управления гонкой
func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}

	router := gin.New()
	router.Use(gin.LoggerWithWriter(deps.Logger.Writer()), gin.Recovery())

	api := router.Group("/api")
	{
		api.GET("/state", GetState(deps.Race))

		race := api.Group("/race")
		race.POST("/start", StartCountdown(deps.Race))
		race.POST("/restart", RestartGame(deps.Race))
		race.POST("/initialize", InitializeRace(deps.Race))
		race.POST("/status", SetStatus(deps.Race))

		api.GET("/maps", ListMaps(deps.Race))
		api.POST("/maps", SaveMap(deps.Race))
		api.GET("/maps/:id", GetMap(deps.Race))
		api.DELETE("/maps/:id", DeleteMap(deps.Race))
		api.POST("/maps/:id/load", LoadMap(deps.Race))

		current := api.Group("/map")
		current.PUT("/obstacles", SetObstacles(deps.Race))
		current.PUT("/horse-spawn", SetHorseSpawn(deps.Race))
		current.PUT("/coin-spawn", SetCoinSpawn(deps.Race))

		api.GET("/stats", GetStats(deps.Race))
		api.DELETE("/stats", ResetStats(deps.Race))
		api.PUT("/settings/default-map", SetDefaultMap(deps.Race))

		api.PUT("/canvas", SetCanvasSize(deps.Race))
		api.GET("/telemetry", GetTelemetry(deps.Telemetry))
		api.DELETE("/telemetry", ClearTelemetry(deps.Telemetry))

		api.GET("/ticker", GetTickerStats(deps.Ticker))
		api.POST("/ticker/pause", PauseTicker(deps.Ticker, true))
		api.POST("/ticker/resume", PauseTicker(deps.Ticker, false))
	}

	if deps.WS != nil {
		router.GET("/ws", gin.WrapH(deps.WS))
	}

	return router
}

// writeError переводит ошибку домена в HTTP ответ
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, maps.ErrMapNotFound):
		status = http.StatusNotFound
	case errors.Is(err, maps.ErrInvalidMap),
		errors.Is(err, game.ErrMissingObstacles),
		errors.Is(err, game.ErrInvalidPosition),
		errors.Is(err, game.ErrInvalidStatus),
		errors.Is(err, game.ErrInvalidHorseCount):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}
