package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"horse-race/backend/internal/core/port/in/racecontrol"
	"horse-race/backend/internal/game"
	"horse-race/backend/internal/maps"
	"horse-race/backend/internal/telemetry"
	"horse-race/backend/internal/vecmath"
	"horse-race/backend/internal/world"
)

type initializeRequest struct {
	HorseCount   int               `json:"horseCount"`
	Obstacles    []world.Obstacle  `json:"obstacles"`
	StartArea    *game.StartArea   `json:"startArea"`
	CoinPosition *vecmath.Vector2D `json:"coinPosition"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type obstaclesRequest struct {
	Obstacles []world.Obstacle `json:"obstacles"`
}

type pointRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type defaultMapRequest struct {
	ID string `json:"id"`
}

type canvasRequest struct {
	Size float64 `json:"size"`
}

func GetState(race racecontrol.Port) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, race.Snapshot())
	}
}

func StartCountdown(race racecontrol.Port) gin.HandlerFunc {
	return func(c *gin.Context) {
		race.StartCountdown()
		c.JSON(http.StatusOK, race.Snapshot())
	}
}

func RestartGame(race racecontrol.Port) gin.HandlerFunc {
	return func(c *gin.Context) {
		race.RestartGame()
		c.JSON(http.StatusOK, race.Snapshot())
	}
}

// InitializeRace пересоздает гонку. Незаданные зона старта и монета берутся из текущего состояния.
func InitializeRace(race racecontrol.Port) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req initializeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		current := race.Snapshot()
		area := current.StartArea
		if req.StartArea != nil {
			area = *req.StartArea
		}
		coin := current.CoinSpawn
		if req.CoinPosition != nil {
			coin = *req.CoinPosition
		}

		if err := race.InitializeRace(req.HorseCount, req.Obstacles, area, coin); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, race.Snapshot())
	}
}

func SetStatus(race racecontrol.Port) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		status, err := game.ParseStatus(req.Status)
		if err != nil {
			writeError(c, err)
			return
		}
		if err := race.SetStatus(status); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, race.Snapshot())
	}
}

func ListMaps(race racecontrol.Port) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		all, err := race.ListMaps(ctx)
		if err != nil {
			writeError(c, err)
			return
		}
		if all == nil {
			all = []maps.MapData{}
		}
		c.JSON(http.StatusOK, all)
	}
}

// SaveMap принимает карту в формате файла карт: name, obstacles, horseSpawn, coinSpawn
func SaveMap(race racecontrol.Port) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := c.GetRawData()
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		m, err := maps.Decode(data)
		if err != nil {
			writeError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		saved, err := race.SaveMap(ctx, m.Name, m.Obstacles, m.HorseSpawn, m.CoinSpawn)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, saved)
	}
}

func GetMap(race racecontrol.Port) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		m, err := race.GetMap(ctx, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

func DeleteMap(race racecontrol.Port) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		if err := race.DeleteMap(ctx, c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func LoadMap(race racecontrol.Port) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		if _, err := race.LoadMap(ctx, c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, race.Snapshot())
	}
}

func SetObstacles(race racecontrol.Port) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req obstaclesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := race.SetObstacles(req.Obstacles); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, race.Snapshot())
	}
}

func SetHorseSpawn(race racecontrol.Port) gin.HandlerFunc {
	return setPoint(race, race.SetHorseSpawn)
}

func SetCoinSpawn(race racecontrol.Port) gin.HandlerFunc {
	return setPoint(race, race.SetCoinSpawn)
}

func setPoint(race racecontrol.Port, set func(vecmath.Vector2D) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req pointRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if req.X == nil || req.Y == nil {
			badRequest(c, "нужны координаты x и y")
			return
		}
		if err := set(vecmath.New(*req.X, *req.Y)); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, race.Snapshot())
	}
}

func GetStats(race racecontrol.Port) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, race.Stats())
	}
}

func ResetStats(race racecontrol.Port) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		if err := race.ResetStats(ctx); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, race.Stats())
	}
}

func SetDefaultMap(race racecontrol.Port) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req defaultMapRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if req.ID == "" {
			badRequest(c, "не указан id карты")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := race.SetDefaultMap(ctx, req.ID); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"defaultMapId": req.ID})
	}
}

func SetCanvasSize(race racecontrol.Port) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req canvasRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if req.Size <= 0 {
			badRequest(c, "размер холста должен быть положительным")
			return
		}
		race.SetCanvasSize(req.Size)
		c.JSON(http.StatusOK, gin.H{"canvasSize": req.Size})
	}
}

func GetTelemetry(tm *telemetry.TelemetryManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tm == nil || !tm.Enabled() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "телеметрия отключена"})
			return
		}
		raw, err := tm.GetTelemetryJSON()
		if err != nil {
			writeError(c, fmt.Errorf("error exporting telemetry: %w", err))
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(raw))
	}
}

func ClearTelemetry(tm *telemetry.TelemetryManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tm == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "телеметрия отключена"})
			return
		}
		tm.Clear()
		c.Status(http.StatusNoContent)
	}
}

func GetTickerStats(ticker *game.GameTicker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ticker == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "игровой цикл не запущен"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"ticker":  ticker.Stats(),
			"systems": ticker.Monitor().All(),
		})
	}
}

// PauseTicker приостанавливает (pause=true) или возобновляет игровой цикл
func PauseTicker(ticker *game.GameTicker, pause bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ticker == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "игровой цикл не запущен"})
			return
		}
		if pause {
			ticker.Pause()
		} else {
			ticker.Resume()
		}
		c.JSON(http.StatusOK, ticker.Stats())
	}
}
