package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/Scrimzay/battleships/internal/battle"
	"github.com/Scrimzay/battleships/internal/scores"
	"github.com/Scrimzay/battleships/internal/session"
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func SetupRouter(hub *session.Hub, store *scores.Store) *gin.Engine {
	r := gin.Default()

	r.GET("/", indexHandler)
	r.GET("/health", healthHandler(hub))

	api := r.Group("/api")
	api.GET("/rules", rulesHandler)
	api.GET("/scores", listScoresHandler(store))
	api.DELETE("/scores", clearScoresHandler(store))
	api.GET("/settings/:profile", getSettingsHandler(store))
	api.PUT("/settings/:profile", putSettingsHandler(store))

	r.GET("/ws", HandleWebsocket(hub, store))

	return r
}

func indexHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":      "battleships",
		"websocket": "/ws",
		"endpoints": []string{"/health", "/api/rules", "/api/scores", "/api/settings/:profile"},
	})
}

func healthHandler(hub *session.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": hub.Len()})
	}
}

type chainStep struct {
	MinHits    int `json:"minHits"`
	Multiplier int `json:"multiplier"`
}

type efficiencyStep struct {
	UnderTurns int `json:"underTurns"`
	Bonus      int `json:"bonus"`
}

func rulesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"gridSize":         battle.GridSize,
		"fleet":            battle.FleetClasses(),
		"hitPoints":        battle.HitPoints,
		"difficulties":     []battle.Difficulty{battle.Easy, battle.Normal, battle.Hard},
		"chain":            chainSteps(),
		"efficiency":       efficiencySteps(),
		"maxAccuracyBonus": 50,
		"sinksPerRowNuke":  2,
		"sonarPerGame":     1,
	})
}

// chainSteps lists the hit counts at which the chain multiplier changes.
func chainSteps() []chainStep {
	var steps []chainStep
	last := 1
	for hits := 1; hits <= battle.GridSize; hits++ {
		t := battle.Turns{ConsecutiveHits: hits}
		if m := t.ChainMultiplier(); m != last {
			steps = append(steps, chainStep{MinHits: hits, Multiplier: m})
			last = m
		}
	}
	return steps
}

func efficiencySteps() []efficiencyStep {
	var steps []efficiencyStep
	last := (&battle.Turns{}).FinalScore().EfficiencyBonus
	for turns := 1; last > 0 && turns <= battle.GridSize*battle.GridSize; turns++ {
		bonus := (&battle.Turns{TurnCount: turns}).FinalScore().EfficiencyBonus
		if bonus != last {
			steps = append(steps, efficiencyStep{UnderTurns: turns, Bonus: last})
			last = bonus
		}
	}
	return steps
}

// scoreRow is a high score plus its rank and a locale-formatted score.
type scoreRow struct {
	Rank int `json:"rank"`
	scores.HighScore
	Display string `json:"display"`
}

func listScoresHandler(store *scores.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		top, err := store.Top(c.Request.Context(), limit)
		if err != nil {
			log.Printf("list scores: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load high scores"})
			return
		}

		p := message.NewPrinter(language.English)
		rows := make([]scoreRow, 0, len(top))
		for i, hs := range top {
			rows = append(rows, scoreRow{Rank: i + 1, HighScore: hs, Display: p.Sprintf("%d", hs.Score)})
		}
		c.JSON(http.StatusOK, gin.H{"scores": rows, "limit": store.Limit()})
	}
}

func clearScoresHandler(store *scores.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.Clear(c.Request.Context()); err != nil {
			log.Printf("clear scores: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clear high scores"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func getSettingsHandler(store *scores.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		settings, err := store.LoadSettings(c.Request.Context(), c.Param("profile"))
		if err != nil {
			settingsError(c, err)
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

func putSettingsHandler(store *scores.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var update scores.SettingsUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings body"})
			return
		}

		settings, err := store.UpdateSettings(c.Request.Context(), c.Param("profile"), update)
		if err != nil {
			settingsError(c, err)
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

func settingsError(c *gin.Context, err error) {
	if errors.Is(err, scores.ErrInvalidProfile) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Printf("settings: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "could not access settings"})
}
