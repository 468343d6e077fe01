// internal/handlers/http_handler.go

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finebank/investquest/internal/models"
	"github.com/finebank/investquest/internal/questions"
	"github.com/finebank/investquest/internal/service"
)

// HTTPHandler serves the poll endpoints that do not need a live
// connection: waiting rooms, leaderboard, bank metadata.
type HTTPHandler struct {
	roomService        *service.RoomService
	leaderboardService *service.LeaderboardService
	bank               *questions.Bank
}

func NewHTTPHandler(roomService *service.RoomService, leaderboardService *service.LeaderboardService, bank *questions.Bank) *HTTPHandler {
	return &HTTPHandler{
		roomService:        roomService,
		leaderboardService: leaderboardService,
		bank:               bank,
	}
}

type labeledCount struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// GetCategories lists the fixed categories with bank counts.
func (h *HTTPHandler) GetCategories(c *gin.Context) {
	out := make([]labeledCount, 0, len(models.CategoryLabels))
	for _, cat := range []models.Category{
		models.CategoryUnitTrusts,
		models.CategoryASBASN,
		models.CategoryEPF,
		models.CategoryStocksBursa,
		models.CategoryREITs,
		models.CategoryFixedDeposits,
		models.CategorySukukBonds,
		models.CategoryPRS,
	} {
		out = append(out, labeledCount{
			ID:    string(cat),
			Label: models.CategoryLabels[cat],
			Count: h.bank.CountByCategory(cat),
		})
	}
	c.JSON(http.StatusOK, out)
}

// GetDifficulties lists the difficulties with bank counts.
func (h *HTTPHandler) GetDifficulties(c *gin.Context) {
	out := make([]labeledCount, 0, len(models.DifficultyLabels))
	for _, d := range []models.Difficulty{
		models.DifficultyEasy,
		models.DifficultyMedium,
		models.DifficultyHard,
	} {
		out = append(out, labeledCount{
			ID:    string(d),
			Label: models.DifficultyLabels[d],
			Count: h.bank.CountByDifficulty(d),
		})
	}
	c.JSON(http.StatusOK, out)
}

// GetLeaderboard returns the live in-memory leaderboard.
func (h *HTTPHandler) GetLeaderboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.leaderboardService.TopEntries(service.LeaderboardBroadcastLimit))
}

// GetRooms returns summaries of rooms waiting for players.
func (h *HTTPHandler) GetRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.roomService.ListWaitingRooms())
}

// GetStats returns headline numbers for the landing page.
func (h *HTTPHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"totalQuestions": h.bank.Len(),
		"categories":     len(models.CategoryLabels),
		"activeRooms":    h.roomService.RoomCount(),
	})
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	api := r.Group("/api")
	{
		api.GET("/questions/categories", h.GetCategories)
		api.GET("/questions/difficulties", h.GetDifficulties)
		api.GET("/leaderboard", h.GetLeaderboard)
		api.GET("/rooms", h.GetRooms)
		api.GET("/stats", h.GetStats)
	}
}
