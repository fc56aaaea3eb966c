// README: HTTP router registration.
package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ridesafe/internal/http/handlers"
	"ridesafe/internal/http/middleware"
	"ridesafe/internal/modules/audio"
	"ridesafe/internal/modules/search"
)

type RouterDeps struct {
	Search     *search.Registry
	Planner    handlers.Planner
	Location   handlers.FixRecorder
	Recordings *audio.Registry
	Incidents  handlers.IncidentService
	RateLimit  int
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.Logging())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))
	if deps.RateLimit > 0 {
		r.Use(middleware.RateLimit(deps.RateLimit))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	searchHandler := handlers.NewSearchHandler(deps.Search)
	api.GET("/places/search", searchHandler.Search)

	routeHandler := handlers.NewRouteHandler(deps.Planner)
	api.POST("/routes/assess", routeHandler.Assess)

	locationHandler := handlers.NewLocationHandler(deps.Location)
	api.PUT("/riders/:id/location", locationHandler.Update)

	recordingHandler := handlers.NewRecordingHandler(deps.Recordings, deps.Incidents)
	recordings := api.Group("/recordings/:session")
	recordings.GET("", recordingHandler.Get)
	recordings.POST("/start", recordingHandler.Start)
	recordings.POST("/chunk", recordingHandler.Chunk)
	recordings.POST("/stop", recordingHandler.Stop)
	recordings.POST("/discard", recordingHandler.Discard)
	recordings.POST("/submit", recordingHandler.Submit)
	recordings.POST("/close", recordingHandler.Close)

	incidentHandler := handlers.NewIncidentHandler(deps.Incidents)
	api.POST("/incidents/manual", incidentHandler.CreateManual)
	api.GET("/incidents", incidentHandler.List)
	api.GET("/incidents/pending", incidentHandler.ListPending)
	api.POST("/incidents/pending/:id/retry", incidentHandler.RetryPending)
	api.GET("/incidents/:id", incidentHandler.Get)

	return r
}
