package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/intervue/internal/api/handlers"
	"github.com/yoockh/intervue/internal/api/middleware"
)

type Deps struct {
	Interview *handlers.InterviewHandler
	Feedback  *handlers.FeedbackHandler
	Profile   *handlers.ProfileHandler
	User      *handlers.UserHandler
	Events    *handlers.EventsHandler
	Turns     *handlers.TurnHandler
	Live      *handlers.LiveHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.POST("/interviews", d.Interview.Create)
	auth.GET("/interviews", d.Interview.List)
	auth.GET("/interviews/:interview_id", d.Interview.Get)
	auth.POST("/interviews/save-transcript", d.Interview.SaveTranscript)

	auth.GET("/feedback/:feedback_id", d.Feedback.Get)
	auth.GET("/interviews/:interview_id/feedback", d.Feedback.GetByInterview)

	auth.GET("/profile/me", d.Profile.Me)
	auth.PUT("/profile/update", d.Profile.Update)
	auth.GET("/users/me/has-profile", d.User.HasProfile)

	auth.GET("/interviews/:interview_id/turns", d.Turns.ListByInterview)
	auth.GET("/users/me/turns", d.Turns.Latest)

	// Raw event buffer, admin only
	auth.GET("/interviews/:interview_id/events", middleware.RequireAdmin(), d.Events.ListByInterview)

	// Server-driven live session: REST lifecycle plus a websocket relay that
	// either opens the session or attaches to one started over REST.
	auth.POST("/interviews/:interview_id/live/start", d.Live.Start)
	auth.POST("/interviews/:interview_id/live/end", d.Live.End)
	auth.GET("/ws/interviews/:interview_id", d.Live.InterviewWS)
}
