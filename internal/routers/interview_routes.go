package routers

import (
	"aptiview/interview/internal/handlers"

	"github.com/go-chi/chi/v5"
)

func InterviewRoutes(router chi.Router, interviewHandler *handlers.InterviewHandler) {
	router.Get("/api/v1/interviews/{sessionToken}/ws", interviewHandler.ServeWS)
	router.Get("/ws/interview/{sessionToken}", interviewHandler.ServeWS)
}
