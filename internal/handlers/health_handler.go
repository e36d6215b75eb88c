package handlers

import (
	"net/http"
	"text/template"

	"aptiview/interview/internal/config"
	"aptiview/interview/internal/llm"
	"aptiview/interview/internal/utils"
)

type ReadinessCheck struct {
	Status  string `json:"status"` // "ok" | "failed"
	Message string `json:"message,omitempty"`
}

type ReadinessResponse struct {
	Status  string                    `json:"status"` // "ready" | "not_ready"
	Service string                    `json:"service"`
	Checks  map[string]ReadinessCheck `json:"checks"`
}

// TemplateLister exposes the loaded prompt templates.
type TemplateLister interface {
	GetTemplates() map[string]map[string]*template.Template
}

// Pinger reports whether the database answers.
type Pinger func() error

type HealthHandler struct {
	provider  llm.Provider
	templates TemplateLister
	ping      Pinger
	config    *config.Config
}

func NewHealthHandler(provider llm.Provider, templates TemplateLister, ping Pinger, cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		provider:  provider,
		templates: templates,
		ping:      ping,
		config:    cfg,
	}
}

func (handler *HealthHandler) HealthzHandler(writer http.ResponseWriter, request *http.Request) {
	utils.JSON(writer, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "interview",
		"version": "1.0.0",
	})
}

func (handler *HealthHandler) ReadyzHandler(writer http.ResponseWriter, request *http.Request) {
	checks := make(map[string]ReadinessCheck)
	allChecksPass := true
	fail := func(name, message string) {
		checks[name] = ReadinessCheck{Status: "failed", Message: message}
		allChecksPass = false
	}

	if handler.provider == nil {
		fail("provider", "AI provider not initialized")
	} else {
		checks["provider"] = ReadinessCheck{Status: "ok", Message: handler.provider.GetProviderName()}
	}

	switch {
	case handler.templates == nil:
		fail("prompt_manager", "Prompt manager not initialized")
	case len(handler.templates.GetTemplates()) == 0:
		fail("prompt_manager", "No prompt templates loaded")
	default:
		checks["prompt_manager"] = ReadinessCheck{Status: "ok"}
	}

	if handler.ping == nil {
		fail("database", "Database not configured")
	} else if err := handler.ping(); err != nil {
		fail("database", err.Error())
	} else {
		checks["database"] = ReadinessCheck{Status: "ok"}
	}

	if handler.config == nil {
		fail("configuration", "Configuration not loaded")
	} else {
		checks["configuration"] = ReadinessCheck{Status: "ok"}
	}

	response := ReadinessResponse{Service: "interview", Checks: checks}
	if allChecksPass {
		response.Status = "ready"
		utils.JSON(writer, http.StatusOK, response)
	} else {
		response.Status = "not_ready"
		utils.JSON(writer, http.StatusServiceUnavailable, response)
	}
}
