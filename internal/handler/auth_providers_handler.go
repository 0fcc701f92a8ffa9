package handler

import (
	"net/http"
)

// ProvidersConfig decides which sign-in methods the login page offers.
type ProvidersConfig struct {
	// AppleClientID enables "apple" when non-empty.
	AppleClientID string
	// EnableEmail enables "email" (ENABLE_EMAIL_LOGIN).
	EnableEmail bool
}

// ProvidersHandler handles GET /api/auth/providers.
type ProvidersHandler struct {
	cfg ProvidersConfig
}

func NewProvidersHandler(cfg ProvidersConfig) *ProvidersHandler {
	return &ProvidersHandler{cfg: cfg}
}

type providersResponse struct {
	Providers []string `json:"providers"`
}

// Providers lists the enabled providers. Google is always present and first.
func (h *ProvidersHandler) Providers(w http.ResponseWriter, r *http.Request) {
	providers := []string{"google"}
	if h.cfg.AppleClientID != "" {
		providers = append(providers, "apple")
	}
	if h.cfg.EnableEmail {
		providers = append(providers, "email")
	}
	writeJSON(w, http.StatusOK, providersResponse{Providers: providers})
}
