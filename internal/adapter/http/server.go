package adapthttp

import (
	"net/http"
	"reflect"
	"strings"

	"nutriscan/internal/app"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"
)

// OIDCConfig holds the identity provider wiring. SSO routes answer 404 when
// Enabled is false.
type OIDCConfig struct {
	Enabled      bool
	Provider     *oidc.Provider
	OAuth2Config *oauth2.Config
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	analysis   *app.AnalysisService
	history    *app.HistoryService
	dashboard  *app.DashboardService
	authSvc    *app.AuthService
	oidcConfig OIDCConfig
	images     http.Handler
	validate   *validator.Validate
	webDir     string
}

// New creates a Server wired to the given application services.
func New(an *app.AnalysisService, hi *app.HistoryService, da *app.DashboardService, au *app.AuthService, webDir string) *Server {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Server{
		analysis:  an,
		history:   hi,
		dashboard: da,
		authSvc:   au,
		validate:  v,
		webDir:    webDir,
	}
}

// WithOIDC enables SSO login through the given provider.
func (s *Server) WithOIDC(cfg OIDCConfig) *Server {
	s.oidcConfig = cfg
	return s
}

// WithImages serves locally stored images under /images/.
func (s *Server) WithImages(h http.Handler) *Server {
	s.images = h
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	api.HandleFunc("/config", s.handleConfig)

	api.HandleFunc("/analyze/text", s.handleAnalyzeText)
	api.HandleFunc("/analyze/image", s.handleAnalyzeImage)
	api.HandleFunc("/analysis/latest", s.handleAnalysisLatest)

	api.HandleFunc("/history", s.requireAuth(s.handleHistory))
	api.HandleFunc("/dashboard/daily", s.requireAuth(s.handleDashboardDaily))

	api.HandleFunc("/auth/login", s.handleLogin)
	api.HandleFunc("/auth/logout", s.handleLogout)
	api.HandleFunc("/auth/setup", s.handleSetupUser)
	api.HandleFunc("/auth/sso/login", s.handleSSOLogin)
	api.HandleFunc("/auth/sso/callback", s.handleSSOCallback)

	api.HandleFunc("/me", s.requireAuth(s.handleMe))
	api.HandleFunc("/me/password", s.requireAuth(s.handleChangePassword))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", s.identify(api)))
	if s.images != nil {
		root.Handle("/images/", http.StripPrefix("/images", s.images))
	}
	root.Handle("/", spaFromDisk(s.webDir))

	return s.loggingMiddleware(withNoCache(root))
}
