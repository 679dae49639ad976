/*
Package wizardapi hosts wizard sessions on the server and exposes them over
HTTP, so thin clients can drive the questionnaire without keeping state.
*/
package wizardapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"MealVibe/internal/auth"
	"MealVibe/internal/meals"
	"MealVibe/internal/models"
	"MealVibe/internal/utility"
	"MealVibe/internal/wizard"
)

const (
	cookieName  = "mealvibe"
	cookieKey   = "wizard_id"
	currentID   = "current"
	scanMessage = "scan"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("wizard session not found")

// ProfileSource resolves a bearer token to the signed-in user's profile.
type ProfileSource interface {
	ProfileFromToken(ctx context.Context, token string) (*models.UserProfile, error)
}

// Options are the collaborators shared by every session.
type Options struct {
	Recommender wizard.Recommender
	Scanner     wizard.Scanner
	Profiles    ProfileSource
	Catalog     *wizard.Catalog
	Cookies     sessions.Store
	ScanWait    time.Duration
	ScanTimeout time.Duration
}

// Handler serves the /wizard routes.
type Handler struct {
	registry *Registry
	hub      *utility.Hub
	opts     Options
}

// ScanEvent is pushed to websocket clients when a photo scan resolves.
type ScanEvent struct {
	Type        string `json:"type"`
	Ingredients string `json:"ingredients"`
	Success     bool   `json:"success"`
}

// SessionResponse is a state snapshot tagged with its session id.
type SessionResponse struct {
	ID string `json:"id"`
	wizard.State
}

type createRequest struct {
	Camera bool `json:"camera"`
}

type toggleRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func NewHandler(registry *Registry, hub *utility.Hub, opts Options) *Handler {
	if opts.Catalog == nil {
		opts.Catalog = wizard.DefaultCatalog()
	}
	return &Handler{registry: registry, hub: hub, opts: opts}
}

// NewCookieStore returns the store that remembers a browser's current
// session. An empty secret gets a random one, so cookies do not survive
// restarts.
func NewCookieStore(secret string, ttl time.Duration, secure bool) *sessions.CookieStore {
	if secret == "" {
		random, err := utility.GenerateSecureToken(32)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to generate session secret")
		}
		log.Warn().Msg("SESSION_SECRET is not set, using a random secret")
		secret = random
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.MaxAge(int(ttl.Seconds()))
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	return store
}

// Register mounts the routes on g.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/catalog", h.Catalog)
	g.POST("/sessions", h.Create)
	g.GET("/sessions/:id", h.Get)
	g.DELETE("/sessions/:id", h.Delete)
	g.POST("/sessions/:id/profile", h.Profile)
	g.POST("/sessions/:id/toggle", h.Toggle)
	g.PUT("/sessions/:id/text", h.SetText)
	g.POST("/sessions/:id/advance", h.Advance)
	g.POST("/sessions/:id/retreat", h.Retreat)
	g.POST("/sessions/:id/skip", h.Skip)
	g.POST("/sessions/:id/more", h.More)
	g.POST("/sessions/:id/restart", h.Restart)
	g.POST("/sessions/:id/photo", h.Photo)
	g.GET("/sessions/:id/ws", h.Socket)
}

// Sessions returns the number of live sessions.
func (h *Handler) Sessions() int {
	return h.registry.Len()
}

/* ====================================================================
                             HANDLERS
==================================================================== */

func (h *Handler) Catalog(c echo.Context) error {
	return c.JSON(http.StatusOK, h.opts.Catalog)
}

// Create starts a session, seeded from the caller's profile when a valid
// token is present.
func (h *Handler) Create(c echo.Context) error {
	logger := utility.RequestLogger(c)

	var req createRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
		}
	}

	var profile *models.UserProfile
	if token := auth.TokenFromRequest(c.Request()); token != "" && h.opts.Profiles != nil {
		p, err := h.opts.Profiles.ProfileFromToken(c.Request().Context(), token)
		if err != nil {
			logger.Info().Err(err).Msg("ignoring invalid token on wizard session")
		} else {
			profile = p
		}
	}

	id, s := h.registry.Create(func(id string) *wizard.Session {
		return wizard.NewSession(h.opts.Recommender,
			wizard.WithCamera(req.Camera),
			wizard.WithProfile(profile),
			wizard.WithScanner(h.opts.Scanner),
			wizard.WithScanWait(h.opts.ScanWait),
			wizard.WithScanTimeout(h.opts.ScanTimeout),
			wizard.WithCatalog(h.opts.Catalog),
			wizard.WithScanListener(h.scanListener(id)),
		)
	})

	if h.opts.Cookies != nil {
		cookie, _ := h.opts.Cookies.Get(c.Request(), cookieName)
		cookie.Values[cookieKey] = id
		if err := cookie.Save(c.Request(), c.Response()); err != nil {
			logger.Warn().Err(err).Msg("failed to save wizard cookie")
		}
	}

	logger.Info().Str("session_id", id).Bool("camera", req.Camera).Bool("profile", profile != nil).Msg("wizard session created")
	return c.JSON(http.StatusCreated, SessionResponse{ID: id, State: s.Snapshot()})
}

func (h *Handler) Get(c echo.Context) error {
	return h.with(c, func(s *wizard.Session) error { return nil })
}

// Delete ends a session and forgets it in the cookie.
func (h *Handler) Delete(c echo.Context) error {
	id, _, err := h.lookup(c)
	if err != nil {
		return sessionError(c, err)
	}
	h.registry.Remove(id)

	if h.opts.Cookies != nil && h.currentID(c) == id {
		cookie, _ := h.opts.Cookies.Get(c.Request(), cookieName)
		delete(cookie.Values, cookieKey)
		if err := cookie.Save(c.Request(), c.Response()); err != nil {
			utility.RequestLogger(c).Warn().Err(err).Msg("failed to clear wizard cookie")
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// Profile attaches the signed-in user's profile to a session started as a
// guest. Answers are re-seeded only if the user is still on the welcome step.
func (h *Handler) Profile(c echo.Context) error {
	token := auth.TokenFromRequest(c.Request())
	if token == "" || h.opts.Profiles == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing authentication token"})
	}
	profile, err := h.opts.Profiles.ProfileFromToken(c.Request().Context(), token)
	if err != nil {
		utility.RequestLogger(c).Info().Err(err).Msg("rejected token on wizard profile")
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
	}
	return h.with(c, func(s *wizard.Session) error {
		s.AttachProfile(profile)
		return nil
	})
}

// Toggle flips one option of a multi-select field.
func (h *Handler) Toggle(c echo.Context) error {
	var req toggleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	return h.with(c, func(s *wizard.Session) error {
		f, err := wizard.ParseField(req.Field)
		if err != nil {
			return err
		}
		_, err = s.Toggle(f, req.Value)
		return err
	})
}

// SetText stores the other-allergy or ingredients text.
func (h *Handler) SetText(c echo.Context) error {
	var req toggleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	return h.with(c, func(s *wizard.Session) error {
		f, err := wizard.ParseTextField(req.Field)
		if err != nil {
			return err
		}
		return s.SetText(f, req.Value)
	})
}

// Advance moves forward. From the last question it blocks until the
// suggestions (or the fallback) are in.
func (h *Handler) Advance(c echo.Context) error {
	ctx := context.WithoutCancel(c.Request().Context())
	return h.with(c, func(s *wizard.Session) error { return s.Advance(ctx) })
}

func (h *Handler) Retreat(c echo.Context) error {
	return h.with(c, func(s *wizard.Session) error { return s.Retreat() })
}

func (h *Handler) Skip(c echo.Context) error {
	return h.with(c, func(s *wizard.Session) error { return s.Skip() })
}

func (h *Handler) More(c echo.Context) error {
	ctx := context.WithoutCancel(c.Request().Context())
	return h.with(c, func(s *wizard.Session) error { return s.MoreSuggestions(ctx) })
}

func (h *Handler) Restart(c echo.Context) error {
	return h.with(c, func(s *wizard.Session) error {
		s.Restart()
		return nil
	})
}

// Photo starts scanning the uploaded image and advances past the camera
// step. The result arrives later on the websocket and in the state.
func (h *Handler) Photo(c echo.Context) error {
	var req models.ScanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	image, err := meals.DecodeImage(req.Image)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Image data is required"})
	}
	return h.with(c, func(s *wizard.Session) error { return s.CapturePhoto(image) })
}

// Socket upgrades to a websocket that receives scan events for the session.
func (h *Handler) Socket(c echo.Context) error {
	id, _, err := h.lookup(c)
	if err != nil {
		return sessionError(c, err)
	}

	ws, err := utility.Upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	h.hub.Register(id, ws)
	defer h.hub.Unregister(id, ws)

	// clients never send anything; reading detects the disconnect
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	return nil
}

/* ====================================================================
                          HELPER FUNCTIONS
==================================================================== */

// with resolves the session, runs fn and answers with the new state.
func (h *Handler) with(c echo.Context, fn func(s *wizard.Session) error) error {
	id, s, err := h.lookup(c)
	if err != nil {
		return sessionError(c, err)
	}
	if err := fn(s); err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, SessionResponse{ID: id, State: s.Snapshot()})
}

func (h *Handler) lookup(c echo.Context) (string, *wizard.Session, error) {
	id := c.Param("id")
	if id == currentID {
		id = h.currentID(c)
	}
	if id == "" {
		return "", nil, ErrSessionNotFound
	}
	s, ok := h.registry.Get(id)
	if !ok {
		return "", nil, ErrSessionNotFound
	}
	return id, s, nil
}

func (h *Handler) currentID(c echo.Context) string {
	if h.opts.Cookies == nil {
		return ""
	}
	cookie, err := h.opts.Cookies.Get(c.Request(), cookieName)
	if err != nil {
		return ""
	}
	id, _ := cookie.Values[cookieKey].(string)
	return id
}

func (h *Handler) scanListener(id string) func(wizard.ScanResult) {
	return func(res wizard.ScanResult) {
		if h.hub == nil {
			return
		}
		h.hub.Notify(id, ScanEvent{
			Type:        scanMessage,
			Ingredients: res.Ingredients,
			Success:     res.Err == nil,
		})
	}
}

func sessionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, wizard.ErrInvalidTransition), errors.Is(err, wizard.ErrGenerating):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, wizard.ErrSelectionRequired), errors.Is(err, wizard.ErrUnknownOption),
		errors.Is(err, wizard.ErrUnknownField), errors.Is(err, wizard.ErrNoScanner):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}
	utility.RequestLogger(c).Error().Err(err).Msg("wizard request failed")
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}
