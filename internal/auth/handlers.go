package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"MealVibe/internal/models"
	"MealVibe/internal/utility"
)

const accessTokenCookie = "access-token"

/* ====================================================================
                             HANDLERS
==================================================================== */

// Handler serves POST /api/auth. The action field selects signup, signin
// or complete-setup.
func (s *Service) Handler(c echo.Context) error {
	ctx := c.Request().Context()
	logger := utility.RequestLogger(c)

	var req models.AuthRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	action := Actions.Parse(req.Action)
	if action == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid action"})
	}

	var (
		res *models.AuthResponse
		err error
	)
	switch *action {
	case ActionSignup:
		res, err = s.Signup(ctx, req.Name, req.Email, req.Password)
	case ActionSignin:
		if limitErr := utility.CheckIPRateLimit(utility.GetRealIP(c)); limitErr != nil {
			logger.Warn().Str("ip", utility.GetRealIP(c)).Msg("signin rate limit exceeded")
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": limitErr.Error()})
		}
		res, err = s.Signin(ctx, req.Email, req.Password)
		if errors.Is(err, ErrInvalidCredentials) {
			utility.AddRandomDelay()
		}
	case ActionCompleteSetup:
		claims, tokenErr := s.ParseToken(tokenFromRequest(c))
		if tokenErr != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
		}
		res, err = s.CompleteSetup(ctx, claims.UserID, req.Diet, req.Allergies)
	}

	if err != nil {
		return authError(c, logger, err)
	}

	setAuthCookie(c, res.Token)
	return c.JSON(http.StatusOK, res)
}

// ProfileHandler returns the profile of the authenticated user.
func (s *Service) ProfileHandler(c echo.Context) error {
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	profile, err := s.Profile(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "User not found"})
	}
	return c.JSON(http.StatusOK, profile)
}

// JwtAuthMiddleware requires a valid access token in the Authorization
// header or the access-token cookie.
func (s *Service) JwtAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing token"})
		}

		claims, err := s.ParseToken(tokenString)
		if err != nil {
			utility.RequestLogger(c).Info().Err(err).Msg("token validation error")
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
		}

		c.Set("user_id", claims.UserID)
		c.Set("claims", claims)
		return next(c)
	}
}

/* ====================================================================
                          HELPER FUNCTIONS
==================================================================== */

// TokenFromRequest returns the bearer token or access-token cookie, if any.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func tokenFromRequest(c echo.Context) string {
	return TokenFromRequest(c.Request())
}

func authError(c echo.Context, logger *zerolog.Logger, err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")})
	case errors.Is(err, ErrEmailTaken):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrInvalidToken):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
	}
	logger.Error().Err(err).Msg("auth request failed")
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}

func setAuthCookie(c echo.Context, token string) {
	if token == "" {
		return
	}
	cookie := new(http.Cookie)
	cookie.Name = accessTokenCookie
	cookie.Value = token
	cookie.Expires = time.Now().Add(AccessTokenDuration)
	cookie.Path = "/"
	cookie.HttpOnly = true
	cookie.Secure = c.Scheme() == "https"
	cookie.SameSite = http.SameSiteLaxMode
	c.SetCookie(cookie)
}
