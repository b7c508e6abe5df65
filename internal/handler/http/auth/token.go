package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"rfp-radar/internal/handler/http/requestid"
	authservice "rfp-radar/internal/service/auth"

	"github.com/golang-jwt/jwt/v5"
)

type loginRequest struct {
	Email    string `json:"email" example:"admin@example.com"`
	Password string `json:"password" example:"your_password"`
}

type tokenResponse struct {
	Token string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// TokenHandler authenticates the operator account and issues an HS256 JWT
// used for the protected admin endpoints (website registry, manual scan
// triggers). Tokens expire after tokenTTL; a non-positive TTL falls back to
// one hour.
//
// @Summary      JWT トークン取得
// @Description  メールアドレスとパスワードで認証し、JWT トークンを発行します
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body loginRequest true "ログイン情報"
// @Success      200 {object} tokenResponse "JWT トークン"
// @Header       200 {integer} X-RateLimit-Limit "Maximum number of requests allowed in the current window"
// @Header       200 {integer} X-RateLimit-Remaining "Number of requests remaining in the current window"
// @Header       200 {integer} X-RateLimit-Reset "Unix timestamp when the rate limit window resets"
// @Failure      400 {string} string "リクエストが不正"
// @Failure      401 {string} string "認証失敗"
// @Failure      429 {string} string "Too many requests - rate limit exceeded"
// @Header       429 {integer} X-RateLimit-Limit "Maximum number of requests allowed in the current window"
// @Header       429 {integer} X-RateLimit-Remaining "Number of requests remaining (should be 0)"
// @Header       429 {integer} X-RateLimit-Reset "Unix timestamp when the rate limit window resets"
// @Header       429 {integer} Retry-After "Seconds until the client should retry"
// @Failure      500 {string} string "トークン生成失敗"
// @Router       /auth/token [post]
func TokenHandler(authService *authservice.AuthService, tokenTTL time.Duration) http.HandlerFunc {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := requestid.FromContext(r.Context())
		logger := slog.With(slog.String("request_id", requestID))

		logger.Info("authentication attempt started")

		reject := func(reason, message string, status int) {
			logger.Warn("authentication failed",
				slog.String("reason", reason),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()))
			http.Error(w, message, status)
		}

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			reject("invalid_request", "invalid request", http.StatusBadRequest)
			return
		}

		// ログインはメールアドレスで受け、内部的には Username として扱う
		creds := authservice.Credentials{
			Username: req.Email,
			Password: req.Password,
		}

		if err := authService.ValidateCredentials(r.Context(), creds); err != nil {
			reject("invalid_credentials", "unauthorized", http.StatusUnauthorized)
			return
		}

		role, err := authService.GetProvider().IdentifyUser(r.Context(), req.Email)
		if err != nil {
			reject("role_identification_failed", "unauthorized", http.StatusUnauthorized)
			return
		}

		secret := []byte(os.Getenv("JWT_SECRET"))

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  req.Email,
			"role": role,
			"exp":  time.Now().Add(tokenTTL).Unix(),
		})

		signed, err := token.SignedString(secret)
		if err != nil {
			logger.Error("token generation failed",
				slog.String("error", err.Error()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()))
			http.Error(w, "token generation failed", http.StatusInternalServerError)
			return
		}

		logger.Info("authentication successful",
			slog.String("user_email", req.Email),
			slog.String("role", role),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(tokenResponse{Token: signed}); err != nil {
			logger.Error("failed to encode token response",
				slog.String("error", err.Error()))
		}
	}
}
