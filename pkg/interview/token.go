package interview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/joho/godotenv"
)

const (
	tokenExpiryMs   = 10 * 60 * 1000
	apiKeyMinLength = 32
	apiKeyPrefix    = "ivk_"
)

// ValidateApiKeyFormat checks the shape of an API key before it is used to
// sign a session token.
func ValidateApiKeyFormat(apiKey string) Result[ValidatedApiKey] {
	if len(apiKey) >= apiKeyMinLength && strings.HasPrefix(apiKey, apiKeyPrefix) {
		return Ok(ValidatedApiKey(apiKey))
	}
	return Err[ValidatedApiKey](NewInterviewError("Invalid API key format", ErrCodeAuthFailed))
}

// GetApiKey reads the API key from the environment.
func GetApiKey() Result[string] {
	apiKey := os.Getenv("INTERVIEW_API_KEY")
	if apiKey != "" {
		return Ok(apiKey)
	}
	return Err[string](NewInterviewError("INTERVIEW_API_KEY not set", ErrCodeConfigInvalid))
}

// GenerateSessionTokenFromApiKey signs a short-lived session token with the
// API key. Only a truncated key fingerprint is embedded in the claims.
func GenerateSessionTokenFromApiKey(apiKey ValidatedApiKey, userId *string) Result[SessionToken] {
	expiresAt := time.Now().UnixMilli() + tokenExpiryMs

	payload := map[string]interface{}{
		"apiKey": string(apiKey)[:8] + "...",
		"exp":    expiresAt / 1000, // JWT expects seconds
	}
	if userId != nil {
		payload["userId"] = *userId
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(payload))
	tokenString, err := token.SignedString([]byte(apiKey))
	if err != nil {
		return Err[SessionToken](NewInterviewError(err.Error(), ErrCodeAuthFailed))
	}

	return Ok(SessionToken{Token: tokenString, ExpiresAt: expiresAt})
}

// GenerateSessionToken reads and validates the API key from the environment
// and signs a session token with it.
func GenerateSessionToken() Result[SessionToken] {
	apiKeyResult := GetApiKey()
	if !apiKeyResult.Success {
		return Err[SessionToken](apiKeyResult.Error)
	}

	validatedResult := ValidateApiKeyFormat(apiKeyResult.Data)
	if !validatedResult.Success {
		return Err[SessionToken](validatedResult.Error)
	}

	return GenerateSessionTokenFromApiKey(validatedResult.Data, nil)
}

// GenerateSessionTokenWithUserId is GenerateSessionToken with a user claim.
func GenerateSessionTokenWithUserId(userId string) Result[SessionToken] {
	apiKeyResult := GetApiKey()
	if !apiKeyResult.Success {
		return Err[SessionToken](apiKeyResult.Error)
	}

	validatedResult := ValidateApiKeyFormat(apiKeyResult.Data)
	if !validatedResult.Success {
		return Err[SessionToken](validatedResult.Error)
	}

	return GenerateSessionTokenFromApiKey(validatedResult.Data, &userId)
}

// IsTokenExpired reports whether the token's expiry has passed.
func IsTokenExpired(token SessionToken) bool {
	return time.Now().UnixMilli() > token.ExpiresAt
}

// GetTokenTTL returns the remaining lifetime in seconds, never negative.
func GetTokenTTL(token SessionToken) int {
	ttl := (token.ExpiresAt - time.Now().UnixMilli()) / 1000
	if ttl < 0 {
		return 0
	}
	return int(ttl)
}

// DecodeSessionToken parses and verifies a session token against the API key.
func DecodeSessionToken(token string, apiKey string) Result[map[string]interface{}] {
	parsedToken, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte(apiKey), nil
	})
	if err != nil {
		return Err[map[string]interface{}](NewInterviewError(err.Error(), ErrCodeTokenExpired))
	}

	if claims, ok := parsedToken.Claims.(jwt.MapClaims); ok && parsedToken.Valid {
		return Ok(map[string]interface{}(claims))
	}

	return Err[map[string]interface{}](NewInterviewError("Invalid token", ErrCodeTokenExpired))
}

// TokenManager fetches session tokens from a backend endpoint and caches them
// until shortly before expiry.
type TokenManager struct {
	endpoint      string
	headers       map[string]string
	refreshBuffer float64

	mu        sync.Mutex
	token     *string
	expiresAt time.Time
}

func NewTokenManager(endpoint string, headers map[string]string, refreshBuffer float64) *TokenManager {
	return &TokenManager{
		endpoint:      endpoint,
		headers:       headers,
		refreshBuffer: refreshBuffer,
	}
}

// GetToken returns the cached token while it is still fresh, refreshing it
// from the endpoint otherwise.
func (tm *TokenManager) GetToken() (string, *InterviewError) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	refreshAt := tm.expiresAt.Add(-time.Duration(tm.refreshBuffer) * time.Second)
	if tm.token != nil && time.Now().Before(refreshAt) {
		return *tm.token, nil
	}

	return tm.refreshToken()
}

func (tm *TokenManager) refreshToken() (string, *InterviewError) {
	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequest(http.MethodPost, tm.endpoint, bytes.NewReader([]byte("{}")))
	if err != nil {
		return "", WrapError(err, ErrCodeAuthFailed)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range tm.headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", WrapError(err, ErrCodeConnectionFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", NewAuthError(fmt.Sprintf("token endpoint returned %s", resp.Status))
	}

	var body struct {
		Token     string `json:"token"`
		ExpiresAt int64  `json:"expiresAt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", WrapError(err, ErrCodeJSONParse)
	}
	if body.Token == "" {
		return "", NewAuthError("token endpoint returned no token")
	}
	if body.ExpiresAt <= 0 {
		return "", NewInterviewError("token endpoint returned an invalid expiry", ErrCodeTokenExpired)
	}

	tm.token = &body.Token
	tm.expiresAt = time.UnixMilli(body.ExpiresAt)

	return body.Token, nil
}

func init() {
	_ = godotenv.Load()
}
