// Package auth resolves the calling user from a bearer token.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	v1 "github.com/mmt-lab/draftflow/internal/api/v1"
	httperr "github.com/mmt-lab/draftflow/internal/core/errors"
)

const (
	callerKey = "draftflow.caller"

	// ProviderHeader overrides the provider claim when Options.AllowProviderHeader is set.
	ProviderHeader = "X-Provider-Id"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errNoSubject    = errors.New("token has no user claim")
	errExpired      = errors.New("token is expired")
	errNoKey        = errors.New("no signing key configured")
	errUnsigned     = errors.New("unsigned tokens are not accepted")
)

// Options configures token handling.
type Options struct {
	// SigningKey enables HS256/384/512 verification.
	SigningKey string

	// InsecureSkipVerify accepts tokens without checking their signature when
	// SigningKey is empty. Only the expiry is checked and alg=none is still
	// rejected. Without it an empty SigningKey rejects every token.
	InsecureSkipVerify bool

	Issuer   string
	Audience string

	UserClaim     string
	ProviderClaim string

	AllowProviderHeader bool
}

func (o Options) normalized() Options {
	n := o
	if n.UserClaim == "" {
		n.UserClaim = "sub"
	}
	if n.ProviderClaim == "" {
		n.ProviderClaim = "provider_id"
	}
	return n
}

// Authenticator turns tokens into callers.
type Authenticator struct {
	opts  Options
	nowFn func() time.Time
}

// New creates an Authenticator.
func New(opts Options) *Authenticator {
	return &Authenticator{opts: opts.normalized(), nowFn: time.Now}
}

// Middleware rejects requests without a usable token and stores the Caller
// on the gin context.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := a.Authenticate(c.GetHeader("Authorization"))
		if err != nil {
			slog.Info("[Auth] Rejected request", "error", err, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusUnauthorized, httperr.ErrorResponse{
				ErrorType: httperr.HttpUnauthorizedError,
				Error:     "Missing or invalid bearer token",
			})
			return
		}

		if a.opts.AllowProviderHeader {
			if p := strings.TrimSpace(c.GetHeader(ProviderHeader)); p != "" {
				caller.ProviderID = p
			}
		}

		SetCaller(c, caller)
		c.Next()
	}
}

// Authenticate resolves the caller from an Authorization header value.
func (a *Authenticator) Authenticate(header string) (v1.Caller, error) {
	token, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return v1.Caller{}, errMissingToken
	}

	claims, err := a.parse(token)
	if err != nil {
		return v1.Caller{}, err
	}

	caller := v1.Caller{
		UserID:     stringClaim(claims, a.opts.UserClaim),
		ProviderID: stringClaim(claims, a.opts.ProviderClaim),
		Name:       stringClaim(claims, "name"),
		Email:      stringClaim(claims, "email"),
		Token:      token,
	}
	if caller.UserID == "" {
		return v1.Caller{}, errNoSubject
	}
	return caller, nil
}

func (a *Authenticator) parse(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}

	if a.opts.SigningKey == "" {
		if !a.opts.InsecureSkipVerify {
			return nil, errNoKey
		}
		parsed, _, err := jwt.NewParser().ParseUnverified(token, claims)
		if err != nil {
			return nil, fmt.Errorf("failed to parse token: %w", err)
		}
		if parsed.Method == nil || parsed.Method.Alg() == jwt.SigningMethodNone.Alg() {
			return nil, errUnsigned
		}
		exp, err := claims.GetExpirationTime()
		if err != nil {
			return nil, fmt.Errorf("invalid exp claim: %w", err)
		}
		if exp != nil && a.nowFn().After(exp.Time) {
			return nil, errExpired
		}
		return claims, nil
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithTimeFunc(a.nowFn),
	}
	if a.opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(a.opts.Issuer))
	}
	if a.opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(a.opts.Audience))
	}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(a.opts.SigningKey), nil
	}, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	return claims, nil
}

// SetCaller stores caller on the gin context.
func SetCaller(c *gin.Context, caller v1.Caller) {
	c.Set(callerKey, caller)
}

// CallerFrom returns the caller stored by the middleware.
func CallerFrom(c *gin.Context) (v1.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return v1.Caller{}, false
	}
	caller, ok := v.(v1.Caller)
	return caller, ok
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if s, ok := claims[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
