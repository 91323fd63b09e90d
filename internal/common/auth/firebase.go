// internal/common/auth/firebase.go
package auth

import (
	"context"
	"strings"

	"studybuddy-payments/internal/common/logger"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
)

// TokenVerifier is the subset of the Firebase Auth client used here.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// Identity is the verified caller of a callable endpoint.
type Identity struct {
	UID   string
	Email string
}

const identityKey = "auth.identity"

// FirebaseMiddleware verifies "Authorization: Bearer <ID token>" and attaches
// the caller's Identity. Requests without a valid token continue
// unauthenticated; the endpoint decides how to answer them.
func FirebaseMiddleware(verifier TokenVerifier, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.Next()
			return
		}
		idToken := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if idToken == "" {
			c.Next()
			return
		}

		tok, err := verifier.VerifyIDToken(c.Request.Context(), idToken)
		if err != nil {
			log.Warn("rejected firebase id token", map[string]interface{}{
				"error": err.Error(),
				"path":  c.FullPath(),
			})
			c.Next()
			return
		}

		id := Identity{UID: tok.UID}
		if email, ok := tok.Claims["email"].(string); ok {
			id.Email = email
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// IdentityFrom returns the verified identity, if any.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok && id.UID != ""
}

// WithIdentity attaches id to c. Used by tests and alternate auth front-ends.
func WithIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}
