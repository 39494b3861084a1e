package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

// CasdoorAuthMiddleware authenticates Casdoor-issued bearer tokens and provisions
// a local user row on first sight
type CasdoorAuthMiddleware struct {
	parseToken  func(token string) (*casdoorsdk.Claims, error)
	userService services.UserService
	logger      utils.Logger
}

func NewCasdoorAuthMiddleware(cfg config.CasdoorConfig, userService services.UserService, logger utils.Logger) *CasdoorAuthMiddleware {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Application,
		cfg.Organization,
	)

	return &CasdoorAuthMiddleware{
		parseToken:  client.ParseJwtToken,
		userService: userService,
		logger:      logger,
	}
}

// AuthMiddleware rejects requests without a valid token
func (cam *CasdoorAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c, "authorization header missing or malformed")
			return
		}

		claims, err := cam.parseToken(token)
		if err != nil {
			unauthorized(c, fmt.Sprintf("invalid token: %v", err))
			return
		}

		user, err := cam.resolveUser(c.Request.Context(), claims)
		if err != nil {
			utils.FromContext(c, cam.logger).Error("Failed to resolve authenticated user", "error", err)
			unauthorized(c, "failed to resolve user")
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// RequireRoleMiddleware lets admins through plus any of the given roles
func RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetUserRoleFromContext(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Message: "Access denied", Details: err.Error()})
			return
		}

		for _, requiredRole := range requiredRoles {
			if role == requiredRole || role == models.RoleAdmin {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: fmt.Sprintf("required role: %v", requiredRoles),
		})
	}
}

func (cam *CasdoorAuthMiddleware) resolveUser(ctx context.Context, claims *casdoorsdk.Claims) (*models.User, error) {
	if claims.Id == "" {
		return nil, fmt.Errorf("token has no user id")
	}

	user, err := cam.userService.EnsureUser(ctx, userFromClaims(claims))
	if err != nil {
		return nil, err
	}

	// The identity provider can grant admin without a local role change
	if isCasdoorAdmin(claims) {
		user.Role = models.RoleAdmin
	}
	return user, nil
}

func userFromClaims(claims *casdoorsdk.Claims) *models.User {
	user := &models.User{
		ID:   claims.Id,
		Name: claims.User.DisplayName,
	}
	if user.Name == "" {
		user.Name = claims.User.Name
	}
	if claims.User.Email != "" {
		email := claims.User.Email
		user.Email = &email
	}
	if claims.User.Phone != "" {
		phone := claims.User.Phone
		user.Phone = &phone
	}
	if isCasdoorAdmin(claims) {
		user.Role = models.RoleAdmin
	}
	return user
}

func isCasdoorAdmin(claims *casdoorsdk.Claims) bool {
	if claims.User.IsAdmin {
		return true
	}
	switch strings.ToLower(claims.User.Type) {
	case "admin", "administrator":
		return true
	}
	return false
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func unauthorized(c *gin.Context, details string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
		Message: "Unauthorized",
		Details: details,
	})
}

func setUser(c *gin.Context, user *models.User) {
	c.Set("user_id", user.ID)
	c.Set("user", user)
	c.Set("user_role", user.Role)
	if user.Email != nil {
		c.Set("user_email", *user.Email)
	}
}

// GetUserFromContext returns the user set by the auth middleware
func GetUserFromContext(c *gin.Context) (*models.User, error) {
	user, exists := c.Get("user")
	if !exists {
		return nil, fmt.Errorf("user not found in context")
	}

	userModel, ok := user.(*models.User)
	if !ok {
		return nil, fmt.Errorf("invalid user type in context")
	}

	return userModel, nil
}

func GetUserRoleFromContext(c *gin.Context) (models.UserRole, error) {
	userRole, exists := c.Get("user_role")
	if !exists {
		return "", fmt.Errorf("user role not found in context")
	}

	role, ok := userRole.(models.UserRole)
	if !ok {
		return "", fmt.Errorf("invalid user role type in context")
	}

	return role, nil
}
