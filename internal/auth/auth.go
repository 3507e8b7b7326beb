package auth

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/DAVIPRADIPTA/anemia-app/internal/errors"
	"github.com/DAVIPRADIPTA/anemia-app/internal/models"
	"github.com/DAVIPRADIPTA/anemia-app/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

const (
	webTokenTTL    = 24 * time.Hour
	mobileTokenTTL = 30 * 24 * time.Hour
)

func SetupRoutes(r *gin.Engine, userService *services.UserService) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", registerHandler(userService))
		auth.POST("/login", loginHandler(userService))
		auth.GET("/me", AuthMiddleware(userService), meHandler)
	}
}

// AuthMiddleware resolves the bearer token to a user and stores it in the
// gin context under "user".
func AuthMiddleware(userService *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		bearerToken := strings.Split(authHeader, " ")
		if len(bearerToken) != 2 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			c.Abort()
			return
		}

		userID, err := VerifyToken(bearerToken[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		user, err := userService.UserByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown user identity"})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by AuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	user, _ := c.MustGet("user").(*models.User)
	return user
}

// GenerateToken issues an HS256 token whose subject is the user's id.
func GenerateToken(userID uint, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(secretKey())
}

// VerifyToken validates a token and returns the user id it was issued for.
func VerifyToken(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secretKey(), nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}
	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token subject")
	}
	return uint(userID), nil
}

func secretKey() []byte {
	return []byte(os.Getenv("SECRET_KEY"))
}

func registerHandler(userService *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			Email    string      `json:"email"`
			Password string      `json:"password"`
			FullName string      `json:"full_name"`
			Role     models.Role `json:"role"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			apperrors.HandleError(c, apperrors.NewValidationError("Invalid request body"))
			return
		}

		user, err := userService.Register(c.Request.Context(), request.Email, request.Password, request.FullName, request.Role)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"email":     user.Email,
			"full_name": user.FullName,
		})
	}
}

func loginHandler(userService *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			IsMobile bool   `json:"is_mobile"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			apperrors.HandleError(c, apperrors.NewValidationError("Invalid request body"))
			return
		}

		user, err := userService.Authenticate(c.Request.Context(), request.Email, request.Password)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		// Mobile clients keep a long-lived token, web sessions a short one.
		ttl := webTokenTTL
		if request.IsMobile {
			ttl = mobileTokenTTL
		}
		token, err := GenerateToken(user.ID, ttl)
		if err != nil {
			apperrors.HandleError(c, apperrors.New500Error(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"expires_in": ttl.String(),
			"user": gin.H{
				"id":        user.ID,
				"email":     user.Email,
				"full_name": user.FullName,
				"role":      user.Role,
			},
		})
	}
}

func meHandler(c *gin.Context) {
	user := CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"id":        user.ID,
		"email":     user.Email,
		"full_name": user.FullName,
		"role":      user.Role,
		"joined_at": user.CreatedAt.Format(time.RFC3339),
	})
}
