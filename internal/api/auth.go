package api

import (
	"errors"                        // Error comparisons
	"net/http"                      // HTTP status codes
	"strings"                       // String manipulation
	"train_booking/internal/domain" // Importing domain models
	"train_booking/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// RegisterRequest is the body of POST /register
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`                   // Display name
	Email    string `json:"email" binding:"required,email"`            // Unique email
	Password string `json:"password" binding:"required"`               // Plain password, hashed before storage
	Role     string `json:"role" binding:"omitempty,oneof=user admin"` // Optional role, defaults to user
}

// LoginRequest is the body of POST /login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// loginResponder shapes the login success body for one role
type loginResponder func(user domain.User, token string) gin.H

// loginResponders returns the success body builder for each role. Admins may
// additionally receive the service credential.
func loginResponders(apiKey string, exposeKey bool) map[string]loginResponder {
	base := func(user domain.User, token string) gin.H {
		return gin.H{
			"status":       "Login successful",
			"status_code":  http.StatusOK,
			"user_id":      user.ID,
			"access_token": token,
		}
	}
	admin := func(user domain.User, token string) gin.H {
		body := base(user, token)
		if exposeKey {
			body["api_key"] = apiKey
		}
		return body
	}
	return map[string]loginResponder{
		domain.RoleUser:  base,
		domain.RoleAdmin: admin,
	}
}

// RegisterHandler creates a user account
func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			respond(c, http.StatusBadRequest, "Invalid request")
			return
		}
		email := strings.ToLower(strings.TrimSpace(req.Email)) // Normalise email for uniqueness
		role := req.Role                                       // Requested role
		if role == "" {
			role = domain.RoleUser // Default role
		}
		// Check whether the email is taken
		var taken int64
		if err := db.WithContext(c.Request.Context()).Model(&domain.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
			logrus.WithFields(logrus.Fields{"email": email, "error": err.Error()}).Error("Failed to check email")
			respond(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if taken > 0 {
			respond(c, http.StatusBadRequest, "Email already registered")
			return
		}
		// Hash the password and create the user
		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			// If hashing fails, return internal server error
			respond(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		user := domain.User{Name: strings.TrimSpace(req.Name), Email: email, Password: hash, Role: role}
		// Attempt to create the user in the database
		if err := db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
			// A concurrent registration may have claimed the email in between
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				respond(c, http.StatusBadRequest, "Email already registered")
				return
			}
			logrus.WithFields(logrus.Fields{"email": email, "error": err.Error()}).Error("Failed to create user")
			respond(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User registered")
		// Return success response
		c.JSON(http.StatusOK, gin.H{
			"status":      "Account successfully created",
			"status_code": http.StatusOK,
			"user_id":     user.ID,
		})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret, apiKey string, exposeKey bool) gin.HandlerFunc {
	responders := loginResponders(apiKey, exposeKey)
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			respond(c, http.StatusBadRequest, "Invalid request")
			return
		}
		var user domain.User // Fetch user from database
		err := db.WithContext(c.Request.Context()).Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).Take(&user).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithField("error", err.Error()).Error("Failed to load user")
			respond(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		// Unknown email and wrong password look the same to the caller
		if err != nil || !utils.VerifyPassword(user.Password, req.Password) {
			respond(c, http.StatusUnauthorized, "Incorrect username/password provided. Please retry")
			return
		}
		responder, ok := responders[user.Role] // Pick the body shape for the role
		if !ok {
			respond(c, http.StatusUnauthorized, "Incorrect username/password provided. Please retry")
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.ID, user.Email, user.Role, jwtSecret)
		if err != nil {
			// If token generation fails, return internal server error
			respond(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		c.JSON(http.StatusOK, responder(user, token)) // Return the token in the response
	}
}
