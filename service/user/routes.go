package user

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gopkg.in/gomail.v2"

	"github.com/gorilla/mux"
	"github.com/ozodbekdev/fitclub-server/cmd/models"
	"github.com/ozodbekdev/fitclub-server/cmd/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// RegisterRoutes sets up staff account routes.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/login", h.handleLogin).Methods("POST")
	router.HandleFunc("/register", utils.AuthMiddleware(h.HandleRegister)).Methods("POST")
	router.HandleFunc("/refresh", h.handleRefreshToken).Methods("POST")
	router.HandleFunc("/reset-password", h.handlePasswordResetRequest).Methods("POST")
	router.HandleFunc("/reset-password/{userId:[0-9]+}/confirm", h.handlePasswordReset).Methods("POST")
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var user models.User
	if err := h.db.Where("email = ? AND active = ?", req.Email, true).First(&user).Error; err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	accessToken, err := generateJWT(user.ID, 12)
	if err != nil {
		utils.LogError(utils.GetLogger(), "user", "handleLogin", "access token", user.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error generating access token")
		return
	}

	refreshToken, err := generateRefreshToken(user.ID)
	if err != nil {
		utils.LogError(utils.GetLogger(), "user", "handleLogin", "refresh token", user.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error generating refresh token")
		return
	}
	if err := saveRefreshToken(h.db, user.ID, refreshToken); err != nil {
		utils.LogError(utils.GetLogger(), "user", "handleLogin", "save refresh token", user.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error saving refresh token")
		return
	}

	utils.GetLogger().WithField("user_id", user.ID).Info("staff login")
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user_id":       user.ID,
		"role":          user.Role,
	})
}

type registerRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"`
	Role     string `json:"role" validate:"omitempty,oneof=staff manager admin"`
}

// HandleRegister creates a staff account. Only an authenticated staff member
// can add another one.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Role == "" {
		req.Role = "staff"
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}

	user := models.User{
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: string(passwordHash),
		Phone:        req.Phone,
		Role:         req.Role,
	}
	if err := h.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.WriteError(w, http.StatusConflict, "Email is already in use")
			return
		}
		utils.LogError(utils.GetLogger(), "user", "HandleRegister", "create", req.Email, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error registering user")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user_id": user.ID,
	})
}

func (h *Handler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		utils.WriteError(w, http.StatusBadRequest, "Refresh token required")
		return
	}

	var user models.User
	err := h.db.Where("refresh_token = ? AND active = ?", req.RefreshToken, true).First(&user).Error
	if err != nil || time.Now().After(user.RefreshTokenExpiredAt) {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	newAccessToken, err := generateJWT(user.ID, 12)
	if err != nil {
		utils.LogError(utils.GetLogger(), "user", "handleRefreshToken", "access token", user.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error generating access token")
		return
	}
	newRefreshToken, err := generateRefreshToken(user.ID)
	if err != nil {
		utils.LogError(utils.GetLogger(), "user", "handleRefreshToken", "refresh token", user.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error generating refresh token")
		return
	}
	if err := saveRefreshToken(h.db, user.ID, newRefreshToken); err != nil {
		utils.LogError(utils.GetLogger(), "user", "handleRefreshToken", "save refresh token", user.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error saving refresh token")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"access_token":  newAccessToken,
		"refresh_token": newRefreshToken,
	})
}

func generateJWT(userID uint, expirationHours int) (string, error) {
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(userID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * time.Duration(expirationHours))),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("SECRET_KEY")))
}

func generateRefreshToken(userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, []byte(os.Getenv("SECRET_KEY")))
	mac.Write([]byte(fmt.Sprintf("%d", userID)))
	mac.Write(b)

	signature := mac.Sum(nil)
	return fmt.Sprintf("%d_%x_%x", userID, b, signature), nil
}

func saveRefreshToken(db *gorm.DB, userID uint, refreshToken string) error {
	expirationTime := time.Now().Add(30 * 24 * time.Hour)
	return db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"refresh_token":            refreshToken,
		"refresh_token_expired_at": expirationTime,
	}).Error
}

func (h *Handler) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		utils.WriteError(w, http.StatusBadRequest, "Email is required")
		return
	}

	// The response is the same whether or not the account exists.
	vague := map[string]string{
		"message": "If an account exists, a reset code will be sent to your email",
	}

	var user models.User
	if err := h.db.Where("email = ? AND active = ?", req.Email, true).First(&user).Error; err != nil {
		utils.WriteJSON(w, http.StatusOK, vague)
		return
	}

	resetToken, err := sixDigitCode()
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error processing reset request")
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.PasswordResetToken{
			UserID:    user.ID,
			Token:     resetToken,
			ExpiresAt: time.Now().Add(5 * time.Minute),
		}).Error
	})
	if err != nil {
		utils.LogError(utils.GetLogger(), "user", "handlePasswordResetRequest", "store token", user.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error processing reset request")
		return
	}

	if err := sendResetEmail(user.Email, resetToken); err != nil {
		utils.LogError(utils.GetLogger(), "user", "handlePasswordResetRequest", "send email", user.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error sending email")
		return
	}

	utils.WriteJSON(w, http.StatusOK, vague)
}

func (h *Handler) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseUint(mux.Vars(r)["userId"], 10, 32)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Password) < 6 {
		utils.WriteError(w, http.StatusBadRequest, "Password must be at least 6 characters long")
		return
	}

	var resetToken models.PasswordResetToken
	err = h.db.Where("user_id = ? AND token = ?", uint(userID), req.Token).First(&resetToken).Error
	if err != nil || time.Now().After(resetToken.ExpiresAt) {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid or expired reset token")
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", uint(userID)).
			Update("password_hash", string(passwordHash)).Error; err != nil {
			return err
		}
		return tx.Delete(&resetToken).Error
	})
	if err != nil {
		utils.LogError(utils.GetLogger(), "user", "handlePasswordReset", "update password", userID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error resetting password")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func sendResetEmail(email, code string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Password Reset Code")
	m.SetBody("text/plain", fmt.Sprintf("Your password reset code is: %s. Ignore this email if you did not request a reset.", code))

	port, err := strconv.Atoi(smtpPort)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %v", err)
	}
	d := gomail.NewDialer(smtpHost, port, smtpUser, smtpPass)

	return d.DialAndSend(m)
}
