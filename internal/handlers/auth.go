package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/palletor/ucpwms/internal/models"
	"github.com/palletor/ucpwms/internal/utils"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// login authenticates a user and returns an access token
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	var user models.UserAuth
	if err := r.db.Where("username = ? AND is_active = true", body.Username).First(&user).Error; err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !utils.CheckPasswordHash(body.Password, user.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := utils.GenerateToken(&user, r.cfg.JWTSecret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	now := time.Now().UTC()
	r.db.Model(&user).Update("last_login", now)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// register creates a new operator account
func (r *Router) register(w http.ResponseWriter, req *http.Request) {
	var body registerRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if body.Username == "" || body.Password == "" || body.Email == "" {
		respondError(w, http.StatusBadRequest, "username, password and email are required")
		return
	}

	hash, err := utils.HashPassword(body.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := models.UserAuth{
		Username: body.Username,
		Password: hash,
		Email:    body.Email,
		Name:     body.Name,
	}
	if err := r.db.Create(&user).Error; err != nil {
		respondError(w, http.StatusConflict, "Username or email already taken")
		return
	}
	respondJSON(w, http.StatusCreated, user)
}
