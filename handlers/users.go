package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"elib/httperr"
	"elib/models"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 7 * 24 * time.Hour

// UserStore is the slice of the credential store the auth handlers need.
type UserStore interface {
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
}

type UsersHandler struct {
	Store     UserStore
	JWTSecret string
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
}

// Register creates a user and returns a token for it.
// POST /api/users/register
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) error {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return httperr.Validation("Invalid Request Body")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return httperr.Validation("All Fields are Required")
	}

	existing, err := h.Store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		return httperr.Internal("Error While Getting User", err)
	}
	if existing != nil {
		return httperr.Validation("User Already Exists with this Email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return httperr.Internal("Error While Hashing Password", err)
	}
	user := &models.User{
		Name:      req.Name,
		Email:     req.Email,
		Password:  string(hash),
		CreatedAt: time.Now(),
	}
	id, err := h.Store.CreateUser(r.Context(), user)
	if err != nil {
		return httperr.Internal("Error While Creating User", err)
	}

	token, err := h.signToken(id)
	if err != nil {
		return httperr.Internal("Error While Signing JWT Token", err)
	}
	return writeJSON(w, http.StatusCreated, tokenResponse{
		Message:     "User Created Successfully",
		AccessToken: token,
	})
}

// Login checks the password and returns a fresh token.
// POST /api/users/login
func (h *UsersHandler) Login(w http.ResponseWriter, r *http.Request) error {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return httperr.Validation("Invalid Request Body")
	}
	if req.Email == "" || req.Password == "" {
		return httperr.Validation("All Fields are Required")
	}

	user, err := h.Store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		return httperr.Internal("Error While Getting User", err)
	}
	if user == nil {
		return httperr.NotFound("User Not Found")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return httperr.Authentication("Username or Password Incorrect")
	}

	token, err := h.signToken(user.ID)
	if err != nil {
		return httperr.Internal("Error While Signing JWT Token", err)
	}
	return writeJSON(w, http.StatusOK, tokenResponse{
		Message:     "Login Successful",
		AccessToken: token,
	})
}

// signToken issues an HS256 token whose subject is the user id.
func (h *UsersHandler) signToken(userID primitive.ObjectID) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID.Hex(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.JWTSecret))
}
