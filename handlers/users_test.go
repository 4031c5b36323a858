package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"elib/httperr"
	"elib/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserStore struct {
	byEmail map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: map[string]*models.User{}}
}

func (s *fakeUserStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	u2 := *u
	return &u2, nil
}

func (s *fakeUserStore) CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	stored := *user
	stored.ID = id
	s.byEmail[user.Email] = &stored
	return id, nil
}

func (s *fakeUserStore) seed(t *testing.T, name, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     email,
		Password:  string(hash),
		CreatedAt: time.Now(),
	}
	s.byEmail[email] = u
	return u
}

const usersTestSecret = "users-test-secret"

func usersRequest(t *testing.T, h *UsersHandler, fn httperr.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	httperr.Handler(fn, false)(rec, req)
	return rec
}

func tokenSubject(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(resp.AccessToken, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(usersTestSecret), nil
	})
	require.NoError(t, err)
	return claims.Subject
}

func TestRegisterCreatesUserAndIssuesToken(t *testing.T) {
	store := newFakeUserStore()
	h := &UsersHandler{Store: store, JWTSecret: usersTestSecret}

	rec := usersRequest(t, h, h.Register, registerRequest{Name: "Ada", Email: "ada@example.com", Password: "hunter2"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := store.byEmail["ada@example.com"]
	require.NotNil(t, created)
	assert.Equal(t, created.ID.Hex(), tokenSubject(t, rec))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("hunter2")))
	assert.NotEqual(t, "hunter2", created.Password)
}

func TestRegisterValidation(t *testing.T) {
	cases := []registerRequest{
		{Email: "a@b.c", Password: "x"},
		{Name: "A", Password: "x"},
		{Name: "A", Email: "a@b.c"},
	}
	for _, c := range cases {
		store := newFakeUserStore()
		h := &UsersHandler{Store: store, JWTSecret: usersTestSecret}
		rec := usersRequest(t, h, h.Register, c)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	store := newFakeUserStore()
	store.seed(t, "Ada", "ada@example.com", "hunter2")
	h := &UsersHandler{Store: store, JWTSecret: usersTestSecret}

	rec := usersRequest(t, h, h.Register, registerRequest{Name: "Other", Email: "ada@example.com", Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHappyPath(t *testing.T) {
	store := newFakeUserStore()
	user := store.seed(t, "Ada", "ada@example.com", "hunter2")
	h := &UsersHandler{Store: store, JWTSecret: usersTestSecret}

	rec := usersRequest(t, h, h.Login, loginRequest{Email: "ada@example.com", Password: "hunter2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, user.ID.Hex(), tokenSubject(t, rec))
}

func TestLoginUnknownEmail(t *testing.T) {
	h := &UsersHandler{Store: newFakeUserStore(), JWTSecret: usersTestSecret}
	rec := usersRequest(t, h, h.Login, loginRequest{Email: "ghost@example.com", Password: "pw"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	store := newFakeUserStore()
	store.seed(t, "Ada", "ada@example.com", "hunter2")
	h := &UsersHandler{Store: store, JWTSecret: usersTestSecret}

	rec := usersRequest(t, h, h.Login, loginRequest{Email: "ada@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	h := &UsersHandler{Store: newFakeUserStore(), JWTSecret: usersTestSecret}
	rec := usersRequest(t, h, h.Login, loginRequest{Email: "ada@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
