package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taskboard/internal/auth"
	"taskboard/internal/handler"
	"taskboard/internal/model"
	"taskboard/internal/repository"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	user := args.Get(0)
	if user == nil {
		return nil, args.Error(1)
	}
	return user.(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	user := args.Get(0)
	if user == nil {
		return nil, args.Error(1)
	}
	return user.(*model.User), args.Error(1)
}

func setupUserTest() (*gin.Engine, *MockUserRepository, *auth.TokenManager) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	mockRepo := new(MockUserRepository)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	userHandler := handler.NewUserHandler(mockRepo, tokens)

	r.POST("/register", userHandler.Register)
	r.POST("/login", userHandler.Login)
	return r, mockRepo, tokens
}

func postJSON(router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRegister_Success(t *testing.T) {
	// Arrange
	router, mockRepo, tokens := setupUserTest()
	mockRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(nil, nil)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.User).ID = uuid.New()
		}).
		Return(nil)

	reqBody := handler.RegisterRequest{
		Name:     "Test User",
		Username: "tester",
		Email:    "Test@Example.com",
		Password: "password123",
	}

	// Act
	resp := postJSON(router, "/register", reqBody)

	// Assert
	assert.Equal(t, http.StatusCreated, resp.Code)

	var response handler.AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &response))
	assert.Equal(t, reqBody.Name, response.User.Name)
	assert.Equal(t, "test@example.com", response.User.Email)
	assert.Equal(t, "tester", response.User.Username)

	subject, err := tokens.ParseToken(response.Token)
	require.NoError(t, err)
	assert.Equal(t, response.User.ID, subject)

	created := mockRepo.Calls[1].Arguments.Get(1).(*model.User)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.HashedPassword), []byte("password123")))

	mockRepo.AssertExpectations(t)
}

func TestRegister_UserAlreadyExists(t *testing.T) {
	router, mockRepo, _ := setupUserTest()
	existingUser := &model.User{ID: uuid.New(), Email: "existing@example.com", Name: "Existing User"}
	mockRepo.On("FindByEmail", mock.Anything, "existing@example.com").Return(existingUser, nil)

	resp := postJSON(router, "/register", handler.RegisterRequest{
		Name:     "Test User",
		Username: "tester",
		Email:    "existing@example.com",
		Password: "password123",
	})

	assert.Equal(t, http.StatusConflict, resp.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &response))
	assert.Equal(t, "User with this email already exists", response["error"])

	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_UsernameTaken(t *testing.T) {
	router, mockRepo, _ := setupUserTest()
	mockRepo.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, nil)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(repository.ErrUserExists)

	resp := postJSON(router, "/register", handler.RegisterRequest{
		Name:     "Test User",
		Username: "taken",
		Email:    "new@example.com",
		Password: "password123",
	})

	assert.Equal(t, http.StatusConflict, resp.Code)
	mockRepo.AssertExpectations(t)
}

func TestRegister_InvalidInput(t *testing.T) {
	router, mockRepo, _ := setupUserTest()

	resp := postJSON(router, "/register", map[string]string{"email": "not-an-email"})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	mockRepo.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
}

func TestLogin_Success(t *testing.T) {
	// Arrange
	router, mockRepo, _ := setupUserTest()

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	testUser := &model.User{
		ID:             uuid.New(),
		Email:          "test@example.com",
		Username:       "tester",
		HashedPassword: string(hashedPassword),
		Name:           "Test User",
	}
	mockRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(testUser, nil)

	// Act
	resp := postJSON(router, "/login", handler.LoginRequest{Email: "test@example.com", Password: "password123"})

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)

	var response handler.AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &response))
	assert.NotEmpty(t, response.Token)
	assert.Equal(t, testUser.ID.String(), response.User.ID)

	mockRepo.AssertExpectations(t)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)

	cases := []struct {
		name string
		user *model.User
	}{
		{name: "wrong password", user: &model.User{ID: uuid.New(), Email: "test@example.com", HashedPassword: string(hashedPassword)}},
		{name: "unknown user", user: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router, mockRepo, _ := setupUserTest()
			if tc.user == nil {
				mockRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(nil, nil)
			} else {
				mockRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(tc.user, nil)
			}

			resp := postJSON(router, "/login", handler.LoginRequest{Email: "test@example.com", Password: "wrong_password"})

			assert.Equal(t, http.StatusUnauthorized, resp.Code)
			var response map[string]string
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &response))
			assert.Equal(t, "Invalid credentials", response["error"])
		})
	}
}
