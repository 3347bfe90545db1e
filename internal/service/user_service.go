package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"regexp"
	"time"

	"skustack/internal/apperror"
	"skustack/internal/model"
	"skustack/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
)

// DTOs for request validation

type RegisterRequest struct {
	CompanyName string `json:"company_name" binding:"required"`
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
}

type UpdateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" binding:"omitempty,email"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// UserResponse returns account data without exposing the password hash.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// UserService covers account lifecycle and token issuance. Registration
// bootstraps a company and its first admin in one transaction.
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error)

	CreateUser(ctx context.Context, companyID uuid.UUID, req CreateUserRequest) (*UserResponse, error)
	GetUserByID(ctx context.Context, companyID uuid.UUID, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, companyID uuid.UUID, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, companyID uuid.UUID, id string, req UpdateUserRequest) (*UserResponse, error)
}

type userService struct {
	userRepo    repository.UserRepository
	companyRepo repository.CompanyRepository
	txManager   repository.TransactionManager
}

func NewUserService(userRepo repository.UserRepository, companyRepo repository.CompanyRepository, txManager repository.TransactionManager) UserService {
	return &userService{userRepo: userRepo, companyRepo: companyRepo, txManager: txManager}
}

func validateRole(role string) bool {
	return role == model.RoleAdmin || role == model.RoleManager || role == model.RoleStaff
}

var emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		CompanyID: user.CompanyID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_super_secret_key"
	}
	return []byte(secret)
}

func (s *userService) signAccessToken(user *model.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        user.ID.String(),
		"company_id": user.CompanyID.String(),
		"role":       user.Role,
		"exp":        time.Now().Add(accessTokenTTL).Unix(),
	})
	return token.SignedString(jwtSecret())
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	accessToken, err := s.signAccessToken(user)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	refreshToken := hex.EncodeToString(raw)

	if err := s.userRepo.SaveRefreshToken(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}); err != nil {
		return nil, err
	}

	return &TokenResponse{Token: accessToken, RefreshToken: refreshToken}, nil
}

func (s *userService) checkUnique(ctx context.Context, username, email string) error {
	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return apperror.Conflict("user", "username already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return apperror.Conflict("user", "email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func (s *userService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	if !emailRegex.MatchString(req.Email) {
		return nil, apperror.Validation("email", "invalid email format")
	}
	if err := s.checkUnique(ctx, req.Username, req.Email); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	var user *model.User
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		company := &model.Company{Name: req.CompanyName}
		if createErr := s.companyRepo.Create(txCtx, company); createErr != nil {
			return createErr
		}
		user = &model.User{
			CompanyID: company.ID,
			Username:  req.Username,
			Email:     req.Email,
			Password:  string(hashedPassword),
			Role:      model.RoleAdmin,
		}
		return s.userRepo.Create(txCtx, user)
	})
	if err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, errors.New("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}
	return s.issueTokens(ctx, user)
}

// Refresh rotates the refresh token: the presented one is consumed even
// when it has expired.
func (s *userService) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	stored, err := s.userRepo.GetRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}
	if deleteErr := s.userRepo.DeleteRefreshToken(ctx, stored.Token); deleteErr != nil {
		return nil, deleteErr
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, errors.New("refresh token expired")
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}
	return s.issueTokens(ctx, user)
}

func (s *userService) CreateUser(ctx context.Context, companyID uuid.UUID, req CreateUserRequest) (*UserResponse, error) {
	if !validateRole(req.Role) {
		return nil, apperror.Validation("role", "role must be admin, manager, or staff")
	}
	if !emailRegex.MatchString(req.Email) {
		return nil, apperror.Validation("email", "invalid email format")
	}
	if err := s.checkUnique(ctx, req.Username, req.Email); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &model.User{
		CompanyID: companyID,
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hashedPassword),
		Role:      req.Role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}

func (s *userService) findCompanyUser(ctx context.Context, companyID uuid.UUID, id string) (*model.User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid user id")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || user.CompanyID != companyID {
		return nil, apperror.NotFound("user", id)
	}
	return user, nil
}

func (s *userService) GetUserByID(ctx context.Context, companyID uuid.UUID, id string) (*UserResponse, error) {
	user, err := s.findCompanyUser(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, companyID uuid.UUID, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	users, total, err := s.userRepo.List(ctx, companyID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	var responses []UserResponse
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, companyID uuid.UUID, id string, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.findCompanyUser(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	if req.Role != "" {
		if !validateRole(req.Role) {
			return nil, apperror.Validation("role", "role must be admin, manager, or staff")
		}
		user.Role = req.Role
	}
	if req.Username != "" && req.Username != user.Username {
		if _, dupErr := s.userRepo.GetByUsername(ctx, req.Username); dupErr == nil {
			return nil, apperror.Conflict("user", "username already exists")
		} else if !errors.Is(dupErr, gorm.ErrRecordNotFound) {
			return nil, dupErr
		}
		user.Username = req.Username
	}
	if req.Email != "" && req.Email != user.Email {
		if _, dupErr := s.userRepo.GetByEmail(ctx, req.Email); dupErr == nil {
			return nil, apperror.Conflict("user", "email already exists")
		} else if !errors.Is(dupErr, gorm.ErrRecordNotFound) {
			return nil, dupErr
		}
		user.Email = req.Email
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}
