package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xxz807/betikbank/internal/ledger/domain"
	"github.com/xxz807/betikbank/internal/platform/auth"
)

const nationalIDLen = 11

// RegisterRequest 注册请求
type RegisterRequest struct {
	NationalID      string
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Password        string
	PasswordConfirm string
}

type IdentityService struct {
	db    *gorm.DB
	repos Repositories
	opts  Options
}

func NewIdentityService(db *gorm.DB, repos Repositories, opts Options) *IdentityService {
	return &IdentityService{db: db, repos: repos, opts: opts.withDefaults()}
}

// Register 创建用户，并在同一事务中开立首个活期账户 (余额为 0)
func (s *IdentityService) Register(ctx context.Context, req RegisterRequest) (_ *domain.Identity, err error) {
	start := time.Now()
	defer func() {
		finish(s.opts, "register", start, err, zap.String("email", req.Email))
	}()

	req = normalize(req)
	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var identity *domain.Identity
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.repos.Identities.ExistsByNationalID(ctx, tx, req.NationalID)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrNationalIDTaken
		}
		taken, err = s.repos.Identities.ExistsByEmail(ctx, tx, req.Email)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrEmailTaken
		}

		created := &domain.Identity{
			NationalID:   req.NationalID,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        req.Email,
			Phone:        req.Phone,
			PasswordHash: hash,
		}
		if err := s.repos.Identities.Create(ctx, tx, created); err != nil {
			return err
		}
		if _, err := openCheckingAccount(ctx, tx, s.repos, s.opts, created, decimal.Zero); err != nil {
			return err
		}
		identity = created
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// 并发注册绕过了上面的检查，由唯一索引兜底
		return nil, s.duplicateCause(ctx, req, err)
	}
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// duplicateCause 事务回滚后重新查询，判断是哪一个唯一字段冲突
func (s *IdentityService) duplicateCause(ctx context.Context, req RegisterRequest, cause error) error {
	if taken, err := s.repos.Identities.ExistsByNationalID(ctx, s.db, req.NationalID); err == nil && taken {
		return domain.ErrNationalIDTaken
	}
	if taken, err := s.repos.Identities.ExistsByEmail(ctx, s.db, req.Email); err == nil && taken {
		return domain.ErrEmailTaken
	}
	return cause
}

// Authenticate 校验身份证号与密码；两种失败对外不作区分
func (s *IdentityService) Authenticate(ctx context.Context, nationalID, password string) (*domain.Identity, error) {
	identity, err := s.repos.Identities.FindByNationalID(ctx, s.db, strings.TrimSpace(nationalID))
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(identity.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}
	return identity, nil
}

func (s *IdentityService) GetIdentity(ctx context.Context, id int64) (*domain.Identity, error) {
	return s.repos.Identities.FindByID(ctx, s.db, id)
}

func normalize(req RegisterRequest) RegisterRequest {
	req.NationalID = strings.TrimSpace(req.NationalID)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	return req
}

func validateRegistration(req RegisterRequest) error {
	if !isNationalID(req.NationalID) {
		return domain.ErrInvalidNationalID
	}
	required := []struct{ name, value string }{
		{"first_name", req.FirstName},
		{"last_name", req.LastName},
		{"email", req.Email},
		{"phone", req.Phone},
		{"password", req.Password},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%w: %s", domain.ErrMissingField, f.name)
		}
	}
	if req.Password != req.PasswordConfirm {
		return domain.ErrPasswordMismatch
	}
	return nil
}

// isNationalID 11 位 ASCII 数字
func isNationalID(s string) bool {
	if len(s) != nationalIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
