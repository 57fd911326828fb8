package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"github.com/dmitrijs2005/taskkeeper/internal/dbx"
	"github.com/dmitrijs2005/taskkeeper/internal/logging"
	"github.com/dmitrijs2005/taskkeeper/internal/server/auth"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
	"github.com/dmitrijs2005/taskkeeper/internal/server/password"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskkeeper/internal/server/validation"
)

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	Issue(c auth.Claims) (string, error)
}

// UserService handles sign-up and login.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      password.Hasher
	issuer      TokenIssuer
	log         logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, h password.Hasher, issuer TokenIssuer, log logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      h,
		issuer:      issuer,
		log:         log.With("component", "user_service"),
	}
}

// SignUp hashes the password and stores a new user. A taken username or
// email yields common.ErrDuplicateCredential.
func (s *UserService) SignUp(ctx context.Context, d validation.SignUpDraft) (u *models.User, err error) {
	ctx, span := startSpan(ctx, "UserService.SignUp")
	defer func() { endSpan(span, err) }()

	hash, err := s.hasher.Hash(d.Password())
	if err != nil {
		return nil, internal(ctx, s.log, "hash password", err)
	}

	user := &models.User{
		Name:         d.Name(),
		UserName:     d.UserName(),
		Email:        d.Email(),
		PasswordHash: hash,
	}

	u, err = s.repomanager.Users(s.db).Create(ctx, user)
	switch {
	case errors.Is(err, common.ErrDuplicateCredential):
		s.log.Info(ctx, "sign-up rejected: credential taken", "constraint", dbx.ConstraintName(err))
		return nil, common.ErrDuplicateCredential
	case err != nil:
		return nil, internal(ctx, s.log, "create user", err)
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Login returns a signed session token. Unknown email and wrong password
// are indistinguishable: both cost one bcrypt comparison and both yield
// common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, d validation.LoginDraft) (token string, err error) {
	ctx, span := startSpan(ctx, "UserService.Login")
	defer func() { endSpan(span, err) }()

	user, err := s.repomanager.Users(s.db).GetUserByEmail(ctx, d.Email())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.burnVerify(d.Password())
			return "", common.ErrorUnauthorized
		}
		return "", internal(ctx, s.log, "lookup user", err)
	}

	ok, err := s.hasher.Verify(d.Password(), user.PasswordHash)
	if err != nil {
		return "", internal(ctx, s.log, "verify password", err, "user_id", user.ID)
	}
	if !ok {
		return "", common.ErrorUnauthorized
	}

	token, err = s.issuer.Issue(auth.Claims{UserID: user.ID, UserName: user.UserName, Email: user.Email})
	if err != nil {
		return "", internal(ctx, s.log, "issue token", err, "user_id", user.ID)
	}
	return token, nil
}

func (s *UserService) burnVerify(candidate string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("taskkeeper-timing-equalizer")
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(candidate, s.dummyHash)
	}
}
