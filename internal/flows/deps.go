package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow.
type Deps struct {
	Login   LoginDeps
	Refresh RefreshDeps
	Logout  LogoutDeps
}

// TokenIssuer mints access and refresh tokens.
type TokenIssuer interface {
	IssueAccess(userID string) (string, time.Time, error)
	IssueRefresh(userID string) (string, time.Time, error)
}

// RefreshVerifier verifies a refresh token independent of store state.
type RefreshVerifier interface {
	VerifyRefresh(token string) (*jwt.Claims, error)
}

type SessionReader interface {
	Get(ctx context.Context, token string) (*session.Session, error)
}

type SessionInserter interface {
	Insert(ctx context.Context, token, ownerID string, expiresAt time.Time) (*session.Session, error)
}

type SessionDeleter interface {
	DeleteByToken(ctx context.Context, token string) error
}

type OwnerRevoker interface {
	DeleteAllByOwner(ctx context.Context, ownerID string) (int, error)
}

// ErrMissingDependency reports a Deps field the flows cannot run without.
var ErrMissingDependency = errors.New("flows: missing dependency")

// check lists every unset dependency rather than stopping at the first.
func (d Deps) check() error {
	required := []struct {
		name string
		set  bool
	}{
		{"Login.FindUser", d.Login.FindUser != nil},
		{"Login.VerifyCredential", d.Login.VerifyCredential != nil},
		{"Login.Sessions", d.Login.Sessions != nil},
		{"Refresh.Taker", d.Refresh.Taker != nil},
		{"Refresh.Verifier", d.Refresh.Verifier != nil},
		{"Refresh.Revoker", d.Refresh.Revoker != nil},
		{"Logout.Sessions", d.Logout.Sessions != nil},
		{"Logout.Revoker", d.Logout.Revoker != nil},
	}
	var errs []error
	for _, r := range required {
		if !r.set {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingDependency, r.name))
		}
	}
	for name, issue := range map[string]IssueDeps{"Login.Issue": d.Login.Issue, "Refresh.Issue": d.Refresh.Issue} {
		if issue.Tokens == nil || issue.Sessions == nil {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingDependency, name))
		}
	}
	return errors.Join(errs...)
}

// Service runs the session flows against one immutable set of Deps.
type Service struct {
	deps Deps
}

// New checks deps and returns a Service, or an error naming every missing
// dependency.
func New(deps Deps) (*Service, error) {
	if err := deps.check(); err != nil {
		return nil, err
	}
	return &Service{deps: deps}, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) LoginResult {
	return RunLogin(ctx, req, s.deps.Login)
}

func (s *Service) Refresh(ctx context.Context, token string) RefreshResult {
	return RunRefresh(ctx, token, s.deps.Refresh)
}

func (s *Service) Logout(ctx context.Context, token string) LogoutResult {
	return RunLogout(ctx, token, s.deps.Logout)
}

func (s *Service) LogoutAll(ctx context.Context, userID string) (int, error) {
	return RunLogoutAll(ctx, userID, s.deps.Logout)
}
