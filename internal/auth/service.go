// Package auth exchanges rep credentials for a local access token. The
// actual credential check happens upstream; this service only parks the
// opaque upstream token in a session and mints the JWT that references it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/hondusoft/fieldsales-backend/pkg/auth"
	"github.com/hondusoft/fieldsales-backend/pkg/config"
	pkgerrors "github.com/hondusoft/fieldsales-backend/pkg/errors"
	"github.com/hondusoft/fieldsales-backend/pkg/sap"
)

type upstream interface {
	Login(ctx context.Context, req sap.LoginRequest) (*sap.LoginResponse, error)
}

type sessionWriter interface {
	Store(ctx context.Context, sessionID, upstreamToken string) error
	Revoke(ctx context.Context, sessionID string) error
}

// LoginResult carries the minted token plus the rep identity for display.
type LoginResult struct {
	AccessToken  string
	SalesRepCode string
	FullName     string
	ExpiresAt    time.Time
}

// Service handles login and logout.
type Service interface {
	Login(ctx context.Context, userName, password string) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
}

type service struct {
	upstream upstream
	sessions sessionWriter
	jwt      config.JWTConfig
}

// NewService builds the auth service.
func NewService(up upstream, sessions sessionWriter, jwt config.JWTConfig) (Service, error) {
	if up == nil {
		return nil, fmt.Errorf("upstream client required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	return &service{
		upstream: up,
		sessions: sessions,
		jwt:      jwt,
	}, nil
}

// Login proxies the credentials upstream, stores the upstream token under a
// fresh session, and mints the local access token.
func (s *service) Login(ctx context.Context, userName, password string) (*LoginResult, error) {
	if strings.TrimSpace(userName) == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user name and password are required")
	}

	resp, err := s.upstream.Login(ctx, sap.LoginRequest{UserName: userName, Password: password})
	if err != nil {
		var apiErr *sap.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "login upstream")
	}
	if resp.Token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "upstream returned no token")
	}

	sessionID := uuid.NewString()
	if err := s.sessions.Store(ctx, sessionID, resp.Token); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session")
	}

	now := time.Now()
	salesRepCode := strconv.Itoa(resp.SalesPersonCode)
	token, err := pkgauth.MintAccessToken(s.jwt, now, pkgauth.AccessTokenPayload{
		SalesRepCode: salesRepCode,
		FullName:     resp.FullName,
		SessionID:    sessionID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &LoginResult{
		AccessToken:  token,
		SalesRepCode: salesRepCode,
		FullName:     resp.FullName,
		ExpiresAt:    now.Add(s.jwt.SessionTTL()),
	}, nil
}

// Logout revokes the session; the JWT becomes useless once its session is
// gone.
func (s *service) Logout(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}
