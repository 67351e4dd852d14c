package service

import (
	"github.com/dom/tps-identity/internal/identity"
	"github.com/dom/tps-identity/internal/metrics"
	"github.com/dom/tps-identity/internal/token"
	"go.uber.org/zap"
)

type Services struct {
	Auth  *AuthService
	Audit *Auditor
}

func NewServices(dir *identity.Directory, ledger *identity.Ledger, issuer *token.Issuer, audit *Auditor, rec metrics.Recorder, log *zap.Logger) *Services {
	return &Services{
		Auth:  NewAuthService(dir, ledger, issuer, audit, rec, log),
		Audit: audit,
	}
}
