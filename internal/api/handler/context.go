package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/2pbal/account-billing/internal/api/middleware"
	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

// ctxAccount returns the account injected by the auth middleware. A missing
// value means the route was mounted without it; fail closed.
func ctxAccount(c echo.Context) (*domain.Account, error) {
	account, _ := c.Get(middleware.AccountKey).(*domain.Account)
	if account == nil {
		return nil, domain.ErrUnauthenticated
	}
	return account, nil
}

func ctxSession(c echo.Context) (*domain.Session, error) {
	session, _ := c.Get(middleware.SessionKey).(*domain.Session)
	if session == nil {
		return nil, domain.ErrUnauthenticated
	}
	return session, nil
}

// ctxActor pairs the signed-in account with the request origin for audited
// operations.
func ctxActor(c echo.Context) (ports.Actor, error) {
	account, err := ctxAccount(c)
	if err != nil {
		return ports.Actor{}, err
	}
	return ports.Actor{Account: account, Origin: middleware.Origin(c)}, nil
}
