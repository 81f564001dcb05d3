// Package portal implements the login and redeem exchanges against the colonq portal.
//
// Login posts credentials to the first-factor endpoint and returns the session
// cookies the server set, serialized as a Cookie header value. Redeem replays such
// a value against the redemption endpoint.
package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/colonq/clonk/internal/client"
	"github.com/colonq/clonk/internal/client/config"
)

// DefaultInput is sent as the input field when the caller supplies none
const DefaultInput = "undefined"

// ErrNoCookies is returned when login completes without the server setting a session cookie
var ErrNoCookies = errors.New("failed to get cookies from response")

// StatusError reports a non-2xx response
type StatusError struct {
	Op         string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to %s: %s", e.Op, e.Status)
}

// LoginRequest is the first-factor request body
type LoginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	TargetURL string `json:"target_url"`
}

// RedeemRequest names the code to redeem and its auxiliary input
type RedeemRequest struct {
	Name  string
	Input string
}

// Portal talks to the authentication and redemption endpoints
type Portal struct {
	Endpoints config.Endpoints
	Timeout   time.Duration
	Logger    *logrus.Logger
}

// New creates a portal client for the given endpoints
func New(endpoints config.Endpoints, timeout time.Duration, logger *logrus.Logger) *Portal {
	return &Portal{
		Endpoints: endpoints,
		Timeout:   timeout,
		Logger:    logger,
	}
}

// Login exchanges a username and password for the session cookie string
func (p *Portal) Login(ctx context.Context, username, password string) (string, error) {
	c, err := client.NewClient(p.Timeout, p.Logger)
	if err != nil {
		return "", err
	}

	resp, err := c.PostJSON(ctx, p.Endpoints.FirstFactor, LoginRequest{
		Username:  username,
		Password:  password,
		TargetURL: p.Endpoints.Target,
	})
	if err != nil {
		return "", fmt.Errorf("failed to connect to authentication server: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if !isSuccess(resp.StatusCode) {
		return "", &StatusError{Op: "log in", StatusCode: resp.StatusCode, Status: resp.Status}
	}

	cookies := c.CookieHeader(resp.Request.URL)
	if cookies == "" {
		return "", ErrNoCookies
	}

	return cookies, nil
}

// Redeem submits a redemption using a previously captured cookie string
func (p *Portal) Redeem(ctx context.Context, cookies string, req RedeemRequest) error {
	c, err := client.NewClient(p.Timeout, p.Logger)
	if err != nil {
		return err
	}

	if err := c.SetCookieHeader(p.Endpoints.Cookie, cookies); err != nil {
		return err
	}

	resp, err := c.PostMultipart(ctx, p.Endpoints.Redeem, []client.FormField{
		{Name: "name", Value: req.Name},
		{Name: "input", Value: req.Input},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to redemption server: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if !isSuccess(resp.StatusCode) {
		return &StatusError{Op: "redeem", StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return nil
}

func isSuccess(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}
