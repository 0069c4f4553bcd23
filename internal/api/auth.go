package api

import (
	"context"
	"net/http"

	"alphaboutique/internal/domain"
)

func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	if err := c.do(ctx, http.MethodPost, "auth_login", "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Signup(ctx context.Context, req domain.SignupRequest) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	if err := c.do(ctx, http.MethodPost, "auth_signup", "/auth/signup", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// STKPush asks the backend to prompt the phone for an M-Pesa payment
func (c *Client) STKPush(ctx context.Context, req domain.STKPushRequest) (*domain.StatusResponse, error) {
	var resp domain.StatusResponse
	if err := c.do(ctx, http.MethodPost, "auth_stkpush", "/auth/stkpush", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
