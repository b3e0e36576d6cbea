package api

import (
	"context"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/pkg/validate"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	in := models.Credentials{Email: email, Password: password}
	if err := validate.Check(in); err != nil {
		return "", err
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.post("/api/auth/login").Body(in).JSON(ctx, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &Error{Method: "POST", Path: "/api/auth/login", Status: 200, Message: "response carried no token"}
	}
	return out.Token, nil
}

// Register creates a buyer or farmer account and returns the server's
// confirmation message.
func (c *Client) Register(ctx context.Context, in models.RegisterInput) (string, error) {
	if err := validate.Check(in); err != nil {
		return "", err
	}
	var out messageResponse
	if err := c.post("/api/auth/register").Body(in).JSON(ctx, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
