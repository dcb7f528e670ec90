package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/yourname/inkjournal/internal"
)

// RemoteAuthProvider asks an external auth service who owns a token.
type RemoteAuthProvider struct {
	url    string
	client *resty.Client
	logger internal.Logger
}

func NewRemoteAuthProvider(url string, logger internal.Logger) *RemoteAuthProvider {
	c := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(5 * time.Second)
	return &RemoteAuthProvider{url: url, client: c, logger: logger}
}

func (a *RemoteAuthProvider) Resolve(ctx context.Context, token string) (Identity, error) {
	var user internal.User
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"token": token}).
		SetResult(&user).
		Post(a.url)
	if err != nil {
		a.logger.Errorf("failed to call auth service: %v", err)
		return Anonymous(), err
	}
	if resp.StatusCode() != http.StatusOK {
		a.logger.Warnf("auth service returned %d", resp.StatusCode())
		return Anonymous(), fmt.Errorf("%w: auth service returned %d", ErrInvalidToken, resp.StatusCode())
	}
	if user.ID == "" {
		return Anonymous(), fmt.Errorf("%w: auth service returned no user id", ErrInvalidToken)
	}
	return Identified(user.ID), nil
}

var _ Provider = (*RemoteAuthProvider)(nil)
