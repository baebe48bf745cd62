package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/akvo/agriconnect-sub001/internal/shared/config"
	apperrors "github.com/akvo/agriconnect-sub001/internal/shared/errors"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

// CredentialSource supplies the bearer credential for authenticated calls.
type CredentialSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client talks to the remote ticket/message service. All reads and mutations
// go through here; the sync services only ever see DTOs and typed errors.
type Client struct {
	http           *resty.Client
	credentials    CredentialSource
	onUnauthorized func()
	log            logger.Interface
}

func NewClient(cfg *config.APIConfig, log logger.Interface) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout()).
		SetHeader("Accept", "application/json")

	return &Client{
		http: httpClient,
		log:  log.Named("api.client"),
	}
}

// SetCredentialSource wires the token provider. Set after construction
// because the refresher itself calls back into this client.
func (c *Client) SetCredentialSource(source CredentialSource) {
	c.credentials = source
}

// SetUnauthorizedHandler registers the collaborator invoked when the remote
// service rejects the session credential.
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.onUnauthorized = fn
}

// ListTickets fetches one page of tickets filtered by status.
func (c *Client) ListTickets(ctx context.Context, status string, page, size int) (*TicketPageDTO, error) {
	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	var result TicketPageDTO
	resp, err := req.
		SetQueryParams(map[string]string{
			"status": status,
			"page":   strconv.Itoa(page),
			"size":   strconv.Itoa(size),
		}).
		SetResult(&result).
		Get("/api/v1/tickets")
	if err != nil {
		return nil, c.transportError("list tickets", err)
	}
	if err := c.checkResponse(resp, "list tickets"); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListMessages fetches messages for a customer strictly before the cursor.
// A zero beforeTS means newest-first from the top.
func (c *Client) ListMessages(ctx context.Context, customerID uint, beforeTS int64, limit int) ([]MessageDTO, error) {
	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	req.SetQueryParam("limit", strconv.Itoa(limit))
	if beforeTS > 0 {
		req.SetQueryParam("before_ts", strconv.FormatInt(beforeTS, 10))
	}

	var result MessagePageDTO
	resp, err := req.
		SetResult(&result).
		Get(fmt.Sprintf("/api/v1/customers/%d/messages", customerID))
	if err != nil {
		return nil, c.transportError("list messages", err)
	}
	if err := c.checkResponse(resp, "list messages"); err != nil {
		return nil, err
	}
	return result.Messages, nil
}

// ResolveTicket marks the ticket resolved on the remote service and returns
// the updated representation.
func (c *Client) ResolveTicket(ctx context.Context, ticketID uint) (*TicketDTO, error) {
	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	var result TicketDTO
	resp, err := req.
		SetResult(&result).
		Post(fmt.Sprintf("/api/v1/tickets/%d/resolve", ticketID))
	if err != nil {
		return nil, c.transportError("resolve ticket", err)
	}
	if err := c.checkResponse(resp, "resolve ticket"); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateMessage sends an outgoing message through the remote service.
func (c *Client) CreateMessage(ctx context.Context, body CreateMessageRequest) (*MessageDTO, error) {
	if err := validate.Struct(body); err != nil {
		return nil, apperrors.NewValidationError("invalid message request", err.Error())
	}

	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	var result MessageDTO
	resp, err := req.
		SetBody(body).
		SetResult(&result).
		Post(fmt.Sprintf("/api/v1/tickets/%d/messages", body.TicketID))
	if err != nil {
		return nil, c.transportError("create message", err)
	}
	if err := c.checkResponse(resp, "create message"); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetProfile fetches the logged-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (*ProfileDTO, error) {
	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}
	return c.getProfile(req)
}

// GetProfileWithToken fetches the profile using an explicit credential. Used
// during session bootstrap, before the profile row the credential source
// reads from exists.
func (c *Client) GetProfileWithToken(ctx context.Context, token string) (*ProfileDTO, error) {
	return c.getProfile(c.http.R().SetContext(ctx).SetAuthToken(token))
}

func (c *Client) getProfile(req *resty.Request) (*ProfileDTO, error) {
	var result ProfileDTO
	resp, err := req.
		SetResult(&result).
		Get("/api/v1/users/me")
	if err != nil {
		return nil, c.transportError("get profile", err)
	}
	if err := c.checkResponse(resp, "get profile"); err != nil {
		return nil, err
	}
	return &result, nil
}

// RefreshToken exchanges the refresh credential for a fresh pair. The call
// is unauthenticated; a rejection here is terminal for the session.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenPairDTO, error) {
	var result TokenPairDTO
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"refresh_token": refreshToken}).
		SetResult(&result).
		Post("/api/v1/auth/refresh")
	if err != nil {
		return nil, c.transportError("refresh token", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		return nil, apperrors.NewUnauthorizedError("refresh credential rejected", c.errorDetail(resp))
	}
	if resp.IsError() {
		return nil, c.responseError(resp, "refresh token")
	}
	return &result, nil
}

func (c *Client) authorized(ctx context.Context) (*resty.Request, error) {
	if c.credentials == nil {
		return nil, apperrors.NewUnauthorizedError("no credential source configured")
	}
	token, err := c.credentials.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.http.R().SetContext(ctx).SetAuthToken(token), nil
}

func (c *Client) checkResponse(resp *resty.Response, op string) error {
	if resp.StatusCode() == http.StatusUnauthorized {
		c.log.Warnw("remote rejected session credential", "operation", op)
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return apperrors.NewUnauthorizedError("session credential rejected", c.errorDetail(resp))
	}
	if resp.IsError() {
		return c.responseError(resp, op)
	}
	return nil
}

func (c *Client) responseError(resp *resty.Response, op string) error {
	detail := c.errorDetail(resp)
	c.log.Warnw("remote call failed",
		"operation", op,
		"status_code", resp.StatusCode(),
		"detail", detail)

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return apperrors.NewNotFoundError(op+" failed", detail)
	case resp.StatusCode() >= 400 && resp.StatusCode() < 500:
		return apperrors.NewValidationError(op+" rejected", detail)
	default:
		return apperrors.NewSyncError(op+" failed", detail)
	}
}

func (c *Client) transportError(op string, err error) error {
	c.log.Warnw("remote service unreachable", "operation", op, "error", err)
	return apperrors.NewSyncError(op+" failed", "remote service unreachable").WithCause(err)
}

func (c *Client) errorDetail(resp *resty.Response) string {
	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return resp.Status()
}
