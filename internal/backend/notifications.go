package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nhle/sim-admin/internal/model"
)

const notificationsPath = "/api/admin/notifications"

// ListResponse is the body of the notification read endpoint.
type ListResponse struct {
	Success       bool                 `json:"success"`
	Notifications []model.Notification `json:"notifications"`
	Error         string               `json:"error,omitempty"`
}

// StatusResponse is the body of the mark-read endpoints.
type StatusResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ListNotifications fetches the current notification snapshot, most
// recent first.
func (c *Client) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	var resp ListResponse
	if err := c.Get(ctx, notificationsPath, &resp); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("listing notifications: %w: %s", ErrUnsuccessful, resp.Error)
	}
	return resp.Notifications, nil
}

// MarkRead marks a single notification as read.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	var resp StatusResponse
	path := notificationsPath + "/" + url.PathEscape(id) + "/read"
	if err := c.Patch(ctx, path, nil, &resp); err != nil {
		return fmt.Errorf("marking notification %s read: %w", id, err)
	}
	if !resp.Success {
		return fmt.Errorf("marking notification %s read: %w: %s", id, ErrUnsuccessful, resp.Error)
	}
	return nil
}

// MarkAllRead marks every notification as read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	var resp StatusResponse
	if err := c.Patch(ctx, notificationsPath+"/read-all", nil, &resp); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("marking all notifications read: %w: %s", ErrUnsuccessful, resp.Error)
	}
	return nil
}
