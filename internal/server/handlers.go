package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nhle/sim-admin/internal/model"
	"github.com/nhle/sim-admin/internal/store"
)

type createUserRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}

// createUser registers a trainee and announces the sign-up.
func (s *Server) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "valid email is required")
		return
	}

	ctx := c.Request.Context()
	user, err := s.store.CreateUser(ctx, model.User{
		Email: req.Email,
		Name:  req.Name,
		Role:  model.RoleTrainee,
	})
	if err != nil {
		log.Printf("server: %v", err)
		fail(c, http.StatusConflict, "user could not be created")
		return
	}

	s.announce(c, fmt.Sprintf("New user %s signed up", user.Email))
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": user})
}

// verifyUser marks a user's email verified and announces it.
func (s *Server) verifyUser(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	before, err := s.store.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		log.Printf("server: %v", err)
		fail(c, http.StatusInternalServerError, "failed to load user")
		return
	}

	user, err := s.store.MarkUserVerified(ctx, id)
	if err != nil {
		log.Printf("server: %v", err)
		fail(c, http.StatusInternalServerError, "failed to verify user")
		return
	}

	// Verifying twice does not announce twice.
	if !before.Verified {
		s.announce(c, fmt.Sprintf("User %s verified their email", user.Email))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// announce stores a broadcast notification and publishes the insert.
// Failures are logged; the user action itself has already succeeded.
func (s *Server) announce(c *gin.Context, message string) {
	n, err := s.store.CreateNotification(c.Request.Context(), model.Notification{Message: message})
	if err != nil {
		log.Printf("server: recording notification: %v", err)
		return
	}
	s.hub.PublishInsert(*n)
}

func (s *Server) listNotifications(c *gin.Context) {
	filter := store.NotificationFilter{
		UnreadOnly: c.Query("unread") == "true",
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			fail(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	notifications, err := s.store.GetNotifications(c.Request.Context(), filter)
	if err != nil {
		log.Printf("server: %v", err)
		fail(c, http.StatusInternalServerError, "failed to fetch notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notifications": notifications})
}

func (s *Server) markRead(c *gin.Context) {
	err := s.store.MarkNotificationRead(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		log.Printf("server: %v", err)
		fail(c, http.StatusInternalServerError, "failed to update notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) markAllRead(c *gin.Context) {
	updated, err := s.store.MarkAllNotificationsRead(c.Request.Context())
	if err != nil {
		log.Printf("server: %v", err)
		fail(c, http.StatusInternalServerError, "failed to update notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}
