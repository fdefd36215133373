package controller

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/services"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type ContactsController struct {
	query   services.IQueryService
	timeout time.Duration
}

func NewContactsController(query services.IQueryService, timeout time.Duration) *ContactsController {
	return &ContactsController{query: query, timeout: timeout}
}

type saveContactRequest struct {
	Category    domain.Category      `json:"category" binding:"required"`
	DisplayName string               `json:"display_name"`
	OwnerID     string               `json:"owner_id"`
	OwnerName   string               `json:"owner_name"`
	Status      domain.ContactStatus `json:"status"`
}

type touchRequest struct {
	ContactID string `json:"contact_id" binding:"required"`
}

func (ctl *ContactsController) Internal() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.timeout)
		defer cancel()
		contacts, err := ctl.query.InternalContacts(ctx)
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, contacts)
	}
}

func (ctl *ContactsController) ByID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.timeout)
		defer cancel()
		contact, err := ctl.query.ContactByID(ctx, c.Param("id"))
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, contact)
	}
}

// Save handles PUT /contacts/:id, creating or replacing the profile.
func (ctl *ContactsController) Save() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request saveContactRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			abort(c, fmt.Errorf("%w: %v", errors.ErrValidation, err))
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.timeout)
		defer cancel()
		contact, err := ctl.query.SaveContact(ctx, domain.Contact{
			ID:          c.Param("id"),
			Category:    request.Category,
			DisplayName: request.DisplayName,
			OwnerID:     request.OwnerID,
			OwnerName:   request.OwnerName,
			Status:      request.Status,
		})
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, contact)
	}
}

// Touch handles POST /contacts/touch {"contact_id": "..."}.
func (ctl *ContactsController) Touch() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request touchRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			abort(c, errors.ErrContactIDRequired)
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.timeout)
		defer cancel()
		contact, err := ctl.query.TouchContact(ctx, request.ContactID)
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, contact)
	}
}
