package item

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/abduss/bucketlist/internal/auth"
	"github.com/abduss/bucketlist/internal/media"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterRoutes mounts item operations under the provided router group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.GET("/items", handler.listItems)
	group.POST("/items", handler.createItem)
	group.DELETE("/items/:itemID", handler.deleteItem)
	group.GET("/media/:filename/url", handler.imageURL)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) listItems(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	items, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list items"})
		return
	}
	if items == nil {
		items = []Item{}
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *httpHandler) createItem(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	input := CreateInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
	}

	upload, closer, err := FormUpload(c, "image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image"})
		return
	}
	if closer != nil {
		defer closer.Close()
	}
	input.Image = upload

	created, err := h.service.Create(c.Request.Context(), userID, input)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingField):
			c.JSON(http.StatusBadRequest, gin.H{"error": "title and description are required"})
		case errors.Is(err, ErrImageTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
		case errors.Is(err, media.ErrInvalidFilename):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image filename"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create item"})
		}
		return
	}

	c.JSON(http.StatusCreated, created)
}

// FormUpload opens the optional file field of a form post. A request without
// the field, or without a multipart body at all, yields a nil upload.
func FormUpload(c *gin.Context, field string) (*Upload, io.Closer, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read %s field: %w", field, err)
	}
	return OpenUpload(fileHeader)
}

func (h *httpHandler) deleteItem(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, itemID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete item"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *httpHandler) imageURL(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	url, expires, err := h.service.ResolveImageURL(c.Request.Context(), userID, c.Param("filename"))
	if err != nil {
		if errors.Is(err, media.ErrInvalidFilename) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filename"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve image url"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url, "expires_at": expires.UTC()})
}
