// Package web serves the server-rendered bucket list page and the
// sign-in pages in front of it.
package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/abduss/bucketlist/internal/auth"
	"github.com/abduss/bucketlist/internal/item"
	"github.com/abduss/bucketlist/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const claimsKey = "webClaims"

type authenticator interface {
	Register(ctx context.Context, input auth.RegisterInput) (auth.AuthResult, error)
	Login(ctx context.Context, input auth.LoginInput) (auth.AuthResult, error)
	Authenticate(ctx context.Context, token string) (auth.UserClaims, error)
	SignOut(ctx context.Context, claims auth.UserClaims) error
}

type itemService interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]item.Item, error)
	Create(ctx context.Context, ownerID uuid.UUID, input item.CreateInput) (item.Item, error)
	Delete(ctx context.Context, ownerID, itemID uuid.UUID) error
}

// Handler renders pages and handles their form posts.
type Handler struct {
	auth          authenticator
	items         itemService
	sessions      *Sessions
	validate      *validator.Validate
	secureCookies bool
}

// NewHandler wires the page handlers.
func NewHandler(authn authenticator, items itemService, secureCookies bool) *Handler {
	return &Handler{
		auth:          authn,
		items:         items,
		sessions:      NewSessions(items),
		validate:      validator.New(),
		secureCookies: secureCookies,
	}
}

// Sessions exposes the board registry.
func (h *Handler) Sessions() *Sessions {
	return h.sessions
}

// RegisterRoutes mounts the page routes. Everything except the sign-in
// pages sits behind the session gate.
func RegisterRoutes(router gin.IRouter, h *Handler) {
	router.GET("/login", h.loginPage)
	router.POST("/login", h.login)
	router.GET("/register", h.registerPage)
	router.POST("/register", h.register)

	gated := router.Group("/", h.Gate())
	gated.GET("/", h.index)
	gated.POST("/items", h.createItem)
	gated.POST("/items/:itemID/delete", h.deleteItem)
	gated.POST("/signout", h.signOut)
}

// Gate lets a request through only with a live session cookie and sends
// everybody else to the sign-in page.
func (h *Handler) Gate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.TokenFromRequest(c)
		claims, err := h.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if token != "" {
				auth.ClearSessionCookie(c, h.secureCookies)
			}
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}

		auth.SetUser(c, claims)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

type createForm struct {
	Title       string `form:"title" validate:"required"`
	Description string `form:"description" validate:"required"`
}

type loginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

type registerForm struct {
	Email       string `form:"email" validate:"required,email"`
	DisplayName string `form:"display_name" validate:"max=128"`
	Password    string `form:"password" validate:"required,min=8,max=72"`
}

type page struct {
	Title string
	Error string
	Email string
	Form  any
	Items []item.Item
}

func (h *Handler) index(c *gin.Context) {
	claims := mustClaims(c)
	// Every page load re-signs image URLs, so the snapshot is never older
	// than the media URL lifetime.
	board, loaded := h.sessions.Attach(c.Request.Context(), claims)
	if !loaded {
		h.refresh(c, board)
	}
	h.renderIndex(c, http.StatusOK, claims, board, createForm{}, "")
}

func (h *Handler) createItem(c *gin.Context) {
	claims := mustClaims(c)
	board, _ := h.sessions.Attach(c.Request.Context(), claims)
	log := logger.From(c)

	var form createForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderIndex(c, http.StatusBadRequest, claims, board, form, "Could not read the form.")
		return
	}
	form.Title = strings.TrimSpace(form.Title)
	form.Description = strings.TrimSpace(form.Description)
	if err := h.validate.Struct(form); err != nil {
		h.renderIndex(c, http.StatusBadRequest, claims, board, form, "Title and description are required.")
		return
	}

	input := item.CreateInput{Title: form.Title, Description: form.Description}
	upload, closer, err := item.FormUpload(c, "image")
	if err != nil {
		log.Warn("open image upload", zap.Error(err))
		h.renderIndex(c, http.StatusBadRequest, claims, board, form, "Could not read the image.")
		return
	}
	if closer != nil {
		defer closer.Close()
	}
	input.Image = upload

	if _, err := h.items.Create(c.Request.Context(), claims.UserID, input); err != nil {
		log.Error("create item from page", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, item.ErrImageTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.renderIndex(c, status, claims, board, form, "Could not add the item. Please try again.")
		return
	}

	h.refresh(c, board)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) deleteItem(c *gin.Context) {
	claims := mustClaims(c)
	board, _ := h.sessions.Attach(c.Request.Context(), claims)

	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		h.renderIndex(c, http.StatusBadRequest, claims, board, createForm{}, "Unknown item.")
		return
	}

	if err := h.items.Delete(c.Request.Context(), claims.UserID, itemID); err != nil {
		if errors.Is(err, item.ErrItemNotFound) {
			h.renderIndex(c, http.StatusNotFound, claims, board, createForm{}, "That item no longer exists.")
			return
		}
		logger.From(c).Error("delete item from page", zap.Stringer("item", itemID), zap.Error(err))
		h.renderIndex(c, http.StatusInternalServerError, claims, board, createForm{}, "Could not delete the item.")
		return
	}

	h.refresh(c, board)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) signOut(c *gin.Context) {
	claims := mustClaims(c)
	if err := h.auth.SignOut(c.Request.Context(), claims); err != nil {
		logger.From(c).Error("sign out", zap.Error(err))
	}
	h.sessions.Detach(claims.SessionID)
	auth.ClearSessionCookie(c, h.secureCookies)
	c.Redirect(http.StatusSeeOther, "/login")
}

func (h *Handler) loginPage(c *gin.Context) {
	if h.signedIn(c) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.HTML(http.StatusOK, "login.html", page{Title: "Sign in", Form: loginForm{}})
}

func (h *Handler) login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil || h.validate.Struct(form) != nil {
		form.Password = ""
		c.HTML(http.StatusBadRequest, "login.html", page{Title: "Sign in", Form: form, Error: "Enter your email and password."})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), auth.LoginInput{Email: form.Email, Password: form.Password})
	form.Password = ""
	if err != nil {
		status, msg := http.StatusUnauthorized, "Invalid email or password."
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			logger.From(c).Error("login", zap.Error(err))
			status, msg = http.StatusInternalServerError, "Sign in failed. Please try again."
		}
		c.HTML(status, "login.html", page{Title: "Sign in", Form: form, Error: msg})
		return
	}

	auth.SetSessionCookie(c, result.Tokens.AccessToken, result.Tokens.AccessTokenExpiry, h.secureCookies)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) registerPage(c *gin.Context) {
	if h.signedIn(c) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.HTML(http.StatusOK, "register.html", page{Title: "Register", Form: registerForm{}})
}

func (h *Handler) register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil || h.validate.Struct(form) != nil {
		form.Password = ""
		c.HTML(http.StatusBadRequest, "register.html", page{
			Title: "Register",
			Form:  form,
			Error: "Enter a valid email and a password of 8 to 72 characters.",
		})
		return
	}

	input := auth.RegisterInput{Email: form.Email, Password: form.Password}
	if name := strings.TrimSpace(form.DisplayName); name != "" {
		input.DisplayName = &name
	}
	result, err := h.auth.Register(c.Request.Context(), input)
	form.Password = ""
	if err != nil {
		status, msg := http.StatusInternalServerError, "Registration failed. Please try again."
		switch {
		case errors.Is(err, auth.ErrEmailAlreadyExists):
			status, msg = http.StatusConflict, "That email is already registered."
		case errors.Is(err, auth.ErrInvalidCredentials):
			status, msg = http.StatusBadRequest, "Enter a valid email and a password of 8 to 72 characters."
		default:
			logger.From(c).Error("register", zap.Error(err))
		}
		c.HTML(status, "register.html", page{Title: "Register", Form: form, Error: msg})
		return
	}

	auth.SetSessionCookie(c, result.Tokens.AccessToken, result.Tokens.AccessTokenExpiry, h.secureCookies)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) refresh(c *gin.Context, board *Board) {
	if err := board.Refresh(c.Request.Context(), h.items); err != nil {
		logger.From(c).Warn("refresh board, showing empty list", zap.Error(err))
	}
}

func (h *Handler) renderIndex(c *gin.Context, status int, claims auth.UserClaims, board *Board, form createForm, msg string) {
	if msg == "" && board.Err() != nil {
		msg = "Could not load your items."
	}
	c.HTML(status, "index.html", page{
		Title: "My Bucket List",
		Error: msg,
		Email: claims.Email,
		Form:  form,
		Items: board.Items(),
	})
}

func (h *Handler) signedIn(c *gin.Context) bool {
	token := auth.TokenFromRequest(c)
	if token == "" {
		return false
	}
	_, err := h.auth.Authenticate(c.Request.Context(), token)
	return err == nil
}

func mustClaims(c *gin.Context) auth.UserClaims {
	return c.MustGet(claimsKey).(auth.UserClaims)
}
