package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/geocoder89/contacthub/internal/domain/user"
	"github.com/geocoder89/contacthub/internal/http/middlewares"
	"github.com/geocoder89/contacthub/internal/observability"
	"github.com/geocoder89/contacthub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	SetToken(ctx context.Context, id string, token *string) error
	UpdateSubscription(ctx context.Context, id string, sub user.Subscription) (user.User, error)
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type VerificationService interface {
	Send(ctx context.Context, u user.User) error
	Resend(ctx context.Context, email string) error
	Confirm(ctx context.Context, token string) (user.User, error)
}

type AvatarUpdater interface {
	Update(ctx context.Context, userID, stagedPath string) (string, error)
}

type UsersHandlerConfig struct {
	RequireVerified bool
	UploadTmpDir    string
}

type UsersHandler struct {
	users        UserStore
	tokens       TokenIssuer
	verification VerificationService
	avatars      AvatarUpdater
	prom         *observability.Prom
	log          *slog.Logger
	cfg          UsersHandlerConfig
}

func NewUsersHandler(
	users UserStore,
	tokens TokenIssuer,
	verification VerificationService,
	avatars AvatarUpdater,
	prom *observability.Prom,
	log *slog.Logger,
	cfg UsersHandlerConfig,
) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}
	if cfg.UploadTmpDir == "" {
		cfg.UploadTmpDir = os.TempDir()
	}

	return &UsersHandler{
		users:        users,
		tokens:       tokens,
		verification: verification,
		avatars:      avatars,
		prom:         prom,
		log:          log,
		cfg:          cfg,
	}
}

func (h *UsersHandler) SignUp(ctx *gin.Context) {
	var req user.SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, slowTimeout)
	defer cancel()

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.users.Create(cctx, user.New(req.Email, hash))
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email in use")
			return
		}

		h.log.ErrorContext(cctx, "signup_failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	// the account exists either way; the mail can be re-requested
	if err := h.verification.Send(cctx, u); err != nil {
		h.log.WarnContext(cctx, "verification_dispatch_failed", "user_id", u.ID, "err", err)
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": u.Profile()})
}

func (h *UsersHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, slowTimeout)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, user.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			h.prom.LoginResult("bad_credentials")
			RespondUnAuthorized(ctx, "Email or password is wrong")
			return
		}

		h.prom.LoginResult("error")
		h.log.ErrorContext(cctx, "login_lookup_failed", "err", err)
		RespondInternal(ctx, "Could not log in")
		return
	}

	if !security.CheckPassword(u.PasswordHash, req.Password) {
		h.prom.LoginResult("bad_credentials")
		RespondUnAuthorized(ctx, "Email or password is wrong")
		return
	}

	if h.cfg.RequireVerified && !u.Verify {
		h.prom.LoginResult("unverified")
		RespondUnAuthorized(ctx, "Email not verified")
		return
	}

	token, err := h.tokens.Issue(u.ID)
	if err != nil {
		h.prom.LoginResult("error")
		RespondInternal(ctx, "Could not generate token")
		return
	}

	// one stored session per user: a concurrent login wins by last write
	if err := h.users.SetToken(cctx, u.ID, &token); err != nil {
		h.prom.LoginResult("error")
		h.log.ErrorContext(cctx, "login_store_token_failed", "user_id", u.ID, "err", err)
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.prom.LoginResult("ok")

	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"email":        u.Email,
			"subscription": u.Subscription,
		},
	})
}

func (h *UsersHandler) Logout(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "Not authorized")
		return
	}

	cctx, cancel := requestContext(ctx, storeTimeout)
	defer cancel()

	if err := h.users.SetToken(cctx, userID, nil); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnAuthorized(ctx, "Not authorized")
			return
		}
		RespondInternal(ctx, "Could not log out")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *UsersHandler) Current(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "Not authorized")
		return
	}

	ctx.JSON(http.StatusOK, u.Profile())
}

func (h *UsersHandler) UpdateSubscription(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "Not authorized")
		return
	}

	var req user.UpdateSubscriptionRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, storeTimeout)
	defer cancel()

	u, err := h.users.UpdateSubscription(cctx, userID, req.Subscription)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not update subscription")
		return
	}

	ctx.JSON(http.StatusOK, u.Profile())
}

func (h *UsersHandler) UpdateAvatar(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "Not authorized")
		return
	}

	file, err := ctx.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Avatar file too large", nil)
			return
		}
		RespondBadRequest(ctx, "Avatar file is required", gin.H{"field": "avatar"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	staged := filepath.Join(h.cfg.UploadTmpDir, uuid.NewString()+ext)

	if err := ctx.SaveUploadedFile(file, staged); err != nil {
		_ = os.Remove(staged)
		h.log.ErrorContext(ctx.Request.Context(), "avatar_stage_failed", "user_id", userID, "err", err)
		RespondInternal(ctx, "Could not update avatar")
		return
	}

	cctx, cancel := requestContext(ctx, slowTimeout)
	defer cancel()

	// Update removes the staged file on every path
	url, err := h.avatars.Update(cctx, userID, staged)
	if err != nil {
		h.log.ErrorContext(cctx, "avatar_update_failed", "user_id", userID, "err", err)
		RespondInternal(ctx, "Could not update avatar")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"avatarURL": url})
}

func (h *UsersHandler) VerifyEmail(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, storeTimeout)
	defer cancel()

	if _, err := h.verification.Confirm(cctx, ctx.Param("token")); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not verify email")
		return
	}

	RespondMessage(ctx, http.StatusOK, "Verification successful")
}

func (h *UsersHandler) ResendVerification(ctx *gin.Context) {
	var req user.ResendVerificationRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, storeTimeout)
	defer cancel()

	if err := h.verification.Resend(cctx, req.Email); err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrAlreadyVerified):
			RespondBadRequest(ctx, "Verification has already been passed", nil)
		default:
			h.log.ErrorContext(cctx, "verification_resend_failed", "err", err)
			RespondInternal(ctx, "Could not send verification email")
		}
		return
	}

	RespondMessage(ctx, http.StatusOK, "Verification email sent")
}
