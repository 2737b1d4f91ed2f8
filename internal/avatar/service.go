// Package avatar turns an uploaded image into the user's 250x250 avatar.
package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/geocoder89/contacthub/internal/domain/user"
	"github.com/geocoder89/contacthub/internal/observability"
)

const Size = 250

var ErrDecode = errors.New("avatar image could not be decoded")

type UserUpdater interface {
	UpdateAvatar(ctx context.Context, id, avatarURL string) (user.User, error)
}

type Service struct {
	users UserUpdater
	store Store
	prom  *observability.Prom
	log   *slog.Logger
	now   func() time.Time
}

func NewService(users UserUpdater, store Store, prom *observability.Prom, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{users: users, store: store, prom: prom, log: log, now: time.Now}
}

// Update resizes the staged upload, stores it and records the new URL on
// the user. The staged file is removed on every path.
func (s *Service) Update(ctx context.Context, userID, stagedPath string) (url string, err error) {
	start := s.now()
	defer func() { s.prom.ObserveAvatar(start, err) }()

	defer func() {
		if rmErr := os.Remove(stagedPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.log.WarnContext(ctx, "avatar_staged_cleanup_failed", "path", stagedPath, "err", rmErr)
		}
	}()

	img, err := imaging.Open(stagedPath, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	resized := imaging.Fill(img, Size, Size, imaging.Center, imaging.Lanczos)

	format, ext := outputFormat(stagedPath)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return "", fmt.Errorf("encode avatar: %w", err)
	}

	name := fmt.Sprintf("%s_%d%s", userID, s.now().UnixNano(), ext)

	url, err = s.store.Put(ctx, name, &buf, int64(buf.Len()), contentType(format))
	if err != nil {
		return "", err
	}

	if _, err := s.users.UpdateAvatar(ctx, userID, url); err != nil {
		return "", fmt.Errorf("save avatar url: %w", err)
	}

	s.log.InfoContext(ctx, "avatar_updated", "user_id", userID, "url", url)
	return url, nil
}

// outputFormat keeps the upload's format when imaging can write it and
// falls back to JPEG.
func outputFormat(path string) (imaging.Format, string) {
	ext := strings.ToLower(filepath.Ext(path))

	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return imaging.JPEG, ".jpg"
	}
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	return format, ext
}

func contentType(f imaging.Format) string {
	switch f {
	case imaging.PNG:
		return "image/png"
	case imaging.GIF:
		return "image/gif"
	case imaging.BMP:
		return "image/bmp"
	case imaging.TIFF:
		return "image/tiff"
	default:
		return "image/jpeg"
	}
}
