package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/geocoder89/contacthub/internal/domain/contact"
	"github.com/gin-gonic/gin"
)

// RespondContact writes c with a weak ETag and answers 304 when the client
// already holds the same version.
func RespondContact(ctx *gin.Context, c contact.Contact) {
	tag := contactETag(c)
	ctx.Header("ETag", tag)

	if etagMatches(ctx.GetHeader("If-None-Match"), tag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(http.StatusOK, c)
}

// contactETag versions a contact by its last write. The editable fields are
// folded in so two writes landing on the same clock tick still differ.
func contactETag(c contact.Contact) string {
	h := sha256.New()
	for _, part := range []string{
		c.ID,
		strconv.FormatInt(c.UpdatedAt.UnixNano(), 10),
		c.Name,
		c.Email,
		c.Phone,
		strconv.FormatBool(c.Favorite),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}

	return `W/"` + hex.EncodeToString(h.Sum(nil)[:16]) + `"`
}

// etagMatches applies weak comparison, so W/"x" and "x" are the same tag.
func etagMatches(header, current string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}

	want := opaqueTag(current)
	for _, part := range strings.Split(header, ",") {
		if opaqueTag(part) == want {
			return true
		}
	}
	return false
}

func opaqueTag(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "W/")
}
