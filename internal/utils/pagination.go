package utils

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	// MaxOffset bounds (page-1)*limit so the offset stays a sane positive
	// number for every store.
	MaxOffset = math.MaxInt32
)

var (
	ErrInvalidPageParam = errors.New("page and limit must be integers")
	ErrPageOutOfRange   = errors.New("page is out of range")
)

type PageParams struct {
	Page  int
	Limit int
}

func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePageParams reads raw page/limit query values. Empty values take the
// defaults, non-numeric values are rejected, non-positive values clamp to 1
// and limit is capped at MaxLimit. A page whose offset would pass MaxOffset
// is rejected with ErrPageOutOfRange.
func ParsePageParams(rawPage, rawLimit string) (PageParams, error) {
	page, err := parsePositive(rawPage, DefaultPage)
	if err != nil {
		return PageParams{}, err
	}

	limit, err := parsePositive(rawLimit, DefaultLimit)
	if err != nil {
		return PageParams{}, err
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	if page-1 > MaxOffset/limit {
		return PageParams{}, ErrPageOutOfRange
	}

	return PageParams{Page: page, Limit: limit}, nil
}

func parsePositive(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ErrInvalidPageParam
	}
	if n < 1 {
		n = 1
	}
	return n, nil
}

// TotalPages is ceil(total/limit); zero items means zero pages.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
