package view

import (
	"fmt"
	"time"

	"geethika.lk/app/internal/shared/money"
)

// MoneyFromCents converts cents to a display string, e.g. 125000 LKR -> "Rs. 1,250.00".
func MoneyFromCents(cents int, currency string) string {
	if currency == "" || currency == money.Currency {
		return money.Format(cents)
	}
	return fmt.Sprintf("%s %.2f", currency, float64(cents)/100)
}

// Timestamp formats t for API payloads; zero and nil times render as "".
func Timestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func NewPagination(page, size int, total int64) Pagination {
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return Pagination{Page: page, PageSize: size, Total: total, TotalPages: pages}
}
