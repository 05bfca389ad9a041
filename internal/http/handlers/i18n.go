package handlers

import (
	"context"

	"server/internal/middleware"
)

// localized picks the French copy for fr requests and the English copy
// otherwise.
func localized(ctx context.Context, en, fr string) string {
	if middleware.LocaleFromContext(ctx) == "fr" {
		return fr
	}
	return en
}
