package ports

import "context"

// Categorizer is the inbound contract for invoice item categorization.
type Categorizer interface {
	Categorize(ctx context.Context, description string) (string, error)
}
