package sesinfra

import (
	"context"
	"fmt"
	"os"
)

// ObjectReader fetches a stored object body.
type ObjectReader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

// LoadTemplate reads a template body from object storage when objects is set,
// otherwise from the local file at path.
func LoadTemplate(ctx context.Context, objects ObjectReader, key, path string) (string, error) {
	if objects != nil {
		b, err := objects.Read(ctx, key)
		if err != nil {
			return "", fmt.Errorf("read template object %s: %w", key, err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template file: %w", err)
	}
	return string(b), nil
}
