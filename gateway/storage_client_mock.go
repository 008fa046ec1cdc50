package gateway

import (
	"context"
	"fmt"
	"sync"

	"meetix/entity"
)

// StorageMock keeps uploaded artifacts in memory.
type StorageMock struct {
	mock sync.Mutex

	Objects map[string][]byte
}

func (c *StorageMock) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	c.mock.Lock()
	defer c.mock.Unlock()

	if c.Objects == nil {
		c.Objects = make(map[string][]byte)
	}

	c.Objects[key] = body

	return "https://storage.local/" + key, nil
}

func (c *StorageMock) Keys() []string {
	c.mock.Lock()
	defer c.mock.Unlock()

	keys := make([]string, 0, len(c.Objects))
	for key := range c.Objects {
		keys = append(keys, key)
	}
	return keys
}

func (c *StorageMock) Download(ctx context.Context, key string) ([]byte, error) {
	c.mock.Lock()
	defer c.mock.Unlock()

	body, ok := c.Objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, entity.ErrNotFound)
	}

	return body, nil
}
