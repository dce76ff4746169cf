package memory

import (
	"testing"

	"timetrack/internal/storage"
	"timetrack/internal/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}
