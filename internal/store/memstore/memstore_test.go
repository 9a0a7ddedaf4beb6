package memstore_test

import (
	"testing"

	"github.com/arzan03/LibraryHub/internal/store"
	"github.com/arzan03/LibraryHub/internal/store/memstore"
	"github.com/arzan03/LibraryHub/internal/store/storetest"
)

func TestMemStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return memstore.New()
	})
}
