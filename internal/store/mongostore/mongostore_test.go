package mongostore_test

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arzan03/LibraryHub/internal/db"
	"github.com/arzan03/LibraryHub/internal/store"
	"github.com/arzan03/LibraryHub/internal/store/mongostore"
	"github.com/arzan03/LibraryHub/internal/store/storetest"
)

var dbSeq atomic.Int64

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("LIBRARY_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("LIBRARY_TEST_MONGO_URI not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		client, err := db.ConnectMongo(ctx, uri, 10*time.Second)
		require.NoError(t, err)

		name := fmt.Sprintf("library_test_%d_%d", time.Now().UnixNano(), dbSeq.Add(1))
		s := mongostore.New(client, name)
		t.Cleanup(func() {
			_ = client.Database(name).Drop(context.Background())
			_ = s.Close()
		})
		require.NoError(t, s.Migrate(ctx))
		return s
	})
}
