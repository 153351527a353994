package catalog

import (
	"context"
	"os"
	"testing"
)

// getTestDatabaseURL returns the test database URL, or "" when unset.
func getTestDatabaseURL() string {
	return os.Getenv("TEST_DATABASE_URL")
}

func newPostgresTestRepository(t *testing.T) Repository {
	t.Helper()

	url := getTestDatabaseURL()
	if url == "" {
		t.Skip("Skipping test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	repo, err := NewPostgresRepository(ctx, url)
	if err != nil {
		t.Skipf("Skipping test: database not available: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	// Clean up test data before each test
	if _, err := repo.pool.Exec(ctx, "DELETE FROM products WHERE user_id = $1 OR user_id = 'someone-else'", testUser); err != nil {
		t.Fatalf("failed to clean up products: %v", err)
	}
	if _, err := repo.pool.Exec(ctx, "DELETE FROM catalog_seeds WHERE user_id = $1", testUser); err != nil {
		t.Fatalf("failed to clean up seeds: %v", err)
	}
	return repo
}

func TestPostgresRepository_Contract(t *testing.T) {
	runRepositoryContract(t, newPostgresTestRepository)
}
