package orders

import (
	"context"
	"os"
	"testing"

	"meetix/db"
)

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	if os.Getenv("POSTGRES_URL") == "" {
		container, url := db.StartPostgresContainer()
		os.Setenv("POSTGRES_URL", url)
		defer container.Terminate(context.Background())
	}

	return m.Run()
}
