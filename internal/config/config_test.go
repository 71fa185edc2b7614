package config

import (
	"testing"

	"github.com/noteduco342/moim-backend/internal/testutil"
)

func TestFromEnvDefaults(t *testing.T) {
	h := testutil.NewTestHelper(t)
	h.SetupTestEnv()
	defer h.TeardownTestEnv()

	cfg, err := FromEnv()
	h.AssertError(err, false, "FromEnv")
	h.AssertEqual(cfg.Feed.PageSize, 10, "page size")
	h.AssertEqual(cfg.Feed.SearchCeiling, DefaultSearchCeiling, "search ceiling")
	h.AssertEqual(cfg.CascadeBatchSize, 300, "cascade batch")
	h.AssertEqual(cfg.Feed.GroupPageSize, DefaultGroupPageSize, "group page size")
	h.AssertEqual(cfg.Redis.Addr != "", true, "redis addr")
}

func TestFromEnvRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := FromEnv(); err == nil {
		t.Error("FromEnv without JWT_SECRET: expected error")
	}
}

func TestEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected int
	}{
		{"Unset", "", 10},
		{"Valid", "25", 25},
		{"Malformed", "ten", 10},
		{"Below minimum", "0", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_ENV_INT", tt.value)
			if got := envInt("TEST_ENV_INT", 10, 1); got != tt.expected {
				t.Errorf("envInt(%q) = %d, want %d", tt.value, got, tt.expected)
			}
		})
	}
}
