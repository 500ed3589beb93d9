package normalization

import (
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"utmlens/internal/utm"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(&Rule{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func TestCreateRule(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		name        string
		rule        *Rule
		wantErr     bool
		errContains string
	}{
		{
			name: "valid rule",
			rule: &Rule{Field: utm.FieldSource, MatchType: MatchExact, MatchValue: "fb", NormalizedValue: "facebook", Priority: 10, IsActive: true},
		},
		{
			name:        "invalid field",
			rule:        &Rule{Field: "utm_id", MatchType: MatchExact, MatchValue: "a", NormalizedValue: "b"},
			wantErr:     true,
			errContains: "invalid field",
		},
		{
			name:        "invalid match type",
			rule:        &Rule{Field: utm.FieldSource, MatchType: "fuzzy", MatchValue: "a", NormalizedValue: "b"},
			wantErr:     true,
			errContains: "invalid match type",
		},
		{
			name:        "missing match value",
			rule:        &Rule{Field: utm.FieldSource, MatchType: MatchExact, NormalizedValue: "b"},
			wantErr:     true,
			errContains: "match value is required",
		},
		{
			name:        "missing normalized value",
			rule:        &Rule{Field: utm.FieldSource, MatchType: MatchExact, MatchValue: "a"},
			wantErr:     true,
			errContains: "normalized value is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CreateRule(db, tt.rule)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.errContains)
				} else if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("expected error containing %q, got %q", tt.errContains, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.rule.ID == 0 {
				t.Error("expected rule ID to be set")
			}
			if tt.rule.CreatedAt.IsZero() {
				t.Error("expected CreatedAt to be set")
			}
		})
	}
}

func TestListActiveRulesOrdering(t *testing.T) {
	db := setupTestDB(t)

	seed := []*Rule{
		{Field: utm.FieldSource, MatchType: MatchExact, MatchValue: "a", NormalizedValue: "low", Priority: 1, IsActive: true},
		{Field: utm.FieldSource, MatchType: MatchExact, MatchValue: "b", NormalizedValue: "high-1", Priority: 10, IsActive: true},
		{Field: utm.FieldSource, MatchType: MatchExact, MatchValue: "c", NormalizedValue: "inactive", Priority: 50, IsActive: false},
		{Field: utm.FieldSource, MatchType: MatchExact, MatchValue: "d", NormalizedValue: "high-2", Priority: 10, IsActive: true},
	}
	for _, r := range seed {
		if err := CreateRule(db, r); err != nil {
			t.Fatalf("failed to create rule: %v", err)
		}
	}

	active, err := ListActiveRules(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []string
	for _, r := range active {
		got = append(got, r.NormalizedValue)
	}
	want := []string{"high-1", "high-2", "low"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	all, err := ListRules(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 rules, got %d", len(all))
	}
}

func TestUpdateAndDeleteRule(t *testing.T) {
	db := setupTestDB(t)

	rule := &Rule{Field: utm.FieldMedium, MatchType: MatchExact, MatchValue: "cpc", NormalizedValue: "paid", Priority: 10, IsActive: true}
	if err := CreateRule(db, rule); err != nil {
		t.Fatalf("failed to create rule: %v", err)
	}

	rule.IsActive = false
	rule.NormalizedValue = "paid_search"
	if err := UpdateRule(db, rule); err != nil {
		t.Fatalf("failed to update rule: %v", err)
	}

	updated, err := GetRuleByID(db, rule.ID)
	if err != nil {
		t.Fatalf("failed to get rule: %v", err)
	}
	if updated.IsActive {
		t.Error("expected rule to be inactive after update")
	}
	if updated.NormalizedValue != "paid_search" {
		t.Errorf("expected normalized value 'paid_search', got %q", updated.NormalizedValue)
	}

	missing := &Rule{ID: 9999, Field: utm.FieldMedium, MatchType: MatchExact, MatchValue: "x", NormalizedValue: "y"}
	if err := UpdateRule(db, missing); err != gorm.ErrRecordNotFound {
		t.Errorf("expected ErrRecordNotFound updating missing rule, got %v", err)
	}

	if err := DeleteRule(db, rule.ID); err != nil {
		t.Fatalf("failed to delete rule: %v", err)
	}
	if err := DeleteRule(db, rule.ID); err != gorm.ErrRecordNotFound {
		t.Errorf("expected ErrRecordNotFound deleting twice, got %v", err)
	}
	if _, err := GetRuleByID(db, rule.ID); err != gorm.ErrRecordNotFound {
		t.Errorf("expected ErrRecordNotFound after delete, got %v", err)
	}
}
