package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestValidationIsFieldScoped(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("create recipe: %w", Validation("ingredients", "ingredient %d not found", 9))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation kind, got %v", err)
	}
	field, ok := Field(err)
	if !ok || field != "ingredients" {
		t.Fatalf("Field() = %q, %t", field, ok)
	}
	if got := Message(err); got != "ingredient 9 not found" {
		t.Fatalf("Message() = %q", got)
	}
}

func TestKindErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		kind error
	}{
		{"conflict", Conflict("favorite already exists"), ErrConflict},
		{"not found", NotFound("recipe %d not found", 3), ErrNotFound},
		{"forbidden", Forbidden("only the author may edit"), ErrForbidden},
		{"invalid", Invalid("shopping cart is empty"), ErrValidation},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if !errors.Is(tt.err, tt.kind) {
				t.Fatalf("expected %v to match %v", tt.err, tt.kind)
			}
			if _, ok := Field(tt.err); ok {
				t.Fatal("kind errors are not field scoped")
			}
		})
	}
}

func TestIsDuplicateKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"postgres", &pgconn.PgError{Code: "23505"}, true},
		{"postgres fk", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite message", errors.New("UNIQUE constraint failed: favorites.user_id, favorites.recipe_id"), true},
		{"other", errors.New("connection refused"), false},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsDuplicateKey(tt.err); got != tt.want {
				t.Fatalf("IsDuplicateKey(%v) = %t, want %t", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", fmt.Errorf("insert lines: %w", gorm.ErrForeignKeyViolated), true},
		{"postgres", &pgconn.PgError{Code: "23503"}, true},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, false},
		{"sqlite message", errors.New("FOREIGN KEY constraint failed"), true},
		{"duplicate", gorm.ErrDuplicatedKey, false},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsForeignKeyViolation(tt.err); got != tt.want {
				t.Fatalf("IsForeignKeyViolation(%v) = %t, want %t", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	if !IsNotFound(gorm.ErrRecordNotFound) {
		t.Fatal("expected gorm not found to match")
	}
	if !IsNotFound(NotFound("missing")) {
		t.Fatal("expected domain not found to match")
	}
	if IsNotFound(Conflict("dup")) {
		t.Fatal("conflict must not match not found")
	}
}
