package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "secret1", false},
		{"Exactly Min Length", "abcdef", false},
		{"Exactly Max Length", strings.Repeat("a", 72), false},
		{"Too Short", "abc", true},
		{"Too Long", strings.Repeat("a", 73), true},
		{"Multibyte Over Byte Limit", strings.Repeat("語", 25), true},
		{"Empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword_LimitIsInBytes(t *testing.T) {
	t.Parallel()
	err := ValidatePassword(strings.Repeat("é", 37))
	require.Error(t, err)
	assert.Equal(t, "password must not exceed 72 bytes", err.Error())
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "test_user123", false},
		{"Too Short", "tu", true},
		{"Too Long", strings.Repeat("a", 31), true},
		{"Illegal Chars", "user@123", true},
		{"Starts Dash", "-user", true},
		{"Ends Underscore", "user_", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateEmail("writer@example.com"))
	assert.Error(t, ValidateEmail("writer@example"))
	assert.Error(t, ValidateEmail("no-at-sign.com"))
	assert.Error(t, ValidateEmail(strings.Repeat("a", 250)+"@example.com"))
}

func TestParseBirthday(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	day, err := ParseBirthday(" 1990-04-12 ", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC), day)

	_, err = ParseBirthday("12/04/1990", now)
	assert.Error(t, err)

	_, err = ParseBirthday("2030-01-01", now)
	assert.Error(t, err)
}

type signup struct {
	Username string `json:"username" validate:"required,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Gender   string `json:"gender" validate:"required,oneof=male female other"`
}

func TestStruct(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Struct(signup{Username: "ann", Email: "ann@example.com", Gender: "other"}))

	err := Struct(signup{Email: "ann@example.com", Gender: "other"})
	require.Error(t, err)
	assert.Equal(t, "username is required", err.Error())

	err = Struct(signup{Username: "ann", Email: "nope", Gender: "other"})
	require.Error(t, err)
	assert.Equal(t, "invalid email format", err.Error())

	err = Struct(signup{Username: "ann", Email: "ann@example.com", Gender: "robot"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gender must be one of")
}
