package dto

import (
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupRequestValidate(t *testing.T) {
	ok := SignupRequest{Username: "jane", Email: "jane@example.com", Password: "secret1"}
	assert.NoError(t, ok.Validate())

	bad := SignupRequest{Username: "", Email: "not-an-email", Password: "123"}
	err := bad.Validate()
	require.Error(t, err)
	fields, isFields := err.(validation.Errors)
	require.True(t, isFields)
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}

func TestSettingsUpdateRequestValidate(t *testing.T) {
	email := "new@example.com"
	assert.NoError(t, SettingsUpdateRequest{}.Validate())
	assert.NoError(t, SettingsUpdateRequest{Email: &email}.Validate())

	empty := ""
	assert.Error(t, SettingsUpdateRequest{Timezone: &empty}.Validate())
}

func TestSignupCodeCreateRequestValidate(t *testing.T) {
	assert.NoError(t, SignupCodeCreateRequest{Email: "a@example.com", Send: true}.Validate())
	assert.NoError(t, SignupCodeCreateRequest{Recipients: []string{"a@example.com"}, Send: true}.Validate())
	assert.Error(t, SignupCodeCreateRequest{Send: true}.Validate())
	assert.Error(t, SignupCodeCreateRequest{MaxUses: -1}.Validate())
	assert.Error(t, SignupCodeCreateRequest{Recipients: []string{"nope"}}.Validate())
}
