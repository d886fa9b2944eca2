package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRequest_Validation(t *testing.T) {
	valid := RegisterRequest{
		FirstName:       "Alice",
		LastName:        "Smith",
		Email:           "alice@example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
	}

	tcases := []struct {
		name    string
		modify  func(r *RegisterRequest)
		wantMsg string
	}{
		{
			name:   "valid",
			modify: func(r *RegisterRequest) {},
		},
		{
			name:    "missing first name",
			modify:  func(r *RegisterRequest) { r.FirstName = "" },
			wantMsg: "please enter all fields",
		},
		{
			name: "missing field wins over mismatch",
			modify: func(r *RegisterRequest) {
				r.LastName = ""
				r.ConfirmPassword = "other123"
			},
			wantMsg: "please enter all fields",
		},
		{
			name:    "password mismatch",
			modify:  func(r *RegisterRequest) { r.ConfirmPassword = "password124" },
			wantMsg: "passwords do not match",
		},
		{
			name:    "bad email",
			modify:  func(r *RegisterRequest) { r.Email = "alice.example.com" },
			wantMsg: "invalid email format",
		},
		{
			name:    "email without tld",
			modify:  func(r *RegisterRequest) { r.Email = "alice@example" },
			wantMsg: "invalid email format",
		},
		{
			name: "short password",
			modify: func(r *RegisterRequest) {
				r.Password = "abc"
				r.ConfirmPassword = "abc"
			},
			wantMsg: "password must be at least 6 characters",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.modify(&req)

			err := validate.Struct(req)
			if tc.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.wantMsg, registerValidationMessage(err))
		})
	}
}

func TestCreateMessageRequest_Validation(t *testing.T) {
	assert.NoError(t, validate.Struct(CreateMessageRequest{Title: "t", TextContent: "c"}))
	assert.Error(t, validate.Struct(CreateMessageRequest{Title: "   ", TextContent: "c"}))
	assert.Error(t, validate.Struct(CreateMessageRequest{Title: "t", TextContent: "\n\t"}))
}

func TestFlexibleId_UnmarshalJSON(t *testing.T) {
	tcases := []struct {
		name    string
		input   string
		want    FlexibleId
		wantErr bool
	}{
		{name: "number", input: `{"userId": 7}`, want: 7},
		{name: "numeric string", input: `{"userId": "12"}`, want: 12},
		{name: "non numeric string", input: `{"userId": "abc"}`, wantErr: true},
		{name: "boolean", input: `{"userId": true}`, wantErr: true},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			var req JoinClubRequest
			err := json.Unmarshal([]byte(tc.input), &req)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, req.UserId)
			assert.Equal(t, tc.want, *req.UserId)
		})
	}

	t.Run("absent", func(t *testing.T) {
		var req JoinClubRequest
		require.NoError(t, json.Unmarshal([]byte(`{"passcode":"x"}`), &req))
		assert.Nil(t, req.UserId)
	})
}
