package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *TwilioClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewTwilioClient(config.TwilioConfig{SID: "AC1", Token: "tok", VerifySID: "VA1"})
	c.baseURL = srv.URL
	return c
}

func TestSendOTPPostsVerification(t *testing.T) {
	var gotPath, gotTo, gotUser string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotTo = r.PostForm.Get("To")
		gotUser, _, _ = r.BasicAuth()
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, c.SendOTP(context.Background(), "+919876543210"))
	assert.Equal(t, "/Services/VA1/Verifications", gotPath)
	assert.Equal(t, "+919876543210", gotTo)
	assert.Equal(t, "AC1", gotUser)
}

func TestSendOTPSurfacesErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bad"}`, http.StatusBadRequest)
	})
	assert.Error(t, c.SendOTP(context.Background(), "+919876543210"))
}

func TestVerifyOTP(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"approved", http.StatusOK, `{"status":"approved"}`, true},
		{"pending", http.StatusOK, `{"status":"pending"}`, false},
		{"expired", http.StatusNotFound, `{}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			ok, err := c.VerifyOTP(context.Background(), "+919876543210", "123456")
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}
