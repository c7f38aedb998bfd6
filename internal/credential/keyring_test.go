package credential

import "testing"

func TestAccessTokenPrefersEnvironment(t *testing.T) {
	t.Setenv(TokenEnv, "env-token")

	token, err := AccessToken()
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if token != "env-token" {
		t.Errorf("token = %q, want env-token", token)
	}
}
