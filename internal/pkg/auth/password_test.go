// internal/pkg/auth/password_test.go
package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/retail-pos-backend/internal/config"
	"github.com/your-org/retail-pos-backend/internal/pkg/auth"
)

func newPasswordManager() *auth.PasswordManager {
	return auth.NewPasswordManager(&config.Config{
		Security: config.SecurityConfig{BcryptCost: 4},
	})
}

func TestHashAndVerifyPassword(t *testing.T) {
	pm := newPasswordManager()

	hash, err := pm.HashPassword("Till7Drawer4")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.NoError(t, pm.VerifyPassword("Till7Drawer4", hash))
	assert.Error(t, pm.VerifyPassword("Till7Drawer5", hash))
}

func TestPasswordPolicyRejectsStoreVocabulary(t *testing.T) {
	pm := newPasswordManager()

	cases := map[string]string{
		"short":          "Ab1",
		"no uppercase":   "till7drawer4",
		"no number":      "TillDrawerX",
		"sequential run": "Drawer1234X",
		"repeated chars": "Draaawer74X",
		"store word":     "Cashier9x7K",
		"register word":  "MyRegister8",
	}
	for name, password := range cases {
		_, err := pm.HashPassword(password)
		assert.Error(t, err, name)
	}
}
