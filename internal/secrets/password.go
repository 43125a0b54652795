package secrets

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// “Service” groups the engine's secrets in the OS keychain.
	KeyringService = "activitytracker"
)

var ErrNoPassword = errors.New("postgres password not found (set it in keychain or via ENGINE_POSTGRES_PASSWORD)")

func GetPostgresPassword(keyringAccount string) (string, error) {
	if pw := os.Getenv("ENGINE_POSTGRES_PASSWORD"); pw != "" {
		return pw, nil
	}
	if strings.TrimSpace(keyringAccount) != "" {
		pw, err := keyring.Get(KeyringService, keyringAccount)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
	}
	return "", ErrNoPassword
}

func SetPostgresPassword(keyringAccount string, password string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, password)
}

func DeletePostgresPassword(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}

// PostgresKeyringAccount derives the default account name from the URL's
// user and host.
func PostgresKeyringAccount(connURL string) string {
	u, err := url.Parse(connURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return fmt.Sprintf("activitytracker:postgres:%s@%s", u.User.Username(), u.Host)
}

// WithPostgresPassword fills in the password of connURL when it has none.
// A URL that already carries one is returned unchanged.
func WithPostgresPassword(connURL, keyringAccount string) (string, error) {
	u, err := url.Parse(connURL)
	if err != nil {
		return "", fmt.Errorf("parse postgres url: %w", err)
	}
	if u.User == nil {
		return connURL, nil
	}
	if _, has := u.User.Password(); has {
		return connURL, nil
	}
	if keyringAccount == "" {
		keyringAccount = PostgresKeyringAccount(connURL)
	}
	pw, err := GetPostgresPassword(keyringAccount)
	if err != nil {
		return "", err
	}
	u.User = url.UserPassword(u.User.Username(), pw)
	return u.String(), nil
}
