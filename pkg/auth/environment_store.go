package auth

import (
	"os"
	"time"
)

// EnvironmentStore reads credentials from SNOOPER_* variables. It is read only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment account. An empty name matches it, as
// does the username from SNOOPER_USERNAME.
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	account := &Account{
		Name:         "env",
		Username:     os.Getenv("SNOOPER_USERNAME"),
		Password:     os.Getenv("SNOOPER_PASSWORD"),
		ClientID:     os.Getenv("SNOOPER_CLIENT_ID"),
		ClientSecret: os.Getenv("SNOOPER_CLIENT_SECRET"),
		UserAgent:    os.Getenv("SNOOPER_USER_AGENT"),
		LastModified: time.Now(),
	}

	if account.Validate() != nil {
		return nil, ErrCredentialsNotFound
	}
	if name != "" && name != account.Name && name != account.Username {
		return nil, ErrCredentialsNotFound
	}
	return account, nil
}

// List returns a single account if the environment is complete
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(name string) bool {
	_, err := e.Retrieve(name)
	return err == nil
}
