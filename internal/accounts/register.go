package accounts

import (
	"context"
	"encoding/json"
	"strings"

	"gdrive/internal/logging"
	"gdrive/internal/services"
)

type serviceAccountKey struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// ParseServiceAccountKey extracts the email and private key from a Google
// service-account key file. Every missing field is named in the error.
func ParseServiceAccountKey(keyJSON []byte) (email, privateKey string, err error) {
	var key serviceAccountKey
	if err := json.Unmarshal(keyJSON, &key); err != nil {
		return "", "", services.Wrap(services.ErrValidation, "accounts", "parse_key", "key file is not valid JSON", err)
	}
	var missing []string
	if strings.TrimSpace(key.ClientEmail) == "" {
		missing = append(missing, "client_email")
	}
	if strings.TrimSpace(key.PrivateKey) == "" {
		missing = append(missing, "private_key")
	}
	if len(missing) > 0 {
		return "", "", services.Wrap(services.ErrValidation, "accounts", "parse_key", "key file is missing "+strings.Join(missing, " and "), nil)
	}
	return strings.TrimSpace(key.ClientEmail), key.PrivateKey, nil
}

// RegisterServiceAccount validates a service-account key by refreshing it
// once and stores the account under driveID. Nothing is stored when the
// key is malformed or the refresh fails.
func (s *Selector) RegisterServiceAccount(ctx context.Context, driveID, name string, keyJSON []byte) (Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Account{}, services.Wrap(services.ErrValidation, "accounts", "register", "account name is empty", nil)
	}
	email, privateKey, err := ParseServiceAccountKey(keyJSON)
	if err != nil {
		return Account{}, err
	}

	existing, err := s.store.Accounts(driveID)
	if err != nil {
		return Account{}, err
	}
	for _, account := range existing {
		if account.Name == name {
			return Account{}, services.Wrap(services.ErrDuplicateName, "accounts", "register", "account "+name+" already exists on drive "+driveID, nil)
		}
	}

	account := Account{
		Name:  name,
		Email: email,
		Key:   privateKey,
		Type:  TypeService,
	}
	expiry, err := s.refresh(ctx, account)
	if err != nil {
		return Account{}, err
	}
	account.Expiry = expiry.UTC()
	if err := s.store.Add(ctx, driveID, account); err != nil {
		return Account{}, err
	}
	s.logger.Info("service account registered",
		logging.String(logging.FieldDriveID, driveID),
		logging.String(logging.FieldAccount, name),
		logging.String("email", email))
	return account, nil
}
