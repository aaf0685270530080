package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// secretBackend holds the API key.
type secretBackend interface {
	get(ctx context.Context) (string, bool, error)
	set(ctx context.Context, value string) error
	delete(ctx context.Context) error
	String() string
}

// keyringSecret keeps the key in the OS keychain.
type keyringSecret struct {
	service string
	user    string
}

func (k keyringSecret) get(context.Context) (string, bool, error) {
	v, err := keyring.Get(k.service, k.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read key from keychain: %w", err)
	}
	return v, true, nil
}

func (k keyringSecret) set(_ context.Context, value string) error {
	if err := keyring.Set(k.service, k.user, value); err != nil {
		return fmt.Errorf("write key to keychain: %w", err)
	}
	return nil
}

func (k keyringSecret) delete(context.Context) error {
	err := keyring.Delete(k.service, k.user)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete key from keychain: %w", err)
	}
	return nil
}

func (k keyringSecret) String() string { return "keychain" }

// kvSecret keeps the key in the state database next to the other fields.
type kvSecret struct {
	kv kvTable
}

func (s kvSecret) get(ctx context.Context) (string, bool, error) {
	return s.kv.get(ctx, FieldAPIKey)
}

func (s kvSecret) set(ctx context.Context, value string) error {
	return s.kv.set(ctx, FieldAPIKey, value)
}

func (s kvSecret) delete(ctx context.Context) error {
	return s.kv.delete(ctx, FieldAPIKey)
}

func (s kvSecret) String() string { return "state file" }
