package store

import (
	"fmt"
	"strings"
)

// KeyBuilder centralizes every redis key shape the store uses.
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a key builder with a namespace prefix.
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{prefix: prefix}
}

// Wallets is the set of registered wallets.
func (k *KeyBuilder) Wallets() string {
	return fmt.Sprintf("%s:wallets", k.prefix)
}

// Attempts is the per-pair attempt list, newest first.
func (k *KeyBuilder) Attempts(wallet, achievementID string) string {
	return fmt.Sprintf("%s:attempts:%s:%s", k.prefix, strings.ToLower(wallet), achievementID)
}

// Passed is the per-pair pass record. Written once via SetNX.
func (k *KeyBuilder) Passed(wallet, achievementID string) string {
	return fmt.Sprintf("%s:passed:%s:%s", k.prefix, strings.ToLower(wallet), achievementID)
}
