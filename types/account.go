package types

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"time"
)

// KeyID identifies a public key inside authority structures. It is the raw
// compressed secp256k1 public key (33 bytes) stored as a string so it can be
// used directly as a map key.
type KeyID string

// KeyIDFromBytes converts raw compressed public key bytes to a KeyID
func KeyIDFromBytes(pubKey []byte) KeyID {
	return KeyID(pubKey)
}

// Bytes returns the raw compressed public key bytes
func (k KeyID) Bytes() []byte {
	return []byte(k)
}

// String returns the hex representation, for logs and error messages
func (k KeyID) String() string {
	return hex.EncodeToString([]byte(k))
}

// IsValid checks that the key has the compressed secp256k1 form
// (33 bytes, 0x02 or 0x03 prefix)
func (k KeyID) IsValid() bool {
	return len(k) == 33 && (k[0] == 0x02 || k[0] == 0x03)
}

// MarshalText renders the key as hex. Raw compressed key bytes are not
// valid UTF-8, and encoding/json substitutes U+FFFD for invalid bytes in
// strings and map keys; the text form keeps key entries byte-exact on
// the JSON round-trip.
func (k KeyID) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString([]byte(k))), nil
}

// UnmarshalText parses the hex form back into raw key bytes
func (k *KeyID) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("%w: key id %q is not hex: %v", ErrMalformedAuthority, text, err)
	}
	*k = KeyID(raw)
	return nil
}

// AccountName is a human-readable account identifier
type AccountName string

// String converts AccountName to string
func (a AccountName) String() string {
	return string(a)
}

var accountNameRE = regexp.MustCompile(`^[a-z][a-z0-9.-]*$`)

// IsValid checks if the account name is valid
func (a AccountName) IsValid() bool {
	if len(a) == 0 || len(a) > 63 {
		return false
	}
	return accountNameRE.MatchString(string(a))
}

// AuthorityLevel selects which of an account's authorities an operation
// must prove. Most operations require the active authority; account
// recovery style operations demand owner.
type AuthorityLevel uint8

const (
	LevelActive AuthorityLevel = iota
	LevelOwner
)

// String returns the level name
func (l AuthorityLevel) String() string {
	switch l {
	case LevelActive:
		return "active"
	case LevelOwner:
		return "owner"
	default:
		return fmt.Sprintf("level(%d)", uint8(l))
	}
}

// Account is a registered account with its two permission tiers.
//
// INVARIANT: Owner and Active are independently valid authorities. Owner
// gates authority changes themselves; Active gates everything else.
type Account struct {
	// Name is the human-readable account identifier
	Name AccountName `json:"name"`

	// Owner is the top-tier authority; it can replace both authorities
	Owner Authority `json:"owner"`

	// Active is the everyday authority
	Active Authority `json:"active"`

	// Registrar is the account that registered this one
	Registrar AccountName `json:"registrar,omitempty"`

	// CreatedAt is when the account was registered
	CreatedAt time.Time `json:"created_at"`
}

// NewAccount creates an account whose owner and active authorities are each
// a single key with threshold 1, the shape produced by account registration.
func NewAccount(name AccountName, ownerKey, activeKey KeyID, registrar AccountName) *Account {
	return &Account{
		Name:      name,
		Owner:     NewKeyAuthority(ownerKey, 1),
		Active:    NewKeyAuthority(activeKey, 1),
		Registrar: registrar,
		CreatedAt: time.Now().UTC(),
	}
}

// ValidateBasic performs basic validation
func (a *Account) ValidateBasic() error {
	if a == nil {
		return fmt.Errorf("%w: account is nil", ErrInvalidAccount)
	}
	if !a.Name.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidAccount, a.Name)
	}
	if err := a.Owner.ValidateBasic(); err != nil {
		return fmt.Errorf("owner authority of %s: %w", a.Name, err)
	}
	if err := a.Active.ValidateBasic(); err != nil {
		return fmt.Errorf("active authority of %s: %w", a.Name, err)
	}
	return nil
}

// AuthorityAt returns the authority for the requested level
func (a *Account) AuthorityAt(level AuthorityLevel) Authority {
	if level == LevelOwner {
		return a.Owner
	}
	return a.Active
}

// DirectKeys returns every key listed directly by either authority,
// deduplicated. Used to maintain the key-reference reverse index.
func (a *Account) DirectKeys() []KeyID {
	seen := make(map[KeyID]bool)
	var keys []KeyID
	for _, auth := range []Authority{a.Owner, a.Active} {
		for key := range auth.KeyWeights {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys
}
