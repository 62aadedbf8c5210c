package wallet

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	// ErrSigningRejected means the user declined to sign.
	ErrSigningRejected = errors.New("signing rejected by user")
	// ErrSigningFailed means the wallet could not produce a signature.
	ErrSigningFailed = errors.New("signing failed")
	ErrNotConnected  = errors.New("wallet not connected")
)

// Signer is the wallet boundary used by a swap session. SignTransaction may
// block until the user acts and has no timeout of its own.
type Signer interface {
	Connected() bool
	// Address is the base58 public key, or "" when disconnected.
	Address() string
	SignTransaction(ctx context.Context, tx []byte) ([]byte, error)
}

// KeypairSigner signs with a local ed25519 key.
type KeypairSigner struct {
	priv solana.PrivateKey
	pub  solana.PublicKey
}

func NewKeypairSigner(privateKey string) (*KeypairSigner, error) {
	priv, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return &KeypairSigner{priv: priv, pub: priv.PublicKey()}, nil
}

func (k *KeypairSigner) Connected() bool             { return true }
func (k *KeypairSigner) Address() string             { return k.pub.String() }
func (k *KeypairSigner) PublicKey() solana.PublicKey { return k.pub }

// SignTransaction decodes a serialized (legacy or v0) transaction and fills
// in this key's signature slot. Other slots are left untouched.
func (k *KeypairSigner) SignTransaction(ctx context.Context, raw []byte) ([]byte, error) {
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: decode transaction: %v", ErrSigningFailed, err)
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	slot := -1
	for i := 0; i < required && i < len(tx.Message.AccountKeys); i++ {
		if tx.Message.AccountKeys[i].Equals(k.pub) {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, fmt.Errorf("%w: %s is not a required signer", ErrSigningFailed, k.pub)
	}

	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: serialize message: %v", ErrSigningFailed, err)
	}
	sig, err := k.priv.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	for len(tx.Signatures) < required {
		tx.Signatures = append(tx.Signatures, solana.Signature{})
	}
	tx.Signatures[slot] = sig

	out, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: serialize transaction: %v", ErrSigningFailed, err)
	}
	return out, nil
}

// Disconnected is a Signer with no wallet attached.
type Disconnected struct{}

func (Disconnected) Connected() bool { return false }
func (Disconnected) Address() string { return "" }
func (Disconnected) SignTransaction(context.Context, []byte) ([]byte, error) {
	return nil, ErrNotConnected
}
