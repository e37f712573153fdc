package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Wallets disagree on the shape of the signature list: some return
// [{signature: "..."}], others nest the composite signature one level deeper
// as [{signature: {addr, keyId, signature}}]. A refusal may come back as a
// "Declined: ..." string instead of a list.

type rawSignature struct {
	Signature json.RawMessage `json:"signature"`
}

// ExtractSignature returns the signature string of the first entry of raw,
// whichever nesting the wallet used.
func ExtractSignature(raw json.RawMessage) (string, bool) {
	var list []rawSignature
	if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
		return "", false
	}
	first := list[0].Signature
	var nested rawSignature
	if err := json.Unmarshal(first, &nested); err == nil && len(nested.Signature) > 0 {
		first = nested.Signature
	}
	var sig string
	if err := json.Unmarshal(first, &sig); err != nil || sig == "" {
		return "", false
	}
	return sig, true
}

// NormalizeCompositeSignatures decodes the signature list returned by a wallet.
// The doubly nested form yields the inner signature of the first entry only.
// A "Declined:" string yields ErrDeclined. null or an empty input yields nil.
func NormalizeCompositeSignatures(raw json.RawMessage) ([]CompositeSignature, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("decode signatures: %w", err)
		}
		if strings.Contains(s, "Declined:") {
			return nil, fmt.Errorf("%w: %s", ErrDeclined, s)
		}
		return nil, fmt.Errorf("unexpected signature string %q", s)
	}

	var list []rawSignature
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("decode signatures: %w", err)
	}
	if len(list) > 0 && bytes.HasPrefix(bytes.TrimSpace(list[0].Signature), []byte("{")) {
		var inner CompositeSignature
		if err := json.Unmarshal(list[0].Signature, &inner); err != nil {
			return nil, fmt.Errorf("decode nested signature: %w", err)
		}
		if inner.Signature != "" {
			return []CompositeSignature{inner}, nil
		}
	}

	var sigs []CompositeSignature
	if err := json.Unmarshal(trimmed, &sigs); err != nil {
		return nil, fmt.Errorf("decode signatures: %w", err)
	}
	return sigs, nil
}

// WalletResponse is a Signer over a reply the browser wallet already produced.
// Decoding errors, including a declined signature, surface when Sign is called.
func WalletResponse(signatures, voucher json.RawMessage) Signer {
	return Func(func(context.Context, Identity, TransactionKind, string) (Bundle, error) {
		sigs, err := NormalizeCompositeSignatures(signatures)
		if err != nil {
			return Bundle{}, err
		}
		return Bundle{CompositeSignatures: sigs, Voucher: voucher}, nil
	})
}
