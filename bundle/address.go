// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bundle

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/sha3"
)

// OwnerAddress returns the normalized address of an owner key: the base64url
// encoded SHA-256 of the raw owner bytes. This is how Arweave derives wallet
// addresses and how gateways index owners of every signature type.
func OwnerAddress(owner []byte) string {
	sum := sha256.Sum256(owner)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NativeAddress returns the owner's address in the notation of the chain the
// signature type belongs to. Types without a chain-specific notation use
// OwnerAddress.
func NativeAddress(t SignatureType, owner []byte) string {
	switch t {
	case SignatureTypeEthereum:
		// Uncompressed secp256k1 key: 0x04 || X || Y
		if len(owner) != 65 || owner[0] != 0x04 {
			break
		}
		hasher := sha3.NewLegacyKeccak256()
		hasher.Write(owner[1:])
		sum := hasher.Sum(nil)
		return "0x" + hex.EncodeToString(sum[12:])
	case SignatureTypeTypedEthereum:
		return string(owner)
	case SignatureTypeED25519, SignatureTypeSolana:
		return base58.Encode(owner)
	case SignatureTypeInjectedAptos:
		// Single key authentication key: sha3-256(pubkey || 0x00)
		sum := sha3.Sum256(append(append([]byte{}, owner...), 0x00))
		return "0x" + hex.EncodeToString(sum[:])
	}
	return OwnerAddress(owner)
}
