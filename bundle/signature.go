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
	"fmt"
)

// SignatureType selects the signing scheme of a data item, and with it the
// widths of the signature and owner fields.
type SignatureType uint16

const (
	SignatureTypeArweave       SignatureType = 1
	SignatureTypeED25519       SignatureType = 2
	SignatureTypeEthereum      SignatureType = 3
	SignatureTypeSolana        SignatureType = 4
	SignatureTypeInjectedAptos SignatureType = 5
	SignatureTypeMultiAptos    SignatureType = 6
	SignatureTypeTypedEthereum SignatureType = 7
)

// SignatureConfig holds the fixed field widths for a signature type
type SignatureConfig struct {
	Name            string
	SignatureLength int
	OwnerLength     int
}

var signatureConfigs = map[SignatureType]SignatureConfig{
	SignatureTypeArweave: {
		Name:            "arweave",
		SignatureLength: 512,
		OwnerLength:     512,
	},
	SignatureTypeED25519: {
		Name:            "ed25519",
		SignatureLength: 64,
		OwnerLength:     32,
	},
	SignatureTypeEthereum: {
		Name:            "ethereum",
		SignatureLength: 65,
		OwnerLength:     65,
	},
	SignatureTypeSolana: {
		Name:            "solana",
		SignatureLength: 64,
		OwnerLength:     32,
	},
	SignatureTypeInjectedAptos: {
		Name:            "injectedAptos",
		SignatureLength: 64,
		OwnerLength:     32,
	},
	// Up to 32 ed25519 signatures plus a 4-byte bitmap, and up to 32 keys
	// plus a threshold byte
	SignatureTypeMultiAptos: {
		Name:            "multiAptos",
		SignatureLength: 64*32 + 4,
		OwnerLength:     32*32 + 1,
	},
	// The owner is the 0x-prefixed hex address rather than a public key
	SignatureTypeTypedEthereum: {
		Name:            "typedEthereum",
		SignatureLength: 65,
		OwnerLength:     42,
	},
}

// Config returns the field widths for the signature type. The second return
// value is false for unknown types.
func (t SignatureType) Config() (SignatureConfig, bool) {
	cfg, ok := signatureConfigs[t]
	return cfg, ok
}

// Known reports whether the signature type is part of the registry
func (t SignatureType) Known() bool {
	_, ok := signatureConfigs[t]
	return ok
}

func (t SignatureType) String() string {
	if cfg, ok := signatureConfigs[t]; ok {
		return cfg.Name
	}
	return fmt.Sprintf("unknown(%d)", uint16(t))
}
