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

// Package bundle decodes the binary structures of an ANS-104 bundle: the
// bundle header with its offset table, and the header of each data item.
//
// A bundle starts with a 32-byte little-endian item count followed by one
// 64-byte entry per item (32-byte little-endian size, 32-byte item id). The
// items follow back to back in table order. Each item is laid out as:
//
//	signature type   u16 LE
//	signature        variable, by signature type
//	owner            variable, by signature type
//	target flag      u8, then 32 bytes when 1
//	anchor flag      u8, then 32 bytes when 1
//	tag count        u64 LE
//	tag bytes length u64 LE
//	tag bytes        Avro encoded, see package tags
//	payload          the rest of the item
//
// Item sizes come from the offset table, never from the item itself, which
// is what lets a corrupt item be skipped without losing track of the items
// after it. Signatures are not verified.
package bundle
