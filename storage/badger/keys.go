// Copyright 2025 Poiesic Systems
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


package badger

import (
	"encoding/binary"
	"strconv"
)

const (
	documentPrefix = "doc"
	idIndexPrefix  = "idx"
	sequencePrefix = "seq"
)

// collectionSegment length-prefixes a collection name so no collection's
// prefix is a prefix of another's. Format: len:collection:
func collectionSegment(collection string) string {
	return strconv.Itoa(len(collection)) + ":" + collection + ":"
}

// makeDocumentPrefix returns the prefix shared by every document of a
// collection. Format: doc:len:collection:
func makeDocumentPrefix(collection string) []byte {
	return []byte(documentPrefix + ":" + collectionSegment(collection))
}

// makeDocumentKey generates a key for a document by insertion sequence.
// Format: doc:len:collection:seq
func makeDocumentKey(collection string, seq uint64) []byte {
	prefix := makeDocumentPrefix(collection)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so iteration follows insertion order
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeIDIndexPrefix returns the prefix of a collection's id index.
// Format: idx:len:collection:
func makeIDIndexPrefix(collection string) []byte {
	return []byte(idIndexPrefix + ":" + collectionSegment(collection))
}

// makeIDIndexKey generates the index key mapping a document id to its
// sequence. Format: idx:len:collection:id
func makeIDIndexKey(collection, id string) []byte {
	prefix := makeIDIndexPrefix(collection)
	buf := make([]byte, len(prefix)+len(id))
	offset := copy(buf, prefix)
	copy(buf[offset:], id)
	return buf
}

// makeSequenceKey generates the key of a collection's id sequence.
func makeSequenceKey(collection string) []byte {
	return []byte(sequencePrefix + ":" + collection)
}
