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
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/gradebook/core"
	"github.com/poiesic/gradebook/storage"
)

// A record value is the document id (MUS string) followed by the BSON body.
// The leading id lets scans that only need ids skip BSON decoding.

// encodeRecord serializes a document into a record value.
func encodeRecord(doc core.Document) ([]byte, error) {
	body, err := storage.MarshalDocument(doc)
	if err != nil {
		return nil, err
	}
	id := doc.ID()
	buf := make([]byte, ord.String.Size(id)+len(body))
	n := ord.String.Marshal(id, buf)
	copy(buf[n:], body)
	return buf, nil
}

// decodeRecordID reads only the id of a record value.
func decodeRecordID(data []byte) (string, int, error) {
	id, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return "", 0, fmt.Errorf("%w: record id: %w", storage.ErrTruncatedData, err)
	}
	return id, n, nil
}

// decodeRecord deserializes a record value into a document.
func decodeRecord(data []byte) (core.Document, error) {
	id, n, err := decodeRecordID(data)
	if err != nil {
		return nil, err
	}
	doc, err := storage.UnmarshalDocument(data[n:])
	if err != nil {
		return nil, err
	}
	if doc.ID() != id {
		return nil, fmt.Errorf("%w: record id %q does not match document id %q", storage.ErrSerializationFailed, id, doc.ID())
	}
	return core.StripInternal(doc), nil
}

// encodeSequence serializes an id index value.
func encodeSequence(seq uint64) []byte {
	buf := make([]byte, varint.Uint64.Size(seq))
	varint.Uint64.Marshal(seq, buf)
	return buf
}

// decodeSequence deserializes an id index value.
func decodeSequence(data []byte) (uint64, error) {
	seq, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: sequence: %w", storage.ErrTruncatedData, err)
	}
	return seq, nil
}
