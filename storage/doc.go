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


// Package storage provides the persistence abstraction layer for gradebook.
//
// This package defines the DAO contract that decouples entity handling from
// the backend holding the documents. Two implementations satisfy it:
//
//   - storage/memory: documents resident in process memory
//   - storage/durable: documents in a store Collection, fronted by an LRU cache
//
// The durable backend talks to a store through the Store and Collection
// interfaces. Two drivers implement them:
//
//   - storage/badger: an embedded BadgerDB database
//   - storage/mongodb: a remote MongoDB deployment
//
// # Usage
//
// Construct a registry, build DAOs against it and bind durable DAOs once the
// store is open:
//
//	registry := storage.NewRegistry()
//	users, err := durable.New("users", registry)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, err := badger.OpenStore("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close(ctx)
//	users.Bind(store.Collection("users"))
//
// The gradebook.Database facade does this wiring from configuration.
//
// # Thread Safety
//
// All DAO, Store and Collection implementations must be safe for concurrent
// use by multiple goroutines.
//
// # Context Support
//
// Every operation accepts a context.Context. Store drivers honour
// cancellation; pass context.Background() when no deadline applies.
package storage
