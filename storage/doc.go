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

// Package storage provides the entity storage abstraction behind model containers.
//
// A model container keeps its entity instances in an EntityRepository rather
// than in plain Go maps so that large models are held in a compact binary form
// and transactional commits are applied in write batches.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return the storage.EntityRepository
// interface where callers only need the abstraction:
//
//	repo, err := badger.NewMemoryEntityRepository()  // returns storage.EntityRepository
//
// # Serialization
//
// Entities are encoded with mus-go primitives (see MarshalEntity). Values are
// recursive, so the codec walks aggregates explicitly and bounds their depth.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
