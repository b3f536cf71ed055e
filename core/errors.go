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

package core

import "errors"

// Error taxonomy shared by every component of the ingest pipeline.
var (
	// ErrInvalidInput indicates a missing, empty or unreadable source path.
	// It is reported synchronously; no asynchronous work is started.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedSchema indicates a container whose schema is neither IFC2X3 nor IFC4.
	ErrUnsupportedSchema = errors.New("unsupported schema")

	// ErrDuplicateKey indicates a registration under a storage key that is already registered.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound indicates a lookup or removal of a key that is not registered.
	ErrNotFound = errors.New("not found")

	// ErrIO indicates an open, create, commit or persist failure in the storage layer.
	ErrIO = errors.New("io failure")
)
