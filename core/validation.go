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

import (
	"fmt"
	"os"
)

// ValidateSourcePath checks that path names an existing, readable regular file.
//
// Validation rules:
//   - path must not be empty
//   - path must exist
//   - path must not be a directory
//   - path must be openable for reading
//
// Every failure wraps ErrInvalidInput. The check performs no writes.
func ValidateSourcePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: source path is empty", ErrInvalidInput)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidInput, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	f.Close()

	return nil
}
