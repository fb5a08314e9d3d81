/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed play.schema.json
var playSchema []byte

// SchemaJSON returns the bundled JSON schema for serialized documents.
func SchemaJSON() []byte { return append([]byte(nil), playSchema...) }

// ValidationError lists every schema violation found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document does not conform to schema: %s", strings.Join(e.Problems, "; "))
}

// Validate checks serialized document JSON against the bundled schema.
// Consumer annotations (active, state, selected) are accepted.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(playSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if result.Valid() {
		return nil
	}
	ve := &ValidationError{}
	for _, e := range result.Errors() {
		ve.Problems = append(ve.Problems, e.String())
	}
	return ve
}
