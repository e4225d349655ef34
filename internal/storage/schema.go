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
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"shotframe/internal/project"
)

//go:embed schema/project.schema.json
var projectSchema []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

// ErrSchema marks a manifest that does not conform to the project schema.
var ErrSchema = errors.New("manifest does not conform to schema")

// ProjectSchema returns the embedded JSON schema for manifests.
func ProjectSchema() []byte { return append([]byte(nil), projectSchema...) }

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(projectSchema))
	})
	return schema, schemaErr
}

// ValidateManifest checks data against the project schema. Failures wrap ErrSchema
// and list every violation.
func ValidateManifest(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
}

// ImportProject reads a project document exported by ExportProject or copied
// from another project directory. The document is schema checked and then
// structurally validated.
func ImportProject(path string) (*project.Project, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	if err := ValidateManifest(b); err != nil {
		return nil, err
	}
	return project.Unmarshal(b)
}

// ExportProject writes p as a standalone JSON document.
func ExportProject(p *project.Project, path string) error {
	data, err := project.Marshal(p)
	if err != nil {
		return err
	}
	if err := writeFileSync(path, data); err != nil {
		return fmt.Errorf("write project: %w", err)
	}
	return nil
}
