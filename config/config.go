/*
 *
 * Copyright 2025 gRPC authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

// Package config persists and discovers the JSON sidecar document a caller
// may keep alongside a named ring, recording enough to reopen it later
// without recomputing the layout by hand. The core packages (layout, ring,
// multiring, internal/platform) never read or write this file; it exists
// purely for callers and for cmd/magicringctl.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sugawarayuuta/sonnet"
)

// Document is the on-disk schema for a single named ring's configuration.
type Document struct {
	ProjectName    string `json:"project_name"`
	Name           string `json:"name"`
	ShmPath        string `json:"shm_path"`
	NumConnections int    `json:"num_connections"`
	LibraryVersion string `json:"library_version"`
	ShmSize        uint64 `json:"shm_size"`
	ElementSize    uint64 `json:"element_size"`
	ElementType    string `json:"element_type"`
}

// LibraryVersion is stamped into every Document written by Save.
const LibraryVersion = "1.0.0"

// Dir returns the directory a project's config documents are stored under:
// <local-config-dir>/<project_name>.
func Dir(projectName string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve user config dir: %w", err)
	}
	return filepath.Join(base, projectName), nil
}

// Path returns the file a Document for (projectName, name) is stored at.
func Path(projectName, name string) (string, error) {
	dir, err := Dir(projectName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+"_config.json"), nil
}

// Save writes doc to <local-config-dir>/<project_name>/<name>_config.json,
// creating the project directory if necessary.
func Save(doc Document) error {
	dir, err := Dir(doc.ProjectName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: create %s: %w", dir, err)
	}
	path, err := Path(doc.ProjectName, doc.Name)
	if err != nil {
		return err
	}
	data, err := sonnet.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Load reads the Document for (projectName, name).
func Load(projectName, name string) (Document, error) {
	path, err := Path(projectName, name)
	if err != nil {
		return Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var doc Document
	if err := sonnet.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return doc, nil
}

// Remove deletes the Document for (projectName, name), if present.
func Remove(projectName, name string) error {
	path, err := Path(projectName, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("config: remove %s: %w", path, err)
	}
	return nil
}

// DiscoverNames globs <local-config-dir>/<project_name>/*_config.json and
// returns the decoded Document for each, so a caller can enumerate
// previously-created rings without already knowing their names.
func DiscoverNames(projectName string) ([]Document, error) {
	dir, err := Dir(projectName)
	if err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*_config.json"))
	if err != nil {
		return nil, fmt.Errorf("config: glob %s: %w", dir, err)
	}
	docs := make([]Document, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		var doc Document
		if err := sonnet.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
