/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type memTokenStore struct {
	values map[string]string
}

func newMemTokenStore() *memTokenStore { return &memTokenStore{values: map[string]string{}} }

func (m *memTokenStore) Get(service, key string) (string, error) {
	v, ok := m.values[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (m *memTokenStore) Set(service, key, value string) error {
	m.values[service+"/"+key] = value
	return nil
}
func (m *memTokenStore) Delete(service, key string) error {
	delete(m.values, service+"/"+key)
	return nil
}

func withTestEnv(t *testing.T) *memTokenStore {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	mem := newMemTokenStore()
	prev := SetTokenStore(mem)
	t.Cleanup(func() { SetTokenStore(prev) })
	return mem
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	withTestEnv(t)
	cfg, tok, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tok != "" {
		t.Fatalf("unexpected token %q", tok)
	}
	if cfg.Backend.BaseURL != "http://localhost:8080" || cfg.Editor.Mode != "quick" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	mem := withTestEnv(t)

	cfg := Defaults()
	cfg.Backend.BaseURL = "https://epaper.example.com"
	cfg.Editor.Mode = "form"
	cfg.Logging.Level = "debug"
	if err := Save(cfg, "secret-token"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(mem.values) != 1 {
		t.Fatalf("token not stored in keyring")
	}

	got, tok, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Backend.BaseURL != cfg.Backend.BaseURL || got.Editor.Mode != "form" || got.Logging.Level != "debug" {
		t.Fatalf("round trip lost fields: %+v", got)
	}
	if tok != "secret-token" {
		t.Fatalf("token = %q", tok)
	}

	if err := ClearToken(); err != nil {
		t.Fatalf("clear token: %v", err)
	}
	if _, tok, _ := Load(); tok != "" {
		t.Fatalf("token survived logout: %q", tok)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	withTestEnv(t)

	cfg := Defaults()
	cfg.Backend.BaseURL = "https://file.example.com"
	if err := Save(cfg, ""); err != nil {
		t.Fatalf("save: %v", err)
	}
	t.Setenv(EnvBackendURL, "https://env.example.com")
	t.Setenv(EnvEditorMode, "FORM")
	t.Setenv(EnvLogSource, "yes")
	t.Setenv(EnvBackendTimeoutMs, "5000")

	got, _, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Backend.BaseURL != "https://env.example.com" {
		t.Fatalf("env override lost: %q", got.Backend.BaseURL)
	}
	if got.Editor.Mode != "form" {
		t.Fatalf("editor mode not lowered: %q", got.Editor.Mode)
	}
	if !got.Logging.Source || got.Backend.TimeoutMs != 5000 {
		t.Fatalf("overrides not applied: %+v", got)
	}
}

func TestConfigPathUnderHome(t *testing.T) {
	withTestEnv(t)
	p, err := ConfigPath()
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if filepath.Base(p) != "config.yaml" {
		t.Fatalf("unexpected path %q", p)
	}
	if _, err := os.Stat(filepath.Dir(p)); err == nil {
		// directory may not exist yet; Save creates it
		t.Log("config dir already present")
	}
}
