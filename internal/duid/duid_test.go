/*
Copyright 2026 jr42.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package duid

import (
	"net"
	"path/filepath"
	"testing"
)

func TestLoad_GeneratesAndPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state", "duid")
	hw := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}

	first, err := Load(path, KindLLT, hw)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("expected a non-empty DUID")
	}

	second, err := Load(path, KindLLT, hw)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if string(first) != string(second) {
		t.Fatal("Load must return the same DUID once persisted")
	}
}

func TestLoad_KindLL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "duid")
	hw := net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}

	b, err := Load(path, KindLL, hw)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(b) == 0 {
		t.Fatal("expected a non-empty DUID-LL")
	}
}

func TestLoad_RejectsEmptyExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "duid")
	if err := writeEmpty(path); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, KindLLT, nil); err == nil {
		t.Fatal("expected an error for an empty persisted DUID file")
	}
}

func writeEmpty(path string) error {
	return persist(path, nil)
}
