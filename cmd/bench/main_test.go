package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Neumenon/avro/avro"
	"github.com/Neumenon/avro/stream"
)

const userSchemaText = `{"type":"record","name":"User","namespace":"ex","fields":[` +
	`{"name":"name","type":"string"},` +
	`{"name":"favoriteNumber","type":"int"},` +
	`{"name":"favoriteColor","type":"string"}]}`

const userLine = `{"name":"Thiago","favoriteNumber":31,"favoriteColor":"Blue"}`

func TestMeasure(t *testing.T) {
	s := avro.MustParseSchema(userSchemaText)
	r, err := measure("users", []byte(userLine+"\n"+userLine), s, stream.DefaultBlockSize)
	if err != nil {
		t.Fatalf("measure error: %v", err)
	}
	if r.Units != 2 {
		t.Errorf("Units = %d, want 2", r.Units)
	}
	if r.JSONBytes != 2*len(userLine) {
		t.Errorf("JSONBytes = %d, want %d", r.JSONBytes, 2*len(userLine))
	}
	if r.BinaryBytes != 26 {
		t.Errorf("BinaryBytes = %d, want 26", r.BinaryBytes)
	}
	if r.ContainerBytes <= r.BinaryBytes {
		t.Errorf("ContainerBytes = %d, want more than %d", r.ContainerBytes, r.BinaryBytes)
	}
	if r.BinaryPct <= 0 {
		t.Errorf("BinaryPct = %.1f, want positive", r.BinaryPct)
	}
}

func TestMeasure_BadInput(t *testing.T) {
	s := avro.MustParseSchema(userSchemaText)
	if _, err := measure("bad", []byte(`{"name":1}`), s, stream.DefaultBlockSize); err == nil {
		t.Fatal("expected error for mismatched JSON")
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "user.avsc")
	casePath := filepath.Join(dir, "users.json")
	csvPath := filepath.Join(dir, "out.csv")
	mdPath := filepath.Join(dir, "out.md")
	if err := os.WriteFile(schemaPath, []byte(userSchemaText), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(casePath, []byte(userLine), 0644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := run([]string{"--schema", schemaPath, "--csv", csvPath, "--markdown", mdPath, casePath}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !strings.Contains(stdout.String(), "Binary total:    13 bytes") {
		t.Errorf("unexpected summary:\n%s", stdout.String())
	}

	csv, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !strings.Contains(string(csv), "users.json,1,") {
		t.Errorf("unexpected CSV:\n%s", csv)
	}
	md, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	if !strings.Contains(string(md), "ex.User") {
		t.Errorf("markdown missing schema name:\n%s", md)
	}
}

func TestRun_Errors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(nil, &stdout, &stderr); err == nil {
		t.Error("expected error without --schema")
	}
	if err := run([]string{"--schema", "x.avsc"}, &stdout, &stderr); err == nil {
		t.Error("expected error without case files")
	}
}
