package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Neumenon/avro/avro"
	"github.com/Neumenon/avro/internal/config"
)

const userSchemaText = `{"type":"record","name":"User","namespace":"ex","fields":[` +
	`{"name":"name","type":"string"},` +
	`{"name":"favoriteNumber","type":"int"},` +
	`{"name":"favoriteColor","type":"string"}]}`

var userBytes = []byte{12, 84, 104, 105, 97, 103, 111, 62, 8, 66, 108, 117, 101}

const userLine = `{"name":"Thiago","favoriteNumber":31,"favoriteColor":"Blue"}`

// runCmd runs the command with no configuration file.
func runCmd(t *testing.T, stdin []byte, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(config.EnvVar, "")
	var stdout, stderr bytes.Buffer
	err := run(args, bytes.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestSchema(t *testing.T) {
	spaced := strings.ReplaceAll(userSchemaText, ",", ", ")

	out, _, err := runCmd(t, []byte(spaced), "schema")
	if err != nil {
		t.Fatalf("schema error: %v", err)
	}
	if strings.TrimSpace(out) != userSchemaText {
		t.Errorf("schema output:\n got: %s\nwant: %s", out, userSchemaText)
	}

	out, _, err = runCmd(t, []byte(spaced), "schema", "--pretty")
	if err != nil {
		t.Fatalf("schema --pretty error: %v", err)
	}
	if want := avro.MustParseSchema(userSchemaText).Pretty() + "\n"; out != want {
		t.Errorf("schema --pretty output:\n got: %s\nwant: %s", out, want)
	}
}

func TestSchema_PrettyFromConfig(t *testing.T) {
	cfgPath := writeFile(t, "avro.yaml", []byte("pretty: true\n"))
	schemaPath := writeFile(t, "user.avsc", []byte(userSchemaText))
	s := avro.MustParseSchema(userSchemaText)

	out, _, err := runCmd(t, nil, "schema", "--config", cfgPath, schemaPath)
	if err != nil {
		t.Fatalf("schema error: %v", err)
	}
	if out != s.Pretty()+"\n" {
		t.Errorf("expected pretty output from config, got %s", out)
	}

	out, _, err = runCmd(t, nil, "schema", "--config", cfgPath, "--pretty=false", schemaPath)
	if err != nil {
		t.Fatalf("schema error: %v", err)
	}
	if out != s.String()+"\n" {
		t.Errorf("expected flag to override config, got %s", out)
	}
}

func TestFingerprint(t *testing.T) {
	out, _, err := runCmd(t, []byte(userSchemaText), "fingerprint")
	if err != nil {
		t.Fatalf("fingerprint error: %v", err)
	}
	if want := avro.MustParseSchema(userSchemaText).FingerprintHex(); strings.TrimSpace(out) != want {
		t.Errorf("fingerprint = %s, want %s", out, want)
	}
}

func TestFromJSONToJSON(t *testing.T) {
	schemaPath := writeFile(t, "user.avsc", []byte(userSchemaText))

	bin, _, err := runCmd(t, []byte(userLine+"\n"+userLine), "from-json", "--schema", schemaPath)
	if err != nil {
		t.Fatalf("from-json error: %v", err)
	}
	want := append(append([]byte{}, userBytes...), userBytes...)
	if !bytes.Equal([]byte(bin), want) {
		t.Fatalf("from-json bytes = %v, want %v", []byte(bin), want)
	}

	out, _, err := runCmd(t, []byte(bin), "to-json", "--schema", schemaPath)
	if err != nil {
		t.Fatalf("to-json error: %v", err)
	}
	if out != userLine+"\n"+userLine+"\n" {
		t.Errorf("to-json output = %q", out)
	}
}

func TestToJSON_Corrupt(t *testing.T) {
	schemaPath := writeFile(t, "user.avsc", []byte(userSchemaText))

	input := append(append([]byte{}, userBytes...), userBytes[:5]...)
	out, _, err := runCmd(t, input, "to-json", "--schema", schemaPath)
	if err == nil {
		t.Fatal("expected error for truncated unit")
	}
	if out != "" {
		t.Errorf("expected no partial output, got %q", out)
	}
}

func TestStreamPackDump(t *testing.T) {
	schemaPath := writeFile(t, "user.avsc", []byte(userSchemaText))
	input := []byte(userLine + "\n" + userLine + "\n" + userLine + "\n")

	container, _, err := runCmd(t, input, "stream", "pack",
		"--schema", schemaPath, "--block-size", "1", "--meta", "origin=test")
	if err != nil {
		t.Fatalf("stream pack error: %v", err)
	}
	containerPath := writeFile(t, "users.avs", []byte(container))

	out, _, err := runCmd(t, nil, "stream", "dump", containerPath)
	if err != nil {
		t.Fatalf("stream dump error: %v", err)
	}
	if out != string(input) {
		t.Errorf("stream dump output = %q, want %q", out, input)
	}

	out, _, err = runCmd(t, nil, "stream", "dump", "--header", containerPath)
	if err != nil {
		t.Fatalf("stream dump --header error: %v", err)
	}
	if !strings.Contains(out, `"name" : "User"`) || !strings.HasSuffix(out, "origin=test\n") {
		t.Errorf("unexpected header output:\n%s", out)
	}
}

func TestStreamPack_BadMeta(t *testing.T) {
	schemaPath := writeFile(t, "user.avsc", []byte(userSchemaText))
	_, _, err := runCmd(t, []byte(userLine), "stream", "pack", "--schema", schemaPath, "--meta", "novalue")
	if err == nil || !strings.Contains(err.Error(), "key=value") {
		t.Fatalf("expected meta error, got %v", err)
	}
}

func TestVerboseLogging(t *testing.T) {
	schemaPath := writeFile(t, "user.avsc", []byte(userSchemaText))
	_, stderr, err := runCmd(t, []byte(userLine), "from-json", "--verbose", "--schema", schemaPath)
	if err != nil {
		t.Fatalf("from-json error: %v", err)
	}
	if !strings.Contains(stderr, "loaded schema") || !strings.Contains(stderr, "name=ex.User") {
		t.Errorf("expected debug logs, got %q", stderr)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no command", nil, "missing command"},
		{"unknown command", []string{"frobnicate"}, "unknown command"},
		{"missing schema", []string{"to-json"}, "no schema"},
		{"stream without subcommand", []string{"stream"}, "missing subcommand"},
		{"unknown stream subcommand", []string{"stream", "split"}, "unknown subcommand"},
		{"unknown flag", []string{"schema", "--bogus"}, "bogus"},
		{"extra argument", []string{"fingerprint", "a", "b"}, "unexpected argument"},
		{"bad container", []string{"stream", "dump"}, "magic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCmd(t, []byte("nope"), tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestHelpAndVersion(t *testing.T) {
	out, _, err := runCmd(t, nil, "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.HasPrefix(out, "avro "+libVersion) || !strings.Contains(out, "AVS1") {
		t.Errorf("unexpected version output %q", out)
	}

	if _, _, err := runCmd(t, nil, "schema", "--help"); err != nil {
		t.Errorf("--help should not fail: %v", err)
	}
}
