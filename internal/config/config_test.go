package config

import (
	"errors"
	"strings"
	"testing"
)

const loadedTestYAML = `
information:
  client_name: MyClient
  server_name: server01
  rclone_connection_name: remote
  bucket_name: backups
  exclusion_file: /etc/backup/exclude.txt
  keep_daily: 14
binaries:
  restic: /usr/local/bin/restic
email:
  enable: true
  from: backup@example.com
  recipient: ops@example.com
  host: mail.example.com
  port: 587
  max_try: 5
  timeout: 10
`

func loadedDocument(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseDocument([]byte(loadedTestYAML))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	return doc
}

func TestResolveComputesDerivedFields(t *testing.T) {
	cfg, err := Resolve(Defaults(), loadedDocument(t), "Data")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if cfg.BackupName != "MyClient/server01/Data" {
		t.Errorf("BackupName = %q", cfg.BackupName)
	}
	if cfg.Repository != "rclone:remote:backups/MyClient/server01/Data" {
		t.Errorf("Repository = %q", cfg.Repository)
	}
	if cfg.ResticCmd != "/usr/local/bin/restic -r rclone:remote:backups/MyClient/server01/Data" {
		t.Errorf("ResticCmd = %q", cfg.ResticCmd)
	}
}

func TestResolveKeepsLoadedValuesOverDefaults(t *testing.T) {
	cfg, err := Resolve(Defaults(), loadedDocument(t), "Data")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if cfg.KeepDaily != 14 {
		t.Errorf("KeepDaily = %d, want 14 from the loaded document", cfg.KeepDaily)
	}
	if cfg.Email.MaxTry != 5 {
		t.Errorf("Email.MaxTry = %d, want 5 from the loaded document", cfg.Email.MaxTry)
	}
	if cfg.Email.Port != 587 {
		t.Errorf("Email.Port = %d, want 587 from the loaded document", cfg.Email.Port)
	}
}

func TestResolveAppliesDefaults(t *testing.T) {
	doc, err := ParseDocument([]byte(`
information:
  client_name: MyClient
  server_name: server01
  rclone_connection_name: remote
  bucket_name: backups
`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}

	cfg, err := Resolve(Defaults(), doc, "Data")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if cfg.KeepDaily != 30 {
		t.Errorf("KeepDaily = %d, want default 30", cfg.KeepDaily)
	}
	if cfg.ResticBinary != "restic" {
		t.Errorf("ResticBinary = %q, want default restic", cfg.ResticBinary)
	}
	if cfg.Email.Enabled {
		t.Error("Email.Enabled should default to false")
	}
	if cfg.Email.MaxTry != 3 {
		t.Errorf("Email.MaxTry = %d, want default 3", cfg.Email.MaxTry)
	}
	if cfg.Email.Timeout != 5 {
		t.Errorf("Email.Timeout = %d, want default 5", cfg.Email.Timeout)
	}
}

func TestResolveMissingRequiredFields(t *testing.T) {
	doc, err := ParseDocument([]byte(`
information:
  client_name: MyClient
  server_name: server01
  rclone_connection_name: remote
`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}

	_, err = Resolve(Defaults(), doc, "Data")
	if err == nil {
		t.Fatal("Resolve should fail without bucket_name")
	}

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error is %T, want *ValidationError", err)
	}
	if len(validationErr.Missing) != 1 || validationErr.Missing[0] != "information.bucket_name" {
		t.Errorf("Missing = %v, want [information.bucket_name]", validationErr.Missing)
	}
	if !strings.Contains(validationErr.Error(), "information.bucket_name") {
		t.Errorf("error message %q does not name the missing path", validationErr.Error())
	}
}

func TestResolveEmptyRequiredFieldIsMissing(t *testing.T) {
	doc, err := ParseDocument([]byte(`
information:
  client_name: ""
  server_name: server01
  rclone_connection_name: remote
  bucket_name: backups
`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}

	_, err = Resolve(Defaults(), doc, "Data")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Resolve should fail with *ValidationError, got %v", err)
	}
	if len(validationErr.Missing) != 1 || validationErr.Missing[0] != "information.client_name" {
		t.Errorf("Missing = %v, want [information.client_name]", validationErr.Missing)
	}
}

func TestResolveFollowsReferences(t *testing.T) {
	doc, err := ParseDocument([]byte(`
names:
  company: MyClient
information:
  client_name: ${names.company}
  server_name: server01
  rclone_connection_name: remote
  bucket_name: backups
`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}

	cfg, err := Resolve(Defaults(), doc, "Data")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.ClientName != "MyClient" {
		t.Errorf("ClientName = %q, want MyClient via reference", cfg.ClientName)
	}
}

func TestResolveAttachesGeneratedNode(t *testing.T) {
	cfg, err := Resolve(Defaults(), loadedDocument(t), "Data")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	value, err := cfg.Document.Resolve("generated.backup_name")
	if err != nil {
		t.Fatalf("generated.backup_name not attached: %v", err)
	}
	if value != cfg.BackupName {
		t.Errorf("generated.backup_name = %v, want %s", value, cfg.BackupName)
	}
}

func TestResolveDoesNotMutateLoadedDocument(t *testing.T) {
	loaded := loadedDocument(t)
	if _, err := Resolve(Defaults(), loaded, "Data"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if loaded.Has("generated") {
		t.Error("Resolve mutated the loaded document")
	}
}

func TestComposeBackupNameCollapsesEmptyComponents(t *testing.T) {
	if name := ComposeBackupName("", "", "Data"); name != "Data" {
		t.Errorf("ComposeBackupName = %q, want Data", name)
	}
	if name := ComposeBackupName("MyClient", "", "Data"); name != "MyClient/Data" {
		t.Errorf("ComposeBackupName = %q, want MyClient/Data", name)
	}
}

func TestCollapseSlashes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"a//b", "a/b"},
		{"a////b", "a/b"},
		{"a/b", "a/b"},
		{"rclone:remote:bucket//client/server", "rclone:remote:bucket/client/server"},
	}
	for _, tc := range cases {
		if got := CollapseSlashes(tc.in); got != tc.want {
			t.Errorf("CollapseSlashes(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
