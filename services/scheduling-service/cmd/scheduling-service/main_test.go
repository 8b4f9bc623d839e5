package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/md-rashed-zaman/clinicagenda/libs/auth"
	"github.com/md-rashed-zaman/clinicagenda/libs/config"
)

func TestOpenBackendSQLite(t *testing.T) {
	config.Reset()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_DSN", ":memory:")

	be, err := openBackend(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)), true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer be.close()
	if be.pool != nil {
		t.Fatalf("sqlite backend must not carry a pg pool")
	}
	if err := be.ready.Check(context.Background()); err != nil {
		t.Fatalf("ready: %v", err)
	}
}

func TestOpenBackendRejectsUnknownDriver(t *testing.T) {
	config.Reset()
	t.Setenv("STORE_DRIVER", "mongo")
	if _, err := openBackend(context.Background(), slog.Default(), false); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestTokenCommandIssuesVerifiableToken(t *testing.T) {
	config.Reset()
	t.Setenv("JWT_SECRET", "dev-secret")

	cmd := tokenCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--tenant", "clinic-a", "--role", auth.RoleReception})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	v, err := auth.NewVerifier(auth.VerifierOptions{Secret: "dev-secret"})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	s, err := v.Parse(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.TenantID != "clinic-a" || s.Role != auth.RoleReception || s.UserID != "dev-user" {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestClinicLocation(t *testing.T) {
	config.Reset()
	t.Setenv("CLINIC_TIMEZONE", "Not/AZone")
	if _, err := clinicLocation(); err == nil {
		t.Fatalf("expected error for unknown zone")
	}
	t.Setenv("CLINIC_TIMEZONE", "")
	loc, err := clinicLocation()
	if err != nil || loc.String() != "America/Sao_Paulo" {
		t.Fatalf("got %v, %v", loc, err)
	}
}
