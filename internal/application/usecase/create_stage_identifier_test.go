package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/dreschagin/deploy-board/internal/domain/entity"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

func TestCreateStageIdentifierUseCase_ClonesSiblingIdentifier(t *testing.T) {
	catalog := &mockCatalog{stages: []entity.Environment{
		{EnvName: "web", StageName: "dev"},
		{EnvName: "web", StageName: "prod", ExternalID: strPtr("ident-prod")},
		{EnvName: "web", StageName: "canary", ExternalID: strPtr("ident-canary")},
	}}
	identifiers := &mockIdentifiers{existing: map[string]entity.Identifier{
		"ident-prod": {"uuid": "ident-prod", "env_name": "web", "stage_name": "prod", "project": "web-app"},
	}}

	uc := NewCreateStageIdentifierUseCase(catalog, identifiers, logger.New("error"))
	got, err := uc.CreateForNewStage(context.Background(), "web", "staging")
	if err != nil {
		t.Fatalf("CreateForNewStage() error = %v", err)
	}
	if got != "new-uuid" {
		t.Fatalf("uuid = %q, want new-uuid", got)
	}

	if len(identifiers.created) != 1 {
		t.Fatalf("created %d identifiers, want 1", len(identifiers.created))
	}
	created := identifiers.created[0]
	if created["stage_name"] != "staging" || created["env_name"] != "web" || created["project"] != "web-app" {
		t.Fatalf("created = %v", created)
	}
	if identifiers.existing["ident-prod"]["stage_name"] != "prod" {
		t.Fatal("source identifier was modified")
	}
}

func TestCreateStageIdentifierUseCase_NoLinkedStage(t *testing.T) {
	catalog := &mockCatalog{stages: []entity.Environment{{EnvName: "web", StageName: "dev"}}}
	identifiers := &mockIdentifiers{}

	uc := NewCreateStageIdentifierUseCase(catalog, identifiers, logger.New("error"))
	got, err := uc.CreateForNewStage(context.Background(), "web", "staging")
	if err != nil {
		t.Fatalf("CreateForNewStage() error = %v", err)
	}
	if got != "" || len(identifiers.created) != 0 {
		t.Fatalf("uuid = %q, created = %v, want nothing", got, identifiers.created)
	}
}

func TestCreateStageIdentifierUseCase_Errors(t *testing.T) {
	linked := []entity.Environment{{EnvName: "web", StageName: "prod", ExternalID: strPtr("ident-prod")}}

	tests := []struct {
		name        string
		catalog     *mockCatalog
		identifiers *mockIdentifiers
	}{
		{name: "list stages", catalog: &mockCatalog{stagesErr: errBackendDown}, identifiers: &mockIdentifiers{}},
		{name: "get identifier", catalog: &mockCatalog{stages: linked}, identifiers: &mockIdentifiers{getErr: errBackendDown}},
		{
			name:    "create identifier",
			catalog: &mockCatalog{stages: linked},
			identifiers: &mockIdentifiers{
				existing:  map[string]entity.Identifier{"ident-prod": {"uuid": "ident-prod"}},
				createErr: errBackendDown,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := NewCreateStageIdentifierUseCase(tt.catalog, tt.identifiers, logger.New("error"))
			if _, err := uc.CreateForNewStage(context.Background(), "web", "staging"); !errors.Is(err, errBackendDown) {
				t.Fatalf("error = %v, want wrapped errBackendDown", err)
			}
		})
	}
}

func TestDisabledStageIdentifiers(t *testing.T) {
	var ids StageIdentifiers = DisabledStageIdentifiers{}

	if got, err := ids.CreateForNewStage(context.Background(), "web", "prod"); got != "" || err != nil {
		t.Fatalf("CreateForNewStage() = %q, %v", got, err)
	}
	if got, err := ids.LinkedIdentifier(context.Background(), "web", "prod"); got != "" || err != nil {
		t.Fatalf("LinkedIdentifier() = %q, %v", got, err)
	}
	if err := ids.Delete(context.Background(), "x"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ids.ConsoleURL("p") != "" {
		t.Fatal("ConsoleURL() not empty")
	}
}

func TestCreateStageIdentifierUseCase_LinkedIdentifier(t *testing.T) {
	catalog := &mockCatalog{stages: []entity.Environment{
		{EnvName: "web", StageName: "dev"},
		{EnvName: "web", StageName: "prod", ExternalID: strPtr("ident-prod")},
	}}
	uc := NewCreateStageIdentifierUseCase(catalog, &mockIdentifiers{}, logger.New("error"))

	tests := []struct {
		stage string
		want  string
	}{
		{stage: "prod", want: "ident-prod"},
		{stage: "dev", want: ""},
		{stage: "missing", want: ""},
	}
	for _, tt := range tests {
		got, err := uc.LinkedIdentifier(context.Background(), "web", tt.stage)
		if err != nil || got != tt.want {
			t.Fatalf("LinkedIdentifier(%s) = %q, %v, want %q", tt.stage, got, err, tt.want)
		}
	}

	failing := NewCreateStageIdentifierUseCase(&mockCatalog{stagesErr: errBackendDown}, &mockIdentifiers{}, logger.New("error"))
	if _, err := failing.LinkedIdentifier(context.Background(), "web", "prod"); !errors.Is(err, errBackendDown) {
		t.Fatalf("error = %v, want wrapped errBackendDown", err)
	}
}

func TestCreateStageIdentifierUseCase_DeleteAndConsoleURL(t *testing.T) {
	identifiers := &mockIdentifiers{}
	uc := NewCreateStageIdentifierUseCase(&mockCatalog{}, identifiers, logger.New("error"))

	if err := uc.Delete(context.Background(), "ident-prod"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(identifiers.deleted) != 1 || identifiers.deleted[0] != "ident-prod" {
		t.Fatalf("deleted = %v", identifiers.deleted)
	}
	if got := uc.ConsoleURL("pinboard"); got != "https://nimbus.example.com/projects/pinboard" {
		t.Fatalf("ConsoleURL() = %q", got)
	}
}
