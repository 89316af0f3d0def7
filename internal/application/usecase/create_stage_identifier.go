package usecase

import (
	"context"
	"fmt"

	"github.com/dreschagin/deploy-board/internal/application/port"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

// StageIdentifiers связывает stage'и с внешней системой identifier'ов.
// Реализация выбирается один раз при старте.
type StageIdentifiers interface {
	// CreateForNewStage возвращает uuid созданного identifier'а или "",
	// если ничего не создано.
	CreateForNewStage(ctx context.Context, envName, stageName string) (string, error)
	// LinkedIdentifier возвращает externalId stage'а или "", если stage
	// не привязан.
	LinkedIdentifier(ctx context.Context, envName, stageName string) (string, error)
	Delete(ctx context.Context, name string) error
	ConsoleURL(projectName string) string
}

// CreateStageIdentifierUseCase копирует identifier соседнего stage'а для нового stage'а
type CreateStageIdentifierUseCase struct {
	catalog     port.EnvironmentCatalog
	identifiers port.IdentifierService
	logger      *logger.Logger
}

// NewCreateStageIdentifierUseCase создает новый use case
func NewCreateStageIdentifierUseCase(
	catalog port.EnvironmentCatalog,
	identifiers port.IdentifierService,
	logger *logger.Logger,
) *CreateStageIdentifierUseCase {
	return &CreateStageIdentifierUseCase{
		catalog:     catalog,
		identifiers: identifiers,
		logger:      logger,
	}
}

// CreateForNewStage клонирует identifier первого (в порядке выдачи) stage'а
// envName с externalId, переименовывает копию в stageName и создает ее.
// Если externalId нет ни у одного stage'а, ничего не создается.
func (uc *CreateStageIdentifierUseCase) CreateForNewStage(ctx context.Context, envName, stageName string) (string, error) {
	stages, err := uc.catalog.GetEnvironmentStages(ctx, envName)
	if err != nil {
		return "", fmt.Errorf("failed to list stages: %w", err)
	}

	var externalID string
	found := false
	for _, stage := range stages {
		if stage.HasExternalID() {
			externalID = *stage.ExternalID
			found = true
			break
		}
	}
	if !found {
		uc.logger.Info("No stage with an external id, skipping identifier creation",
			"env", envName,
			"stage", stageName,
		)
		return "", nil
	}

	existing, err := uc.identifiers.GetIdentifier(ctx, externalID)
	if err != nil {
		return "", fmt.Errorf("failed to get identifier %s: %w", externalID, err)
	}
	if existing == nil {
		return "", nil
	}

	created, err := uc.identifiers.CreateIdentifier(ctx, existing.ForStage(envName, stageName))
	if err != nil {
		return "", fmt.Errorf("failed to create identifier: %w", err)
	}

	uuid := created.UUID()
	uc.logger.Info("Identifier created for new stage",
		"env", envName,
		"stage", stageName,
		"source", externalID,
		"uuid", uuid,
	)
	return uuid, nil
}

// LinkedIdentifier ищет externalId stage'а; пустая строка означает, что удалять нечего
func (uc *CreateStageIdentifierUseCase) LinkedIdentifier(ctx context.Context, envName, stageName string) (string, error) {
	stages, err := uc.catalog.GetEnvironmentStages(ctx, envName)
	if err != nil {
		return "", fmt.Errorf("failed to list stages: %w", err)
	}
	for _, stage := range stages {
		if stage.StageName == stageName && stage.HasExternalID() {
			return *stage.ExternalID, nil
		}
	}
	return "", nil
}

// Delete удаляет identifier; отсутствующий identifier ошибкой не считается
func (uc *CreateStageIdentifierUseCase) Delete(ctx context.Context, name string) error {
	return uc.identifiers.DeleteIdentifier(ctx, name)
}

func (uc *CreateStageIdentifierUseCase) ConsoleURL(projectName string) string {
	return uc.identifiers.ProjectConsoleURL(projectName)
}

// DisabledStageIdentifiers используется, когда привязка identifier'ов
// выключена. Ни один вызов ничего не делает.
type DisabledStageIdentifiers struct{}

func (DisabledStageIdentifiers) CreateForNewStage(context.Context, string, string) (string, error) {
	return "", nil
}

func (DisabledStageIdentifiers) LinkedIdentifier(context.Context, string, string) (string, error) {
	return "", nil
}

func (DisabledStageIdentifiers) Delete(context.Context, string) error { return nil }

func (DisabledStageIdentifiers) ConsoleURL(string) string { return "" }
