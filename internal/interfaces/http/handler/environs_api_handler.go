package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dreschagin/deploy-board/internal/application/port"
	"github.com/dreschagin/deploy-board/internal/application/usecase"
	"github.com/dreschagin/deploy-board/internal/domain/valueobject"
	"github.com/dreschagin/deploy-board/internal/interfaces/http/middleware"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

const maxBodyBytes = 1 << 20

// EnvironsFacade это часть фасада deploy backend'а, доступная браузеру
type EnvironsFacade interface {
	ListEnvironmentNames(ctx context.Context, nameFilter string, page, pageSize int) (json.RawMessage, error)
	EnvironmentStagesJSON(ctx context.Context, envName string) (json.RawMessage, error)
	EnvironmentsByGroupJSON(ctx context.Context, groupName string) (json.RawMessage, error)
	GetSidecarEnvironments(ctx context.Context) (json.RawMessage, error)
	GetEnvironment(ctx context.Context, id string) (json.RawMessage, error)
	GetEnvironmentByStage(ctx context.Context, envName, stageName string) (json.RawMessage, error)
	GetCapacity(ctx context.Context, envName, stageName, capacityType string) (json.RawMessage, error)
	UpdateCapacity(ctx context.Context, envName, stageName, capacityType string, data json.RawMessage) (json.RawMessage, error)
	AddCapacity(ctx context.Context, envName, stageName, capacityType string, data json.RawMessage) (json.RawMessage, error)
	RemoveCapacity(ctx context.Context, envName, stageName, capacityType string, data json.RawMessage) (json.RawMessage, error)
	GetConfig(ctx context.Context, envName, stageName string, facet valueobject.ConfigFacet) (json.RawMessage, error)
	UpdateConfig(ctx context.Context, envName, stageName string, facet valueobject.ConfigFacet, data json.RawMessage) (json.RawMessage, error)
	CreateEnvironment(ctx context.Context, data json.RawMessage) (json.RawMessage, error)
	UpdateBasicConfig(ctx context.Context, envName, stageName string, data json.RawMessage) (json.RawMessage, error)
	DeleteEnvironment(ctx context.Context, envName, stageName string) error
	GetConfigHistory(ctx context.Context, envName, stageName string, page, pageSize int) (json.RawMessage, error)
	SetAllChanges(ctx context.Context, action valueobject.ChangeAction, description string) error
	SetChanges(ctx context.Context, envName, stageName string, action valueobject.ChangeAction, description string) error
	ApplyHostAction(ctx context.Context, envName, stageName string, action valueobject.HostAction, hostIDs []string) error
	SetExternalID(ctx context.Context, envName, stageName, externalID string) (json.RawMessage, error)
	GetPinDeploy(ctx context.Context, envName, stageName string) (json.RawMessage, error)
}

// EnvironsAPIHandler пробрасывает запросы к /envs в deploy backend
type EnvironsAPIHandler struct {
	environs    EnvironsFacade
	identifiers usecase.StageIdentifiers
	audit       *usecase.RecordAuditEventUseCase
	logger      *logger.Logger
}

// NewEnvironsAPIHandler создает новый handler. audit может быть nil.
func NewEnvironsAPIHandler(
	environs EnvironsFacade,
	identifiers usecase.StageIdentifiers,
	audit *usecase.RecordAuditEventUseCase,
	logger *logger.Logger,
) *EnvironsAPIHandler {
	if identifiers == nil {
		identifiers = usecase.DisabledStageIdentifiers{}
	}
	return &EnvironsAPIHandler{
		environs:    environs,
		identifiers: identifiers,
		audit:       audit,
		logger:      logger,
	}
}

// ListEnvironmentNames: GET /api/v1/envs/names?nameFilter=&pageIndex=&pageSize=
func (h *EnvironsAPIHandler) ListEnvironmentNames(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	body, err := h.environs.ListEnvironmentNames(r.Context(), r.URL.Query().Get("nameFilter"), page, pageSize)
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	writeRaw(w, body)
}

// ListEnvironments возвращает stage'и ?envName= или окружения ?groupName=
func (h *EnvironsAPIHandler) ListEnvironments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var (
		body json.RawMessage
		err  error
	)
	switch {
	case query.Get("envName") != "":
		body, err = h.environs.EnvironmentStagesJSON(r.Context(), query.Get("envName"))
	case query.Get("groupName") != "":
		body, err = h.environs.EnvironmentsByGroupJSON(r.Context(), query.Get("groupName"))
	default:
		err = fmt.Errorf("%w: envName or groupName is required", errInvalidRequest)
	}
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	writeRaw(w, body)
}

func (h *EnvironsAPIHandler) GetSidecarEnvironments(w http.ResponseWriter, r *http.Request) {
	body, err := h.environs.GetSidecarEnvironments(r.Context())
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	writeRaw(w, body)
}

func (h *EnvironsAPIHandler) GetEnvironment(w http.ResponseWriter, r *http.Request) {
	body, err := h.environs.GetEnvironment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	writeRaw(w, body)
}

func (h *EnvironsAPIHandler) GetEnvironmentByStage(w http.ResponseWriter, r *http.Request) {
	body, err := h.environs.GetEnvironmentByStage(r.Context(), r.PathValue("envName"), r.PathValue("stageName"))
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	writeRaw(w, body)
}

// CreateEnvironment: POST /api/v1/envs
func (h *EnvironsAPIHandler) CreateEnvironment(w http.ResponseWriter, r *http.Request) {
	data, err := readJSONBody(w, r)
	if err == nil {
		err = validateEnums(data, valueobject.EnvironmentEnumFields)
	}
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	body, err := h.environs.CreateEnvironment(r.Context(), data)
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	h.record(r, "create", "", "", nil)
	writeRaw(w, body)
}

func (h *EnvironsAPIHandler) UpdateBasicConfig(w http.ResponseWriter, r *http.Request) {
	envName, stageName := stageParams(r)
	data, err := readJSONBody(w, r)
	if err == nil {
		err = validateEnums(data, valueobject.EnvironmentEnumFields)
	}
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	body, err := h.environs.UpdateBasicConfig(r.Context(), envName, stageName, data)
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	h.record(r, "update", envName, stageName, nil)
	writeRaw(w, body)
}

// DeleteEnvironment удаляет stage, затем его identifier. Ошибка удаления
// identifier'а только логируется: stage к этому моменту уже удален.
func (h *EnvironsAPIHandler) DeleteEnvironment(w http.ResponseWriter, r *http.Request) {
	envName, stageName := stageParams(r)

	externalID, err := h.identifiers.LinkedIdentifier(r.Context(), envName, stageName)
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	if err := h.environs.DeleteEnvironment(r.Context(), envName, stageName); err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}

	var details map[string]any
	if externalID != "" {
		details = map[string]any{"externalId": externalID}
		if err := h.identifiers.Delete(r.Context(), externalID); err != nil {
			h.logger.Error("Failed to delete stage identifier", err,
				"env", envName,
				"stage", stageName,
				"external_id", externalID,
			)
			details["identifierDeleted"] = false
		}
	}
	h.record(r, "delete", envName, stageName, details)
	w.WriteHeader(http.StatusNoContent)
}

var capacityActions = map[string]string{
	http.MethodPut:    "capacity.update",
	http.MethodPost:   "capacity.add",
	http.MethodDelete: "capacity.remove",
}

// Capacity обрабатывает все методы /capacity; необязательный capacityType
// передается как есть.
func (h *EnvironsAPIHandler) Capacity(w http.ResponseWriter, r *http.Request) {
	envName, stageName := stageParams(r)
	capacityType := r.URL.Query().Get("capacityType")

	var (
		body json.RawMessage
		err  error
	)
	action, mutating := capacityActions[r.Method]
	switch {
	case r.Method == http.MethodGet:
		body, err = h.environs.GetCapacity(r.Context(), envName, stageName, capacityType)
	case !mutating:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	default:
		var data json.RawMessage
		if data, err = readJSONBody(w, r); err != nil {
			break
		}
		switch r.Method {
		case http.MethodPut:
			body, err = h.environs.UpdateCapacity(r.Context(), envName, stageName, capacityType, data)
		case http.MethodPost:
			body, err = h.environs.AddCapacity(r.Context(), envName, stageName, capacityType, data)
		case http.MethodDelete:
			body, err = h.environs.RemoveCapacity(r.Context(), envName, stageName, capacityType, data)
		}
	}
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	if mutating {
		h.record(r, action, envName, stageName, map[string]any{"capacityType": capacityType})
	}
	writeRaw(w, body)
}

// Config обрабатывает GET и PUT одного facet'а конфигурации
func (h *EnvironsAPIHandler) Config(w http.ResponseWriter, r *http.Request) {
	envName, stageName := stageParams(r)
	facet, err := valueobject.ParseConfigFacet(r.PathValue("facet"))
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}

	var body json.RawMessage
	switch r.Method {
	case http.MethodGet:
		body, err = h.environs.GetConfig(r.Context(), envName, stageName, facet)
	case http.MethodPut:
		var data json.RawMessage
		if data, err = readJSONBody(w, r); err == nil && facet == valueobject.FacetPromotes {
			err = validateEnums(data, valueobject.PromoteEnumFields)
		}
		if err == nil {
			body, err = h.environs.UpdateConfig(r.Context(), envName, stageName, facet, data)
		}
		if err == nil {
			h.record(r, "config.update", envName, stageName, map[string]any{"facet": facet.String()})
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	writeRaw(w, body)
}

func (h *EnvironsAPIHandler) GetConfigHistory(w http.ResponseWriter, r *http.Request) {
	envName, stageName := stageParams(r)
	page, pageSize, err := pagination(r)
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	body, err := h.environs.GetConfigHistory(r.Context(), envName, stageName, page, pageSize)
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	writeRaw(w, body)
}

// SetAllChanges: POST /api/v1/envs/actions (actionType=ENABLE|DISABLE, description)
func (h *EnvironsAPIHandler) SetAllChanges(w http.ResponseWriter, r *http.Request) {
	action, description, err := changeParams(w, r)
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	if err := h.environs.SetAllChanges(r.Context(), action, description); err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	h.recordDescribed(r, "changes."+strings.ToLower(string(action)), "", "", description)
	w.WriteHeader(http.StatusNoContent)
}

func (h *EnvironsAPIHandler) SetChanges(w http.ResponseWriter, r *http.Request) {
	envName, stageName := stageParams(r)
	action, description, err := changeParams(w, r)
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	if err := h.environs.SetChanges(r.Context(), envName, stageName, action, description); err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	h.recordDescribed(r, "changes."+strings.ToLower(string(action)), envName, stageName, description)
	w.WriteHeader(http.StatusNoContent)
}

// HostAction: PUT /api/v1/envs/{envName}/{stageName}/hosts/{action}, тело
// это JSON массив id хостов. action: pause, resume или reset.
func (h *EnvironsAPIHandler) HostAction(w http.ResponseWriter, r *http.Request) {
	envName, stageName := stageParams(r)

	action, err := valueobject.ParseHostAction(r.PathValue("action"))
	if err != nil {
		http.Error(w, "Unknown host action", http.StatusBadRequest)
		return
	}

	data, err := readJSONBody(w, r)
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	var hostIDs []string
	if err := json.Unmarshal(data, &hostIDs); err != nil {
		http.Error(w, "Body must be a JSON array of host ids", http.StatusBadRequest)
		return
	}

	if err := h.environs.ApplyHostAction(r.Context(), envName, stageName, action, hostIDs); err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	h.record(r, "hosts."+strings.ToLower(r.PathValue("action")), envName, stageName, map[string]any{"hostIds": hostIDs})
	w.WriteHeader(http.StatusNoContent)
}

type externalIDRequest struct {
	ExternalID string `json:"externalId"`
}

func (h *EnvironsAPIHandler) SetExternalID(w http.ResponseWriter, r *http.Request) {
	envName, stageName := stageParams(r)
	data, err := readJSONBody(w, r)
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	var req externalIDRequest
	if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.ExternalID) == "" {
		http.Error(w, "Missing externalId", http.StatusBadRequest)
		return
	}

	body, err := h.environs.SetExternalID(r.Context(), envName, stageName, req.ExternalID)
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	h.record(r, "external_id.set", envName, stageName, map[string]any{"externalId": req.ExternalID})
	writeRaw(w, body)
}

// CreateIdentifier привязывает новый stage к системе identifier'ов: клонирует
// identifier соседнего stage'а и сохраняет новый id на stage. Пустой
// externalId означает, что клонировать было нечего.
func (h *EnvironsAPIHandler) CreateIdentifier(w http.ResponseWriter, r *http.Request) {
	envName, stageName := stageParams(r)

	externalID, err := h.identifiers.CreateForNewStage(r.Context(), envName, stageName)
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	if externalID != "" {
		if _, err := h.environs.SetExternalID(r.Context(), envName, stageName, externalID); err != nil {
			writeBackendError(w, r, h.logger, err)
			return
		}
		h.record(r, "identifier.create", envName, stageName, map[string]any{"externalId": externalID})
	}
	respondJSON(w, h.logger, map[string]string{"externalId": externalID})
}

// ProjectConsoleURL: GET /api/v1/projects/{projectName}/console-url. url
// пустой, если identifier'ы отключены.
func (h *EnvironsAPIHandler) ProjectConsoleURL(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, map[string]string{"url": h.identifiers.ConsoleURL(r.PathValue("projectName"))})
}

func (h *EnvironsAPIHandler) GetPinDeploy(w http.ResponseWriter, r *http.Request) {
	envName, stageName := stageParams(r)
	body, err := h.environs.GetPinDeploy(r.Context(), envName, stageName)
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	writeRaw(w, body)
}

func (h *EnvironsAPIHandler) record(r *http.Request, action, envName, stageName string, details map[string]any) {
	h.audit.Execute(r.Context(), port.AuditEvent{
		Action:    action,
		EnvName:   envName,
		StageName: stageName,
		RequestID: middleware.RequestIDFrom(r.Context()),
		Details:   details,
	})
}

func (h *EnvironsAPIHandler) recordDescribed(r *http.Request, action, envName, stageName, description string) {
	h.audit.Execute(r.Context(), port.AuditEvent{
		Action:      action,
		EnvName:     envName,
		StageName:   stageName,
		Description: description,
		RequestID:   middleware.RequestIDFrom(r.Context()),
	})
}

func stageParams(r *http.Request) (string, string) {
	return r.PathValue("envName"), r.PathValue("stageName")
}

func pagination(r *http.Request) (int, int, error) {
	query := r.URL.Query()
	page, err := optionalInt(query.Get("pageIndex"))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: pageIndex: %v", errInvalidRequest, err)
	}
	pageSize, err := optionalInt(query.Get("pageSize"))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: pageSize: %v", errInvalidRequest, err)
	}
	return page, pageSize, nil
}

func optionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New("must be a non-negative integer")
	}
	return v, nil
}

func changeParams(w http.ResponseWriter, r *http.Request) (valueobject.ChangeAction, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return "", "", fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	action, err := valueobject.ParseChangeAction(r.Form.Get("actionType"))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	return action, r.Form.Get("description"), nil
}

// readJSONBody возвращает тело запроса, если это валидный JSON
func readJSONBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	if len(data) == 0 || !json.Valid(data) {
		return nil, fmt.Errorf("%w: body must be valid JSON", errInvalidRequest)
	}
	return data, nil
}

// validateEnums отклоняет JSON объект с неизвестным значением в
// перечислимом поле. Отсутствующие и null поля проверяет backend.
func validateEnums(data json.RawMessage, fields []valueobject.EnumField) error {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err != nil {
		return nil
	}
	for _, field := range fields {
		raw, ok := object[field.Name]
		if !ok {
			continue
		}
		var value *string
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("%w: %s must be a string", errInvalidRequest, field.Name)
		}
		if value != nil && !field.Valid(*value) {
			return fmt.Errorf("%w: %s: %w %q", errInvalidRequest, field.Name, valueobject.ErrUnknownEnumValue, *value)
		}
	}
	return nil
}
