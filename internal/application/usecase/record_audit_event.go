package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dreschagin/deploy-board/internal/application/port"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

// RecordAuditEventUseCase публикует событие об изменении окружения.
// Ошибка публикации логируется и не влияет на ответ пользователю.
type RecordAuditEventUseCase struct {
	publisher     port.EventPublisher
	subjectPrefix string
	logger        *logger.Logger
	now           func() time.Time
}

// NewRecordAuditEventUseCase создает новый use case; publisher может быть nil
func NewRecordAuditEventUseCase(publisher port.EventPublisher, subjectPrefix string, logger *logger.Logger) *RecordAuditEventUseCase {
	return &RecordAuditEventUseCase{
		publisher:     publisher,
		subjectPrefix: strings.TrimSuffix(subjectPrefix, "."),
		logger:        logger,
		now:           time.Now,
	}
}

// Execute публикует событие в <prefix>.env.<action>
func (uc *RecordAuditEventUseCase) Execute(ctx context.Context, event port.AuditEvent) {
	if uc == nil || uc.publisher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = uc.now().UTC()
	}

	subject := uc.subjectPrefix + ".env." + event.Action
	if err := uc.publisher.PublishEvent(ctx, subject, event); err != nil {
		uc.logger.Error("Failed to publish audit event", err,
			"subject", subject,
			"env", event.EnvName,
			"stage", event.StageName,
		)
	}
}
