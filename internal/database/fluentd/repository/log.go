package repository

import (
	"context"
	"encoding/json"
	"time"

	"qrious/config"
	"qrious/internal/core"
	"qrious/internal/database/client"
	"qrious/internal/database/fluentd/model"
)

const defaultVersion = "1.0.0"

type stampable interface {
	Stamp(projectName, version string, now time.Time)
}

// LogRepository 把 request / response / generation 紀錄送到 fluentd
type LogRepository struct {
	fluentdClient client.Client
	projectName   string
	version       string
	now           func() time.Time
}

func NewLogRepository(config *config.Configuration, client client.Client) *LogRepository {
	version := config.App.Version
	if version == "" {
		version = defaultVersion
	}
	return &LogRepository{
		fluentdClient: client,
		projectName:   config.App.Name,
		version:       version,
		now:           time.Now,
	}
}

func (repository *LogRepository) LogRequest(ctx context.Context, req model.RequestLog) error {
	return repository.post(ctx, core.FluentdRequest, &req)
}

func (repository *LogRepository) LogResponse(ctx context.Context, resp model.ResponseLog) error {
	return repository.post(ctx, core.FluentdResponse, &resp)
}

func (repository *LogRepository) LogGeneration(ctx context.Context, generation model.GenerationLog) error {
	return repository.post(ctx, core.FluentdGeneration, &generation)
}

// post 補齊 envelope，依 json tag 攤平成 map 後送出
func (repository *LogRepository) post(ctx context.Context, tag core.FluentdSubTag, record stampable) error {
	record.Stamp(repository.projectName, repository.version, repository.now())

	b, err := json.Marshal(record)
	if err != nil {
		return err
	}
	var message map[string]any
	if err := json.Unmarshal(b, &message); err != nil {
		return err
	}
	return repository.fluentdClient.Post(ctx, string(tag), message)
}
