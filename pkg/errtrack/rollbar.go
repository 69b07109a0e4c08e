package errtrack

import (
	"context"
	"course_studio_backend/internal/config"
	"course_studio_backend/pkg/logger"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"
)

// RollbarReporter 把意外错误上报到 rollbar；token 为空时只写日志
type RollbarReporter struct {
	enabled bool
}

func NewRollbarReporter(cfg config.RollbarConfig) *RollbarReporter {
	enabled := cfg.Token != ""
	rollbar.SetToken(cfg.Token)
	rollbar.SetEnvironment(cfg.Environment)
	rollbar.SetServerHost(cfg.ServerHost)
	rollbar.SetCodeVersion(cfg.CodeVersion)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(enabled)
	return &RollbarReporter{enabled: enabled}
}

func (r *RollbarReporter) Report(_ context.Context, err error, extras map[string]interface{}) {
	if err == nil {
		return
	}
	if !r.enabled {
		logger.Log.Debug("rollbar disabled, error not reported", zap.Error(err))
		return
	}
	if id, ok := extras["actor_id"].(string); ok && id != "" {
		rollbar.SetPerson(id, "", "")
	} else {
		rollbar.ClearPerson()
	}
	rollbar.Error(err, extras)
}

// Close 等待队列中的上报发送完毕
func (r *RollbarReporter) Close() {
	if r.enabled {
		rollbar.Wait()
	}
}
