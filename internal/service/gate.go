package service

import (
	"context"
	"course_studio_backend/internal/model"
	"course_studio_backend/internal/util"
	"course_studio_backend/pkg/logger"
	"course_studio_backend/pkg/monitoring"
	"course_studio_backend/pkg/tracing"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ActionStatus string

const (
	StatusSuccess ActionStatus = "success"
	StatusError   ActionStatus = "error"
)

// ErrorKind 决定控制器返回的 HTTP 状态码，不序列化给调用方
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindInvalid
	KindNotFound
	KindUnexpected
)

type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ActionResult 所有写操作的统一结果，错误以结果返回而不是抛给调用方
type ActionResult struct {
	Status  ActionStatus `json:"status"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Kind    ErrorKind    `json:"-"`
}

func (r ActionResult) OK() bool {
	return r.Status == StatusSuccess
}

func successResult(message string, data interface{}) ActionResult {
	return ActionResult{Status: StatusSuccess, Message: message, Data: data}
}

func invalidResult(message string, fields ...FieldError) ActionResult {
	return ActionResult{Status: StatusError, Message: message, Fields: fields, Kind: KindInvalid}
}

func notFoundResult(message string) ActionResult {
	return ActionResult{Status: StatusError, Message: message, Kind: KindNotFound}
}

func unexpectedResult(message string) ActionResult {
	return ActionResult{Status: StatusError, Message: message, Kind: KindUnexpected}
}

// Reporter 错误追踪（rollbar 等）
type Reporter interface {
	Report(ctx context.Context, err error, extras map[string]interface{})
}

// Revalidator 通知展示层丢弃某个路径的缓存
type Revalidator interface {
	Revalidate(ctx context.Context, path string) error
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, error, map[string]interface{}) {}

type nopRevalidator struct{}

func (nopRevalidator) Revalidate(context.Context, string) error { return nil }

// gate 每个管理操作共用的鉴权、上报与失效逻辑
type gate struct {
	reporter    Reporter
	revalidator Revalidator
}

func newGate(reporter Reporter, revalidator Revalidator) gate {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if revalidator == nil {
		revalidator = nopRevalidator{}
	}
	return gate{reporter: reporter, revalidator: revalidator}
}

// requireAdmin 在任何存储访问之前执行；失败走 error 通道而不是 ActionResult
func (g *gate) requireAdmin(actor *model.Actor) error {
	if actor == nil || actor.UserID == "" {
		return util.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return util.ErrForbidden
	}
	return nil
}

func (g *gate) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracing.Tracer.Start(ctx, "service."+op, trace.WithAttributes(attrs...))
}

// fail 记录并上报意外错误，返回不泄露内部细节的结果
func (g *gate) fail(ctx context.Context, op string, actor *model.Actor, err error, message string, extras map[string]interface{}) ActionResult {
	if extras == nil {
		extras = map[string]interface{}{}
	}
	extras["operation"] = op
	if actor != nil {
		extras["actor_id"] = actor.UserID
	}

	logger.Log.Error("operation failed",
		zap.String("operation", op),
		zap.Any("extras", extras),
		zap.Error(err),
	)
	g.reporter.Report(ctx, err, extras)

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, message)

	return g.record(op, unexpectedResult(message))
}

// revalidateCourse 数据已提交，失效失败只记录不影响结果
func (g *gate) revalidateCourse(ctx context.Context, op, courseID string) {
	path := fmt.Sprintf(util.EditViewPath, courseID)
	if err := g.revalidator.Revalidate(ctx, path); err != nil {
		logger.Log.Warn("revalidation failed",
			zap.String("operation", op),
			zap.String("path", path),
			zap.Error(err),
		)
		g.reporter.Report(ctx, err, map[string]interface{}{
			"operation": op,
			"path":      path,
		})
	}
}

func (g *gate) record(op string, result ActionResult) ActionResult {
	monitoring.ObserveOperation(op, string(result.Status))
	return result
}
