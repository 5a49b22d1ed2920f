package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook runs around every handler invocation. A non-nil error from
// BeforeHandle skips the handler and counts as a failed attempt.
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, error)
	AfterHandle(ctx context.Context, km kafka.Message, err error)
}

type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, _ kafka.Message) (context.Context, error) {
	return ctx, nil
}

func (NoopHook) AfterHandle(context.Context, kafka.Message, error) {}

// HookFuncs adapts plain functions to ConsumerHook. Nil funcs are no-ops.
type HookFuncs struct {
	Before func(context.Context, kafka.Message) (context.Context, error)
	After  func(context.Context, kafka.Message, error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, error) {
	if h.Before == nil {
		return ctx, nil
	}
	return h.Before(ctx, km)
}

func (h HookFuncs) AfterHandle(ctx context.Context, km kafka.Message, err error) {
	if h.After != nil {
		h.After(ctx, km, err)
	}
}

// HookChain runs Before hooks in order and After hooks in reverse.
// Hook panics are converted into errors.
type HookChain []ConsumerHook

func (c HookChain) BeforeHandle(ctx context.Context, km kafka.Message) (ctx2 context.Context, err error) {
	ctx2 = ctx
	for _, h := range c {
		if h == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("hook panic: %v", r)
				}
			}()
			ctx2, err = h.BeforeHandle(ctx2, km)
		}()
		if err != nil {
			return ctx, err
		}
	}
	return ctx2, nil
}

func (c HookChain) AfterHandle(ctx context.Context, km kafka.Message, err error) {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i] == nil {
			continue
		}
		func() {
			defer func() { _ = recover() }()
			c[i].AfterHandle(ctx, km, err)
		}()
	}
}

type ctxKey string

const (
	CtxStartTime ctxKey = "kafka_start_time"
	CtxSource    ctxKey = "kafka_source"
)

// SourceHook tags the context with the producer-supplied "source" header, or
// the topic name when absent.
func SourceHook() ConsumerHook {
	return HookFuncs{
		Before: func(ctx context.Context, km kafka.Message) (context.Context, error) {
			src := km.Topic
			for _, h := range km.Headers {
				if h.Key == "source" && len(h.Value) > 0 {
					src = string(h.Value)
				}
			}
			ctx = context.WithValue(ctx, CtxStartTime, time.Now())
			return context.WithValue(ctx, CtxSource, src), nil
		},
	}
}

// SourceFrom returns the value set by SourceHook, or def.
func SourceFrom(ctx context.Context, def string) string {
	if s, ok := ctx.Value(CtxSource).(string); ok && s != "" {
		return s
	}
	return def
}
