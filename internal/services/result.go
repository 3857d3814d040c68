package services

// FallbackReason explains why a Result carries a locally synthesized value
type FallbackReason string

const (
	FallbackNone                 FallbackReason = ""
	FallbackRegistryUnavailable  FallbackReason = "registry_unavailable"
	FallbackRegistryEmpty        FallbackReason = "registry_empty"
	FallbackQuoteUnavailable     FallbackReason = "quote_unavailable"
	FallbackReserveUnavailable   FallbackReason = "reserve_unavailable"
	FallbackScheduleUnavailable  FallbackReason = "schedule_unavailable"
	FallbackScheduleUnconfigured FallbackReason = "schedule_unconfigured"
)

// Result is the outcome of an upstream call that can degrade to a local default.
// Cause keeps the upstream error for logging; it is never shown to the user.
type Result[T any] struct {
	Value    T              `json:"value"`
	Fallback FallbackReason `json:"fallback,omitempty"`
	Cause    error          `json:"-"`
}

// Degraded reports whether Value is a fallback
func (r Result[T]) Degraded() bool {
	return r.Fallback != FallbackNone
}

func resultOf[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func fallbackOf[T any](v T, reason FallbackReason, cause error) Result[T] {
	return Result[T]{Value: v, Fallback: reason, Cause: cause}
}
