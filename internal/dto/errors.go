package dto

// BaseError универсальный формат ошибки API
// Code: машинный код (snake_case)
// Message: краткое описание для человека
// Details: дополнительная строка (пояснение)
// Fields: ошибки валидации по полям
type BaseError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError ошибка по конкретному полю запроса
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
}

// Семантические обёртки для swagger; по JSON совпадают с BaseError.

// ValidationErrorResponse 400
// Code: "validation_error"
type ValidationErrorResponse BaseError

// InvalidStateErrorResponse 400
// Пример: резерв позиции со сбором, вклад без цены
// Code: "invalid_state"
type InvalidStateErrorResponse BaseError

// LimitExceededErrorResponse 400
// Вклад больше остатка; Remaining: сколько ещё можно внести
// Code: "limit_exceeded"
type LimitExceededErrorResponse struct {
	BaseError
	Remaining float64 `json:"remaining"`
}

// ConflictErrorResponse 409
// Пример: позиция уже зарезервирована
// Code: "conflict"
type ConflictErrorResponse BaseError

// UnauthorizedErrorResponse 401
// Code: "unauthorized"
type UnauthorizedErrorResponse BaseError

// ForbiddenErrorResponse 403
// Code: "forbidden"
type ForbiddenErrorResponse BaseError

// NotFoundErrorResponse 404
// Code: "not_found"
type NotFoundErrorResponse BaseError

// TimeoutErrorResponse 408
// Code: "timeout"
type TimeoutErrorResponse BaseError

// RateLimitedErrorResponse 429
// Code: "rate_limited"
type RateLimitedErrorResponse BaseError

// InternalErrorResponse 500
// Code: "internal_error"
type InternalErrorResponse BaseError

func NewValidationError(msg string, fields []FieldError) ValidationErrorResponse {
	return ValidationErrorResponse(BaseError{Code: "validation_error", Message: msg, Fields: fields})
}
func NewInvalidStateError(msg string) InvalidStateErrorResponse {
	return InvalidStateErrorResponse(BaseError{Code: "invalid_state", Message: msg})
}
func NewLimitExceededError(msg string, remaining float64) LimitExceededErrorResponse {
	return LimitExceededErrorResponse{BaseError: BaseError{Code: "limit_exceeded", Message: msg}, Remaining: remaining}
}
func NewConflictError(msg string) ConflictErrorResponse {
	return ConflictErrorResponse(BaseError{Code: "conflict", Message: msg})
}
func NewUnauthorizedError(msg string) UnauthorizedErrorResponse {
	return UnauthorizedErrorResponse(BaseError{Code: "unauthorized", Message: msg})
}
func NewForbiddenError(msg string) ForbiddenErrorResponse {
	return ForbiddenErrorResponse(BaseError{Code: "forbidden", Message: msg})
}
func NewNotFoundError(msg string) NotFoundErrorResponse {
	return NotFoundErrorResponse(BaseError{Code: "not_found", Message: msg})
}
func NewTimeoutError(msg string) TimeoutErrorResponse {
	return TimeoutErrorResponse(BaseError{Code: "timeout", Message: msg})
}
func NewRateLimitedError(msg string) RateLimitedErrorResponse {
	return RateLimitedErrorResponse(BaseError{Code: "rate_limited", Message: msg})
}
func NewInternalError(details string) InternalErrorResponse {
	return InternalErrorResponse(BaseError{Code: "internal_error", Message: "internal server error", Details: details})
}
