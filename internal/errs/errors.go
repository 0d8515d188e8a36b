package errs

import "fmt"

// 错误分类按照影响面划分：
// NotFound    引用的实体不存在，调用方可感知，不重试
// Validation  请求违反数据约束，不产生任何状态变更
// Conflict    当前状态下不允许该操作
// External    依赖方（节点管理、K8s、存储、缓存）瞬时失败，不得推进终态
// Consistency 本地与外部状态出现无法自动调和的分歧，需要人工介入

type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("[%s] %s 不存在", e.Entity, e.Key)
}

func NewNotFound(entity, keyFormat string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: fmt.Sprintf(keyFormat, args...)}
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

type ExternalError struct {
	Source string
	Err    error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("外部依赖 %s 调用失败: %s", e.Source, e.Err.Error())
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

func NewExternal(source string, err error) *ExternalError {
	return &ExternalError{Source: source, Err: err}
}

type ConsistencyError struct {
	Message string
}

func (e *ConsistencyError) Error() string {
	return e.Message
}

func NewConsistency(format string, args ...interface{}) *ConsistencyError {
	return &ConsistencyError{Message: fmt.Sprintf(format, args...)}
}
