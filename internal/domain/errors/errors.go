package errors

import (
	"fmt"
)

type ErrTopicNotFound struct {
	Name string
}

func (e *ErrTopicNotFound) Error() string {
	return "топик не найден: " + e.Name
}

func (e *ErrTopicNotFound) Is(target error) bool {
	_, ok := target.(*ErrTopicNotFound)
	return ok
}

type ErrTopicAlreadyExists struct {
	Name string
}

func (e *ErrTopicAlreadyExists) Error() string {
	return "топик уже существует: " + e.Name
}

func (e *ErrTopicAlreadyExists) Is(target error) bool {
	_, ok := target.(*ErrTopicAlreadyExists)
	return ok
}

type ErrEntityNotFound struct {
	Name string
}

func (e *ErrEntityNotFound) Error() string {
	return "сущность не найдена: " + e.Name
}

func (e *ErrEntityNotFound) Is(target error) bool {
	_, ok := target.(*ErrEntityNotFound)
	return ok
}

type ErrEntityAlreadyExists struct {
	Name string
}

func (e *ErrEntityAlreadyExists) Error() string {
	return "сущность уже существует: " + e.Name
}

type ErrResourceNotFound struct {
	ID int64
}

func (e *ErrResourceNotFound) Error() string {
	return fmt.Sprintf("ресурс не найден: %d", e.ID)
}

func (e *ErrResourceNotFound) Is(target error) bool {
	_, ok := target.(*ErrResourceNotFound)
	return ok
}

type ErrSnapshotNotFound struct {
	ResourceID int64
}

func (e *ErrSnapshotNotFound) Error() string {
	return fmt.Sprintf("снимок для ресурса с ID %d не найден", e.ResourceID)
}

func (e *ErrSnapshotNotFound) Is(target error) bool {
	_, ok := target.(*ErrSnapshotNotFound)
	return ok
}

type ErrSubscriberNotFound struct {
	ID int64
}

func (e *ErrSubscriberNotFound) Error() string {
	return fmt.Sprintf("подписчик не найден: %d", e.ID)
}

type ErrSubscribeTargetNotFound struct {
	Target string
}

func (e *ErrSubscribeTargetNotFound) Error() string {
	return fmt.Sprintf("'%s' не найден ни как топик, ни как сущность, ни как ресурс", e.Target)
}

func (e *ErrSubscribeTargetNotFound) Is(target error) bool {
	_, ok := target.(*ErrSubscribeTargetNotFound)
	return ok
}

type ErrInvalidEntityType struct {
	Type string
}

func (e *ErrInvalidEntityType) Error() string {
	return "неверный тип сущности: " + e.Type
}

type ErrInvalidResourceType struct {
	Type string
}

func (e *ErrInvalidResourceType) Error() string {
	return "неверный тип ресурса: " + e.Type
}

type ErrInvalidChannelType struct {
	Type string
}

func (e *ErrInvalidChannelType) Error() string {
	return "неверный тип канала доставки: " + e.Type
}

type ErrUnknownChannelType struct {
	Type string
}

func (e *ErrUnknownChannelType) Error() string {
	return "неизвестный тип канала доставки: " + e.Type
}

func (e *ErrUnknownChannelType) Is(target error) bool {
	_, ok := target.(*ErrUnknownChannelType)
	return ok
}

type ErrInvalidChannelConfig struct {
	ChannelType string
	Field       string
}

func (e *ErrInvalidChannelConfig) Error() string {
	return fmt.Sprintf("в конфигурации канала %s отсутствует обязательное поле %s", e.ChannelType, e.Field)
}

type ErrFetchFailed struct {
	URL   string
	Cause error
}

func (e *ErrFetchFailed) Error() string {
	return fmt.Sprintf("ошибка при получении содержимого %s: %v", e.URL, e.Cause)
}

func (e *ErrFetchFailed) Unwrap() error {
	return e.Cause
}

func (e *ErrFetchFailed) Is(target error) bool {
	_, ok := target.(*ErrFetchFailed)
	return ok
}

// ErrMalformedSummary возникает, когда сервис суммаризации вернул ответ,
// который не удалось разобрать как ожидаемую структуру.
type ErrMalformedSummary struct {
	Raw string
}

func (e *ErrMalformedSummary) Error() string {
	return "сервис суммаризации вернул некорректный ответ: " + e.Raw
}

func (e *ErrMalformedSummary) Is(target error) bool {
	_, ok := target.(*ErrMalformedSummary)
	return ok
}

type ErrInvalidArgument struct {
	Message string
}

func (e *ErrInvalidArgument) Error() string {
	return fmt.Sprintf("некорректный аргумент: %s", e.Message)
}

type ErrUnknownDBAccessType struct {
	AccessType string
}

func (e *ErrUnknownDBAccessType) Error() string {
	return fmt.Sprintf("неизвестный тип доступа к базе данных: %s", e.AccessType)
}

type ErrBuildSQLQuery struct {
	Operation string
	Cause     error
}

func (e *ErrBuildSQLQuery) Error() string {
	return fmt.Sprintf("ошибка при построении SQL запроса для %s: %v", e.Operation, e.Cause)
}

func (e *ErrBuildSQLQuery) Unwrap() error {
	return e.Cause
}

type ErrSQLExecution struct {
	Operation string
	Cause     error
}

func (e *ErrSQLExecution) Error() string {
	return fmt.Sprintf("ошибка при выполнении SQL запроса для %s: %v", e.Operation, e.Cause)
}

func (e *ErrSQLExecution) Unwrap() error {
	return e.Cause
}

type ErrSQLScan struct {
	Entity string
	Cause  error
}

func (e *ErrSQLScan) Error() string {
	return fmt.Sprintf("ошибка при сканировании %s: %v", e.Entity, e.Cause)
}

func (e *ErrSQLScan) Unwrap() error {
	return e.Cause
}

type ErrUnknownCommand struct {
	Command string
}

func (e *ErrUnknownCommand) Error() string {
	return "неизвестная команда: " + e.Command
}

type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %d", e.StatusCode)
}
