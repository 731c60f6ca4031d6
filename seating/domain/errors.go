package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig indica entrada de construção inválida. É fatal: o salão não abre.
	ErrConfig = errors.New("invalid table layout")
	// ErrInvalidSize indica um grupo que nenhuma mesa do salão comporta.
	ErrInvalidSize = errors.New("invalid group size")
	// ErrInvalidHandle indica release duplo, handle desconhecido ou de outro allocator.
	ErrInvalidHandle = errors.New("invalid table handle")
	// ErrInvariantViolation indica falha de consistência interna. O pool não é mais confiável.
	ErrInvariantViolation = errors.New("table pool invariant violated")
	// ErrCancelled é a saída cooperativa de uma espera. Não é falha do chamador.
	ErrCancelled = errors.New("seating request cancelled")
	// ErrNoTable é retornado pela tentativa não bloqueante quando nada serve agora.
	ErrNoTable = errors.New("no table available")
	// ErrNotWaiting é retornado por Cancel quando o pedido não está em espera.
	ErrNotWaiting = errors.New("request is not waiting")
)

// ConfigError detalha qual classe do layout é inválida.
type ConfigError struct {
	Class CapacityClass
	Field string
	Value int
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s = %d", ErrConfig, e.Class, e.Field, e.Value)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// InvalidSizeError carrega o tamanho pedido e a maior capacidade do salão.
type InvalidSizeError struct {
	Size int
	Max  int
}

func (e *InvalidSizeError) Error() string {
	return fmt.Sprintf("%s: %d (largest table seats %d)", ErrInvalidSize, e.Size, e.Max)
}

func (e *InvalidSizeError) Unwrap() error { return ErrInvalidSize }

// InvariantError descreve a operação que encontrou a mesa em estado inesperado.
type InvariantError struct {
	Table TableID
	Op    string
	State TableState
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s on table %d in state %s", ErrInvariantViolation, e.Op, e.Table, e.State)
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }
