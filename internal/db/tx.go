package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX es lo que necesitan los repositorios: un pool o una transaccion.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxMode elige aislamiento y acceso de la transaccion.
type TxMode int

const (
	// ReadSnapshot: una sola foto consistente de la configuracion y las respuestas.
	ReadSnapshot TxMode = iota
	// ReadWrite: mutaciones de un assignment o de una configuracion.
	ReadWrite
	// Nested: dentro de una transaccion abre un savepoint. Si fn falla se revierte
	// solo el savepoint y la transaccion externa sigue usable. Sin transaccion
	// previa equivale a ReadSnapshot.
	Nested
)

func (m TxMode) options() pgx.TxOptions {
	if m == ReadSnapshot || m == Nested {
		return pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	}
	return pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}
}

type txKey struct{}

// TxManager abre transacciones y las deja en el contexto para los repositorios.
type TxManager struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewTxManager(pool *pgxpool.Pool, timeout time.Duration) *TxManager {
	return &TxManager{pool: pool, timeout: timeout}
}

// WithinTx ejecuta fn dentro de una transaccion. Si el contexto ya trae una, la
// reutiliza; con Nested abre un savepoint sobre ella.
func (m *TxManager) WithinTx(ctx context.Context, mode TxMode, fn func(ctx context.Context) error) error {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		if mode != Nested {
			return fn(ctx)
		}
		return pgx.BeginFunc(ctx, tx, func(sp pgx.Tx) error {
			return fn(context.WithValue(ctx, txKey{}, sp))
		})
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return pgx.BeginTxFunc(ctx, m.pool, mode.options(), func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Conn devuelve la transaccion del contexto o, si no hay, el pool.
func Conn(ctx context.Context, pool *pgxpool.Pool) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}
