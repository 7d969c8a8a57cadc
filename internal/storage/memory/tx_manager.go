package memory

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
)

// LockTxManager сериализует тела WithTx одним мьютексом процесса.
// Откатов нет: изменения, сделанные до ошибки, остаются.
type LockTxManager struct {
	mu sync.Mutex
}

func NewLockTxManager() *LockTxManager {
	return &LockTxManager{}
}

func (m *LockTxManager) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return fn(nil)
}
