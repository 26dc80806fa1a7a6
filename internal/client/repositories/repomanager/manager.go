// Package repomanager vends the device's SQLite repositories bound to
// either a *sql.DB or a *sql.Tx, so services can compose them inside
// dbx.WithTx.
package repomanager

import (
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/cache"
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/passages"
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/syncqueue"
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/violations"
	"github.com/dmitrijs2005/checkpost/internal/dbx"
)

type RepositoryManager interface {
	Passages(db dbx.DBTX) passages.Repository
	Cache(db dbx.DBTX) cache.Repository
	Violations(db dbx.DBTX) violations.Repository
	Queue(db dbx.DBTX) syncqueue.Repository
	Metadata(db dbx.DBTX) metadata.Repository
}

type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() RepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Passages(db dbx.DBTX) passages.Repository {
	return passages.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Cache(db dbx.DBTX) cache.Repository {
	return cache.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Violations(db dbx.DBTX) violations.Repository {
	return violations.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Queue(db dbx.DBTX) syncqueue.Repository {
	return syncqueue.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}
