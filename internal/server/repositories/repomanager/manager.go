package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/checkpost/internal/dbx"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/alerts"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/checkposts"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/passages"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/rangers"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/segments"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/violations"
)

// RepositoryManager vends repositories bound to either a *sql.DB or a
// *sql.Tx, so services can compose them inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Segments(db dbx.DBTX) segments.Repository
	Checkposts(db dbx.DBTX) checkposts.Repository
	Rangers(db dbx.DBTX) rangers.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Passages(db dbx.DBTX) passages.Repository
	Violations(db dbx.DBTX) violations.Repository
	Alerts(db dbx.DBTX) alerts.Repository
}
