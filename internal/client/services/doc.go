// Package services contains the device-side application services of the
// checkpost agent: ranger sessions, passage recording with the local
// matching engine, the sync engine with its SMS fallback, and photo
// attachment.
//
// Services receive their collaborators through constructors. Storage is
// reached through a repomanager.RepositoryManager so that multi-step
// changes run inside a single dbx.WithTx transaction.
package services
