// Description: This file wires the manager implementations for the PostgreSQL database.
package postgresql

import (
	"github.com/skymodel/skymodel/internal/gsmsrv/db/dbmanager"
)

// NewSkyModelDb returns the three managers backed by the given connection.
// They are returned separately so each interface can be wrapped independently,
// for example with a cache in front of the metadata manager.
func NewSkyModelDb(c dbmanager.Conn) (*sourceManager, *metadataManager, *connectionManager) {
	return newSourceManager(c), newMetadataManager(c), newConnectionManager(c)
}
