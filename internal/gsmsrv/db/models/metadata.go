package models

import (
	"time"

	"github.com/skymodel/skymodel/internal/common/uuid"
)

/*
     Column     |          Type           | Collation | Nullable |      Default
----------------+-------------------------+-----------+----------+--------------------
 id             | bigint                  |           | not null | generated always as identity
 version        | character varying(64)   |           | not null |
 catalogue_name | character varying(128)  |           | not null |
 description    | character varying(1024) |           | not null |
 ref_freq       | double precision        |           | not null |
 epoch          | character varying(32)   |           | not null |
 author         | character varying(256)  |           |          |
 reference      | character varying(512)  |           |          |
 notes          | character varying(2048) |           |          |
 upload_id      | uuid                    |           | not null |
 uploaded_at    | timestamptz             |           | not null | now()

 UNIQUE (catalogue_name, version)
*/

// CatalogueMetadata records one committed catalogue version. Exactly one row
// is written per successful commit, inside the commit transaction.
type CatalogueMetadata struct {
	ID            int64     `db:"id"`
	Version       string    `db:"version"`
	CatalogueName string    `db:"catalogue_name"`
	Description   string    `db:"description"`
	RefFreq       float64   `db:"ref_freq"`
	Epoch         string    `db:"epoch"`
	Author        *string   `db:"author"`
	Reference     *string   `db:"reference"`
	Notes         *string   `db:"notes"`
	UploadID      uuid.UUID `db:"upload_id"`
	UploadedAt    time.Time `db:"uploaded_at"`
}
