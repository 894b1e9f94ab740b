package store

import "errors"

// ErrVersionNotFound indicates no tracking row exists for the requested version.
var ErrVersionNotFound = errors.New("tracking version not found")

// ErrNotTracked indicates the table has no tracking versions at all.
var ErrNotTracked = errors.New("table is not tracked")

// ErrVersionExists indicates the requested version number is already taken.
var ErrVersionExists = errors.New("tracking version already exists")

// ErrRelationNotFound indicates the table or view does not exist in the catalog.
var ErrRelationNotFound = errors.New("relation not found")

// ErrUnsupportedRelation indicates the relation is neither a table nor a view.
var ErrUnsupportedRelation = errors.New("relation cannot be tracked")

// ErrTableCreation indicates the tracking table could not be created.
var ErrTableCreation = errors.New("creating tracking table")
