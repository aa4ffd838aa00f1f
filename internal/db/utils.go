package db

import (
	"strconv"

	dbpkg "github.com/dtnitsch/audiofetch/pkg/db"
	"github.com/google/uuid"
)

// ResolveRun looks a run up by numeric ID or by UUID.
func ResolveRun(arg string, database *dbpkg.DB) (*dbpkg.Run, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return database.GetRun(id)
	}
	if _, err := uuid.Parse(arg); err == nil {
		return database.GetRunByUUID(arg)
	}
	return nil, dbpkg.ErrRunNotFound
}
